package xmap

import (
	"sync"
)

// Map is a type-safe wrapper around sync.Map.
type Map[K comparable, V any] struct {
	m sync.Map
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	v, ok := m.m.Load(key)
	if !ok {
		return value, false
	}

	//nolint:forcetypeassert // Only V is ever stored.
	return v.(V), true
}

func (m *Map[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

// LoadOrStore keeps the first value stored for key; loaded reports whether it already existed.
func (m *Map[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	v, loaded := m.m.LoadOrStore(key, value)
	//nolint:forcetypeassert // Only V is ever stored.
	return v.(V), loaded
}

func (m *Map[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Len walks the map, so it is only meant for tests and diagnostics.
func (m *Map[K, V]) Len() int {
	n := 0

	m.m.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

func (m *Map[K, V]) Clear() {
	m.m.Clear()
}
