package item

import (
	"iter"
)

// Collection is the item set owned by one request. It is never shared between requests.
type Collection struct {
	items []Item
}

// NewCollection takes ownership of items.
func NewCollection(items ...Item) *Collection {
	return &Collection{items: items}
}

func (c *Collection) Len() int {
	return len(c.items)
}

// All yields every item, deleted ones included, in order.
func (c *Collection) All() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range c.items {
			if !yield(it.Clone()) {
				return
			}
		}
	}
}

// Live is a lazy view that skips soft-deleted items and keeps the original relative order.
// Nothing is evaluated until the sequence is ranged over, and ranging stops as soon as
// the consumer does.
func (c *Collection) Live() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		for _, it := range c.items {
			if it.IsDeleted() {
				continue
			}

			if !yield(it.Clone()) {
				return
			}
		}
	}
}
