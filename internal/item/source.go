package item

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// ErrUnknownSource is returned by NewSource for an unsupported source type.
var ErrUnknownSource = errors.New("unknown item source")

// Source builds the collection a request works on. Every call must return a fresh
// collection the caller owns exclusively.
type Source interface {
	Items(ctx context.Context, id string) (*Collection, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, id string) (*Collection, error)

func (f SourceFunc) Items(ctx context.Context, id string) (*Collection, error) {
	return f(ctx, id)
}

// Synthetic produces a single fresh, live, public item per request.
type Synthetic struct {
	Now func() time.Time
}

func (s Synthetic) Items(_ context.Context, id string) (*Collection, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	return NewCollection(Item{
		ID:         id,
		Visibility: VisibilityPublic,
		CreatedAt:  now(),
	}), nil
}

// Fixtures serves a fixed template. Each request gets its own deep copy.
type Fixtures struct {
	templates []Item
}

func NewFixtures(items []Item) *Fixtures {
	return &Fixtures{templates: lo.Map(items, func(it Item, _ int) Item { return it.Clone() })}
}

func (f *Fixtures) Items(_ context.Context, _ string) (*Collection, error) {
	return NewCollection(lo.Map(f.templates, func(it Item, _ int) Item { return it.Clone() })...), nil
}

const (
	SourceSynthetic = "synthetic"
	SourceFixtures  = "fixtures"
)

type Config struct {
	// Source is synthetic or fixtures.
	Source   string `conf:"source" yaml:"source" json:"source"`
	Fixtures []Item `conf:"fixtures" yaml:"fixtures" json:"fixtures"`
}

// NewSource builds the configured Source.
func NewSource(cfg Config) (Source, error) {
	switch cfg.Source {
	case "", SourceSynthetic:
		return Synthetic{}, nil
	case SourceFixtures:
		return NewFixtures(cfg.Fixtures), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}
