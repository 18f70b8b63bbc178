package visibility

import (
	"context"
	"iter"
	"sync"

	"github.com/looplj/visgate/internal/item"
)

// Emitter receives every visible item, in input order. This is where a response
// encoder would serialize the item.
type Emitter interface {
	Emit(ctx context.Context, it item.Item) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(ctx context.Context, it item.Item) error

func (f EmitterFunc) Emit(ctx context.Context, it item.Item) error {
	return f(ctx, it)
}

// Discard drops visible items.
var Discard Emitter = EmitterFunc(func(context.Context, item.Item) error { return nil })

// Collector keeps the visible items in emission order.
type Collector struct {
	mu    sync.Mutex
	items []item.Item
}

func (c *Collector) Emit(_ context.Context, it item.Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = append(c.items, it)

	return nil
}

// Items returns a copy of what was emitted so far.
func (c *Collector) Items() []item.Item {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]item.Item, len(c.items))
	copy(out, c.items)

	return out
}

// Stats summarizes one Write call.
type Stats struct {
	Checked int
	Emitted int
	Skipped int
}

// Write asks checker about every item of items in order and emits the visible ones.
//
// Only one check is outstanding at a time. A hidden item is skipped and is not an error.
// The first checker error stops the walk: no further item is pulled from items and the
// error is returned unchanged. Cancellation of ctx is observed before every check and
// again before emitting, so nothing is emitted once ctx is done.
//
// On error the returned Stats cover the items handled before the failure.
func Write(ctx context.Context, checker Checker, items iter.Seq[item.Item], emit Emitter) (Stats, error) {
	if emit == nil {
		emit = Discard
	}

	var stats Stats

	for it := range items {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		visible, err := checker.CanSee(ctx, it)
		stats.Checked++

		if err != nil {
			return stats, err
		}

		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if !visible {
			stats.Skipped++
			continue
		}

		if err := emit.Emit(ctx, it); err != nil {
			return stats, err
		}

		stats.Emitted++
	}

	return stats, nil
}
