package biz

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/log"
	"github.com/looplj/visgate/internal/visibility"
)

type ItemServiceParams struct {
	fx.In

	Source  item.Source
	Checker visibility.Checker
}

// ItemService serves the visible part of an item collection.
type ItemService struct {
	source  item.Source
	checker visibility.Checker
}

func NewItemService(params ItemServiceParams) *ItemService {
	return &ItemService{
		source:  params.Source,
		checker: params.Checker,
	}
}

// WriteVisible builds the collection for id, drops deleted items and emits the ones the
// principal in ctx may see. The collection belongs to this call and is released when it
// returns.
//
// A checker failure is returned unchanged.
func (s *ItemService) WriteVisible(ctx context.Context, id string, emit visibility.Emitter) (visibility.Stats, error) {
	items, err := s.source.Items(ctx, id)
	if err != nil {
		return visibility.Stats{}, fmt.Errorf("load items %s: %w", id, err)
	}

	stats, err := visibility.Write(ctx, s.checker, items.Live(), emit)
	if err != nil {
		log.Warn(ctx, "failed to write visible items",
			log.String("id", id),
			log.Int("checked", stats.Checked),
			log.Int("emitted", stats.Emitted),
			log.Cause(err))

		return stats, err
	}

	if log.DebugEnabled(ctx) {
		log.Debug(ctx, "items written",
			log.String("id", id),
			log.Int("total", items.Len()),
			log.Int("checked", stats.Checked),
			log.Int("emitted", stats.Emitted),
			log.Int("skipped", stats.Skipped))
	}

	return stats, nil
}
