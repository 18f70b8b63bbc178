package dependencies

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	sdk "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"

	"github.com/looplj/visgate/internal/item"
	"github.com/looplj/visgate/internal/log"
	"github.com/looplj/visgate/internal/metrics"
	"github.com/looplj/visgate/internal/pkg/xcache"
	"github.com/looplj/visgate/internal/pkg/xredis"
	"github.com/looplj/visgate/internal/policy"
	"github.com/looplj/visgate/internal/visibility"
)

const meterName = "github.com/looplj/visgate"

var Module = fx.Module("dependencies",
	fx.Provide(NewRedisClient),
	fx.Provide(NewGrantCache),
	fx.Provide(policy.NewNotifier),
	fx.Provide(NewGrantStore),
	fx.Provide(NewMeter),
	fx.Provide(NewChecker),
	fx.Provide(item.NewSource),
)

// NewRedisClient returns a nil client when redis is not configured.
func NewRedisClient(lc fx.Lifecycle, cfg xredis.Config) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client, err := xredis.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client, nil
}

func NewGrantCache(cfg xcache.Config, client *redis.Client) (xcache.Cache[[]string], error) {
	return xcache.New[[]string](cfg, client)
}

type GrantStoreParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    policy.Config
	Client    *redis.Client
	Notifier  policy.Notifier
	Cache     xcache.Cache[[]string]
}

func NewGrantStore(params GrantStoreParams) (*policy.CachedStore, error) {
	store, err := policy.NewStore(params.Config, params.Client, params.Notifier)
	if err != nil {
		return nil, err
	}

	cached := policy.NewCachedStore(store, params.Cache, params.Notifier)

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			cached.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return cached.Close()
		},
	})

	return cached, nil
}

type MeterParams struct {
	fx.In

	Provider *sdk.MeterProvider `optional:"true"`
}

func NewMeter(params MeterParams) metric.Meter {
	return metrics.Meter(params.Provider, meterName)
}

func NewChecker(cfg visibility.Config, grants *policy.CachedStore, meter metric.Meter) (visibility.Checker, error) {
	checker, err := visibility.NewChecker(cfg, grants)
	if err != nil {
		return nil, err
	}

	log.Info(context.Background(), "visibility checker ready", log.String("kind", visibility.Kind(checker)))

	return visibility.Instrumented(checker, meter)
}
