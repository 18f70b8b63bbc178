package metrics

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdk "go.opentelemetry.io/otel/sdk/metric"

	"github.com/looplj/visgate/internal/log"
)

const defaultInterval = time.Minute

// NewProvider returns nil when metrics are disabled.
func NewProvider(cfg Config) (*sdk.MeterProvider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	exporter, err := newExporter(context.Background(), cfg.Exporter, os.Stdout)
	if err != nil {
		return nil, err
	}

	interval := cfg.Exporter.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	log.Info(context.Background(), "metrics enabled",
		log.String("exporter", cfg.Exporter.Type),
		log.Duration("interval", interval))

	reader := sdk.NewPeriodicReader(exporter, sdk.WithInterval(interval))

	return sdk.NewMeterProvider(sdk.WithReader(reader)), nil
}

func newExporter(ctx context.Context, cfg ExporterConfig, stdout io.Writer) (sdk.Exporter, error) {
	switch cfg.Type {
	case ExporterStdout, "":
		return stdoutmetric.New(stdoutmetric.WithWriter(stdout))
	case ExporterOTLPHTTP:
		var opts []otlpmetrichttp.Option
		if cfg.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
		}

		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}

		return otlpmetrichttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("metrics: unknown exporter %q", cfg.Type)
	}
}

// SetupMetrics installs provider as the global meter provider.
func SetupMetrics(provider *sdk.MeterProvider) {
	otel.SetMeterProvider(provider)
}

// Meter returns a meter from provider, or a noop meter when provider is nil.
func Meter(provider *sdk.MeterProvider, name string) metric.Meter {
	if provider == nil {
		return noop.NewMeterProvider().Meter(name)
	}

	return provider.Meter(name)
}
