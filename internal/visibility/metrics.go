package visibility

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/looplj/visgate/internal/item"
)

const (
	OutcomeVisible = "visible"
	OutcomeHidden  = "hidden"
	OutcomeFailed  = "failed"
)

const (
	decisionsMetric = "visgate.visibility.decisions"
	durationMetric  = "visgate.visibility.check.duration"
)

type instrumented struct {
	next      Checker
	kind      attribute.KeyValue
	decisions metric.Int64Counter
	duration  metric.Float64Histogram
}

// Instrumented counts the decisions of next by outcome and records how long each check took.
func Instrumented(next Checker, meter metric.Meter) (Checker, error) {
	decisions, err := meter.Int64Counter(decisionsMetric,
		metric.WithDescription("Visibility decisions by outcome."),
		metric.WithUnit("{decision}"))
	if err != nil {
		return nil, fmt.Errorf("visibility: create decisions counter: %w", err)
	}

	duration, err := meter.Float64Histogram(durationMetric,
		metric.WithDescription("Duration of a single visibility check."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("visibility: create duration histogram: %w", err)
	}

	return &instrumented{
		next:      next,
		kind:      attribute.String("checker", Kind(next)),
		decisions: decisions,
		duration:  duration,
	}, nil
}

func (c *instrumented) CanSee(ctx context.Context, it item.Item) (bool, error) {
	start := time.Now()
	visible, err := c.next.CanSee(ctx, it)

	outcome := OutcomeHidden

	switch {
	case err != nil:
		outcome = OutcomeFailed
	case visible:
		outcome = OutcomeVisible
	}

	// Recording must outlive a cancelled request.
	mctx := context.WithoutCancel(ctx)
	attrs := metric.WithAttributes(c.kind, attribute.String("outcome", outcome))
	c.decisions.Add(mctx, 1, attrs)
	c.duration.Record(mctx, time.Since(start).Seconds(), metric.WithAttributes(c.kind))

	return visible, err
}

// Kind names the checker implementation for logs and metrics.
func Kind(c Checker) string {
	switch v := c.(type) {
	case fixed:
		if v {
			return CheckerAllow
		}

		return CheckerDeny
	case *Rules:
		return CheckerRules
	case *Grants:
		return CheckerGrants
	case *Remote:
		return CheckerRemote
	case *instrumented:
		return Kind(v.next)
	default:
		return "custom"
	}
}
