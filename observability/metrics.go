package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricOperations = "fixture.operations"
	MetricDuration   = "fixture.operation.duration"
)

// Metrics holds the instruments recorded for every processor run.
type Metrics struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMetrics creates the instruments on a meter from provider. A nil
// provider means the global one.
func NewMetrics(provider metric.MeterProvider, name string) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	if name == "" {
		name = defaultTracerName
	}
	meter := provider.Meter(name)

	operations, err := meter.Int64Counter(MetricOperations,
		metric.WithDescription("Fixture apply and discard runs per kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricOperations, err)
	}
	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Duration of fixture apply and discard runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricDuration, err)
	}
	return &Metrics{operations: operations, duration: duration}, nil
}

// Record counts one run of operation for kind in scope. Nil metrics record
// nothing.
func (m *Metrics) Record(ctx context.Context, operation, kind, scope string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String(AttrKind, kind),
		attribute.String(AttrScope, scope),
		attribute.String(AttrStatus, status),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String(AttrKind, kind),
	))
}
