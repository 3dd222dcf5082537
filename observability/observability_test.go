package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestStartOperationRecordsSpan(t *testing.T) {
	rec, tp := newRecorder()
	tracer := Tracer(tp, "test")

	_, op := StartOperation(context.Background(), tracer, nil, SpanFixtureApply,
		attribute.String(AttrKind, "table"))
	op.End(nil)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != SpanFixtureApply {
		t.Errorf("expected span %q, got %q", SpanFixtureApply, spans[0].Name())
	}
	var kind, status string
	for _, kv := range spans[0].Attributes() {
		switch kv.Key {
		case AttrKind:
			kind = kv.Value.AsString()
		case AttrStatus:
			status = kv.Value.AsString()
		}
	}
	if kind != "table" || status != "ok" {
		t.Errorf("unexpected attributes kind=%q status=%q", kind, status)
	}
}

func TestOperationEndWithError(t *testing.T) {
	rec, tp := newRecorder()

	_, op := StartOperation(context.Background(), Tracer(tp, ""), nil, SpanFixtureDiscard)
	op.End(errors.New("boom"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}

func TestTracerFallsBackToGlobalProvider(t *testing.T) {
	_, op := StartOperation(context.Background(), nil, nil, SpanFixtureApply)
	if op.Span().IsRecording() {
		t.Error("the default global provider should not record")
	}
	op.End(nil)
}

func TestMetricsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), "test")
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	ctx := context.Background()
	m.Record(ctx, SpanFixtureApply, "table", "local", 20*time.Millisecond, nil)
	m.Record(ctx, SpanFixtureApply, "table", "local", 10*time.Millisecond, errors.New("boom"))

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	var observed uint64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
			case metricdata.Histogram[float64]:
				if md.Unit != "s" {
					t.Errorf("expected unit s, got %q", md.Unit)
				}
				for _, dp := range data.DataPoints {
					observed += dp.Count
				}
			}
		}
	}
	if total != 2 || observed != 2 {
		t.Errorf("expected 2 runs counted and observed, got %d and %d", total, observed)
	}

	var none *Metrics
	none.Record(ctx, SpanFixtureApply, "table", "local", time.Second, nil)
}
