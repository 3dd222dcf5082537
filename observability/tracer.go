package observability

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/kbukum/fixturekit"

const (
	SpanFixtureApply   = "fixture.apply"
	SpanFixtureDiscard = "fixture.discard"
)

const (
	AttrKind         = "fixture.kind"
	AttrScope        = "fixture.scope"
	AttrDurationMs   = "duration_ms"
	AttrStatus       = "status"
	AttrErrorMessage = "error.message"
)

// Tracer returns a named tracer from provider. A nil provider means the
// global one, which is a no-op unless the process installed an SDK.
func Tracer(provider trace.TracerProvider, name string) trace.Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	if name == "" {
		name = defaultTracerName
	}
	return provider.Tracer(name)
}
