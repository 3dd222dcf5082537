// Package observability wires OpenTelemetry tracing into fixture work.
//
// Spans are started from an injected trace.TracerProvider, falling back to
// the global provider, so tests can record them with the SDK's in-memory
// recorder:
//
//	ctx, op := observability.StartOperation(ctx, tracer, log, observability.SpanFixtureApply,
//		attribute.String(observability.AttrKind, "table"))
//	err := apply(ctx)
//	op.End(err)
package observability
