package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/kbukum/fixturekit/errors"
	"github.com/kbukum/fixturekit/logger"
)

// Operation tracks one traced, logged unit of work such as applying a
// fixture kind.
type Operation struct {
	Name      string
	StartTime time.Time

	span trace.Span
	log  *logger.Logger
}

// StartOperation starts a span named name on tracer and returns the derived
// context. log may be nil.
func StartOperation(ctx context.Context, tracer trace.Tracer, log *logger.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	if tracer == nil {
		tracer = Tracer(nil, "")
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &Operation{Name: name, StartTime: time.Now(), span: span, log: log}
}

// End finishes the span, recording err and the elapsed time, and logs the
// outcome at debug (or error on failure).
func (o *Operation) End(err error) {
	d := o.Duration()
	status := "ok"
	if err != nil {
		status = "error"
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	o.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, d.Milliseconds()),
	)
	o.span.End()

	fields := logger.DurationFields(o.Name, d)
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			fields = appErr.DetailMap()
			fields[logger.FieldOperation] = o.Name
			fields[logger.FieldDuration] = d.Milliseconds()
			fields["code"] = string(appErr.Code)
		}
		fields[logger.FieldError] = err.Error()
		o.log.Error("operation failed", fields)
		return
	}
	o.log.Debug("operation finished", fields)
}

// Span returns the operation's span.
func (o *Operation) Span() trace.Span { return o.span }

// Duration returns the elapsed time since operation start.
func (o *Operation) Duration() time.Duration {
	return time.Since(o.StartTime)
}
