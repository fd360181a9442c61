// Package tracing holds the span helpers services use around their operations.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "contribution-metrics/pkg/domain-errors"
)

// Tracer returns the named tracer from the global provider.
// The provider is a no-op unless the process installs one.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Start opens a span named op with the given attributes.
func Start(ctx context.Context, tracer trace.Tracer, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}

// End records *errp on span and ends it. Use with a named error return:
//
//	ctx, span := tracing.Start(ctx, s.tracer, "user.CreateUser")
//	defer tracing.End(span, &err)
func End(span trace.Span, errp *error) {
	if errp != nil && *errp != nil {
		err := *errp
		span.SetAttributes(attribute.String("error.code", string(dErrors.CodeOf(err))))
		// Only internal and unavailable errors mark the span as failed.
		if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
