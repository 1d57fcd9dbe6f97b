package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "careerforge"

// StartGenerateSpan starts a span around one text generation call.
func StartGenerateSpan(ctx context.Context, purpose, userID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "llm.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.purpose", purpose),
			attribute.String("user.id", userID),
		),
	)
}

// StartJobSpan starts a span for one run of a background job.
func StartJobSpan(ctx context.Context, job string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "job."+job,
		trace.WithAttributes(attribute.String("job.name", job)),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
