package scheduler

import (
	"context"

	"github.com/Deepreo/gorev/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelMiddleware wraps each action invocation in a span. Task identity is read
// from the invocation context (set by the runner via core.WithTask).
func OTelMiddleware(next core.ActionFunc) core.ActionFunc {
	return func(ctx context.Context) error {
		tracer := otel.Tracer("gorev-scheduler")

		attrs := []attribute.KeyValue{}
		if task, ok := core.TaskFromContext(ctx); ok {
			attrs = append(attrs,
				attribute.String("gorev.task_id", task.ID),
				attribute.String("gorev.task_name", task.Name),
			)
		}

		ctx, span := tracer.Start(ctx, "run_task",
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		return err
	}
}
