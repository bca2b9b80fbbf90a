package asynq

import (
	"context"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("studiodesk/asynq")

// Traced wraps each task in a consumer span so handler logs carry a trace id.
func Traced(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		attrs := []attribute.KeyValue{attribute.String("messaging.operation.name", t.Type())}
		if id, ok := asynq.GetTaskID(ctx); ok {
			attrs = append(attrs, attribute.String("messaging.message.id", id))
		}
		if q, ok := asynq.GetQueueName(ctx); ok {
			attrs = append(attrs, attribute.String("messaging.destination.name", q))
		}

		ctx, span := tracer.Start(ctx, t.Type(),
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		err := next.ProcessTask(ctx, t)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	})
}
