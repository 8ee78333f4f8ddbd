package event

import (
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	metadataEventID   = "event_id"
	metadataEventName = "event_name"
)

// OTelMiddleware opens a consumer span per delivered engine event. The
// parent comes from the metadata TraceContextDecorator injected.
func OTelMiddleware(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx := otel.GetTextMapPropagator().Extract(msg.Context(), propagation.MapCarrier(msg.Metadata))
		eventName := msg.Metadata.Get(metadataEventName)

		ctx, span := otel.Tracer("engine-event-bus").Start(ctx, "handle "+eventName,
			trace.WithAttributes(
				attribute.String("messaging.system", "watermill"),
				attribute.String("messaging.message_id", msg.UUID),
				attribute.String("messaging.destination", message.SubscribeTopicFromCtx(msg.Context())),
				attribute.String("mathengine.event_id", msg.Metadata.Get(metadataEventID)),
				attribute.String("mathengine.handler", message.HandlerNameFromCtx(msg.Context())),
			),
			trace.WithSpanKind(trace.SpanKindConsumer),
		)
		defer span.End()

		msg.SetContext(ctx)

		msgs, err := h(msg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return msgs, err
	}
}

// TraceContextDecorator writes the publisher's trace context into message
// metadata so it survives the hop to the handler.
func TraceContextDecorator(pub message.Publisher) (message.Publisher, error) {
	return &traceContextPublisher{pub}, nil
}

type traceContextPublisher struct {
	message.Publisher
}

func (t *traceContextPublisher) Publish(topic string, messages ...*message.Message) error {
	for _, msg := range messages {
		otel.GetTextMapPropagator().Inject(msg.Context(), propagation.MapCarrier(msg.Metadata))
	}
	return t.Publisher.Publish(topic, messages...)
}
