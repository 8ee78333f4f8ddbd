package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/Deepreo/mathengine/core"
	"github.com/Deepreo/mathengine/errors"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const PoisonQueueTopic = "poison_queue"

// InMemory is a core.EventBus on a watermill gochannel pub/sub. Messages
// published to a topic without subscribers are dropped.
type InMemory struct {
	router    *message.Router
	pubSub    *gochannel.GoChannel
	publisher message.Publisher
	logger    watermill.LoggerAdapter

	mu       sync.Mutex
	handlers int
}

func NewInMemory(sl *slog.Logger) (*InMemory, error) {
	logger := watermill.NewSlogLogger(sl)
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 5 * time.Second}, logger)
	if err != nil {
		return nil, errors.InfraError(err)
	}
	// PreserveContext carries the publisher's context, and with it the trace,
	// into the handlers.
	pubSub := gochannel.NewGoChannel(gochannel.Config{PreserveContext: true}, logger)
	publisher, err := TraceContextDecorator(pubSub)
	if err != nil {
		return nil, errors.InfraError(err)
	}
	return &InMemory{router: router, pubSub: pubSub, publisher: publisher, logger: logger}, nil
}

func (b *InMemory) Use(middleware ...message.HandlerMiddleware) {
	b.router.AddMiddleware(middleware...)
}

func (b *InMemory) Publish(ctx context.Context, event core.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.AppError(fmt.Errorf("marshal %s: %w", event.EventName(), err))
	}
	msg := message.NewMessageWithContext(ctx, watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEventID, event.EventID())
	msg.Metadata.Set(metadataEventName, event.EventName())
	if err := b.publisher.Publish(event.EventName(), msg); err != nil {
		return errors.InfraError(fmt.Errorf("publish %s: %w", event.EventName(), err))
	}
	return nil
}

// Subscribe must be called before Run. Several handlers may subscribe to the
// same event; each gets every message.
func (b *InMemory) Subscribe(prototype core.Event, handler core.EventHandler[core.Event]) error {
	eventName := prototype.EventName()
	eventType := reflect.TypeOf(prototype)
	if eventType.Kind() == reflect.Ptr {
		eventType = eventType.Elem()
	}

	b.mu.Lock()
	b.handlers++
	handlerName := fmt.Sprintf("%s_%d", eventName, b.handlers)
	b.mu.Unlock()

	b.router.AddNoPublisherHandler(
		handlerName,
		eventName,
		b.pubSub,
		func(msg *message.Message) error {
			// A fresh instance per message; handlers may keep it.
			newEvent := reflect.New(eventType).Interface()
			if err := json.Unmarshal(msg.Payload, newEvent); err != nil {
				return err
			}
			evt, ok := newEvent.(core.Event)
			if !ok {
				return fmt.Errorf("%T does not implement core.Event", newEvent)
			}
			return handler.Handle(msg.Context(), evt)
		},
	)
	return nil
}

func (b *InMemory) Run(ctx context.Context) error {
	poisonQueueMiddleware, err := middleware.PoisonQueue(b.pubSub, PoisonQueueTopic)
	if err != nil {
		return err
	}

	retryMiddleware := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: time.Millisecond * 100,
		MaxInterval:     time.Second * 1,
		Multiplier:      2.0,
		Logger:          b.logger,
	}

	b.router.AddMiddleware(
		OTelMiddleware,
		poisonQueueMiddleware,
		retryMiddleware.Middleware,
	)

	return b.router.Run(ctx)
}

// Running is closed once the router has started its handlers.
func (b *InMemory) Running() chan struct{} {
	return b.router.Running()
}

func (b *InMemory) Close() error {
	routerErr := b.router.Close()
	return errors.Join(routerErr, b.pubSub.Close())
}
