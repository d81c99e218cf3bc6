package event

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Deepreo/gorev/core"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/message/router/plugin"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// inMemory, core.EventBus arayüzünün watermill gochannel tabanlı
// implementasyonudur. Rapor ve kuyruk olayları süreç içinde dağıtılır.
type inMemory struct {
	router *message.Router
	pubSub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

func NewInMemory(sl *slog.Logger) (*inMemory, error) {
	logger := watermill.NewSlogLogger(sl)
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, err
	}
	// Not: PreserveContext true yaparak context'in event handler'lara geçmesini
	// sağlıyoruz. Trace bilgisinin olaylarla birlikte taşınması için gerekli.
	pubSub := gochannel.NewGoChannel(gochannel.Config{PreserveContext: true}, logger)
	router.AddPlugin(plugin.SignalsHandler)
	return &inMemory{router: router, pubSub: pubSub, logger: logger}, nil
}

func (b *inMemory) Use(middleware ...message.HandlerMiddleware) {
	b.router.AddMiddleware(middleware...)
}

func (b *inMemory) AddPublisherDecorator(decorators ...message.PublisherDecorator) {
	b.router.AddPublisherDecorators(decorators...)
}

func (b *inMemory) Publish(ctx context.Context, event core.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessageWithContext(ctx, watermill.NewUUID(), payload)
	return b.pubSub.Publish(event.EventName(), msg)
}

// Subscribe binds a raw handler to one topic. Payload decoding lives with the
// subscriber (core.SubscribeEvent), the bus only moves bytes.
func (b *inMemory) Subscribe(eventName string, handler core.RawEventHandler) error {
	b.router.AddNoPublisherHandler(
		eventName,
		eventName,
		b.pubSub,
		func(msg *message.Message) error {
			return handler(msg.Context(), msg.Payload)
		},
	)
	return nil
}

func (b *inMemory) Run(ctx context.Context) error {
	poisonQueueMiddleware, err := middleware.PoisonQueue(b.pubSub, "poison_queue")
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
		retryMiddleware.Middleware,
		poisonQueueMiddleware,
	)
	b.AddPublisherDecorator(TraceContextDecorator)

	return b.router.Run(ctx)
}
