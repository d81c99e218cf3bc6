package core

import (
	"context"
	"encoding/json"
	"time"
)

// Event, geçmişte gerçekleşmiş bir olayı (gerçeği) temsil eder.
// EventName, sıfır değer üzerinde de çağrılabilmelidir; abonelikler sırasında
// topic adı bu şekilde türetilir.
type Event interface {
	EventID() string
	EventName() string
	OccurredOn() time.Time
}

// EventHandler, belirli bir olayın nasıl işleneceğini tanımlar.
type EventHandler[E Event] interface {
	Handle(ctx context.Context, event E) error
}

// RawEventHandler consumes the serialized payload of one event topic. Decoding
// is the subscriber's concern; see SubscribeEvent.
type RawEventHandler func(ctx context.Context, payload []byte) error

// EventBus, olayları yayınlamak (publish) ve abone olmak (subscribe) için
// arayüzü tanımlar.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventName string, handler RawEventHandler) error
	Run(ctx context.Context) error
}

// SubscribeEvent, tip güvenli bir olay abonesi kaydetmek için kullanılan
// jenerik bir yardımcı fonksiyondur. E bir değer tipi olmalıdır; payload her
// mesajda yeni bir E üzerine unmarshal edilir.
func SubscribeEvent[E Event](bus EventBus, handler EventHandler[E]) error {
	var proto E
	return bus.Subscribe(proto.EventName(), func(ctx context.Context, payload []byte) error {
		var event E
		if err := json.Unmarshal(payload, &event); err != nil {
			return err
		}
		return handler.Handle(ctx, event)
	})
}
