package xeventbus

import (
	"context"
	"sync"
)

var (
	defaultBus   *Bus
	defaultBusMu sync.Mutex
)

// Default returns the process-wide default Bus, building one on first use.
// The default is a convenience entry point only; its registration table is
// ordinary per-bus state like any other Bus.
func Default() *Bus {
	defaultBusMu.Lock()
	defer defaultBusMu.Unlock()

	if defaultBus == nil {
		defaultBus = NewBusBuilder().Build()
	}
	return defaultBus
}

// SetDefault replaces the process-wide default Bus.
func SetDefault(b *Bus) {
	if b == nil {
		panic("xeventbus: SetDefault called with nil Bus")
	}
	defaultBusMu.Lock()
	defaultBus = b
	defaultBusMu.Unlock()
}

// RegisterConsumer is the Facade using the default bus.
func RegisterConsumer(address string, handler MessageHandler) (*Consumer, error) {
	return Default().RegisterConsumer(address, handler)
}

// RegisterListener is the Facade using the default bus.
func RegisterListener(topic string, handler EventHandler) *Listener {
	return Default().RegisterListener(topic, handler)
}

// Request is the Facade using the default bus.
func Request(ctx context.Context, address string, body any, opts ...DeliveryOptions) (any, error) {
	return Default().Request(ctx, address, body, opts...)
}

// Publish is the Facade using the default bus.
func Publish(ctx context.Context, topic string, body any) {
	Default().Publish(ctx, topic, body)
}
