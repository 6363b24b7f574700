package xeventbus

import (
	"context"
)

// MessageHandler processes a single request envelope and returns the reply value.
// A nil reply with a nil error is a legitimate "no response" answer.
type MessageHandler func(ctx context.Context, msg *Message) (any, error)

// EventHandler consumes a published payload. Listeners receive the raw body, not
// an envelope. A returned error is isolated and logged; it never reaches the
// publisher or the sibling listeners.
type EventHandler func(ctx context.Context, body any) error

// Middleware composes processing concerns around a MessageHandler.
type Middleware func(next MessageHandler) MessageHandler

// Shape is the expected-response descriptor captured at consumer registration.
// Satisfies is an ordinary value predicate; Name is used in error reports.
type Shape interface {
	Satisfies(v any) bool
	Name() string
}

// Observer receives bus lifecycle events. Implementations should be non-blocking.
type Observer interface {
	OnEvent(e BusEvent)
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete xeventbus surface for extensibility.
type API interface {
	RegisterConsumer(address string, handler MessageHandler) (*Consumer, error)
	RegisterConsumerWithShape(address string, handler MessageHandler, shape Shape) (*Consumer, error)
	RegisterListener(topic string, handler EventHandler) *Listener
	Request(ctx context.Context, address string, body any, opts ...DeliveryOptions) (any, error)
	Publish(ctx context.Context, topic string, body any)
	ConsumerAddresses() []string
	Listeners(topic string) []EventHandler
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var _ API = (*Bus)(nil)
