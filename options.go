package xeventbus

import "time"

// DefaultTimeout bounds a request when the caller supplies no options.
const DefaultTimeout = 30 * time.Second

// DeliveryOptions configures a single Request call.
type DeliveryOptions struct {
	// Timeout is how long the dispatcher waits for a reply before the in-flight
	// handler is cancelled. Non-positive values fall back to the bus default.
	Timeout time.Duration
	// RetryAttempts is part of the delivery configuration surface but the
	// dispatch path performs no retries; see RetryMiddleware for opt-in retries.
	RetryAttempts int
}

// DefaultDeliveryOptions returns the options used when a Request call passes none.
func DefaultDeliveryOptions() DeliveryOptions {
	return DeliveryOptions{Timeout: DefaultTimeout}
}

// normalize resolves zero values against the bus-level defaults.
func (o DeliveryOptions) normalize(fallback time.Duration) DeliveryOptions {
	if o.Timeout <= 0 {
		o.Timeout = fallback
	}
	if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}
	return o
}
