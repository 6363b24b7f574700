package xeventbus

// Consumer is the capability token returned by consumer registration. It
// holds just enough identity to revoke its own registration.
type Consumer struct {
	bus     *Bus
	address string
}

// Address returns the address this consumer is registered on.
func (c *Consumer) Address() string { return c.address }

// Unregister removes the consumer from the bus. Calling it after the address
// has already been cleared removes nothing.
func (c *Consumer) Unregister() {
	c.bus.registry.RemoveConsumer(c.address)
}

// Listener is the capability token returned by listener registration.
type Listener struct {
	bus   *Bus
	topic string
	id    uint64
}

// Topic returns the topic this listener is registered on.
func (l *Listener) Topic() string { return l.topic }

// Unregister removes exactly this registration from the topic's sequence.
// Calling it twice is a no-op, not an error.
func (l *Listener) Unregister() {
	l.bus.registry.RemoveListener(l.topic, l.id)
}
