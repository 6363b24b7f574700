package xeventbus

import (
	"sync"
)

// consumerEntry pairs an address handler with the response shape captured at
// registration time. A nil shape means the handler declared no specific shape.
type consumerEntry struct {
	handler MessageHandler
	shape   Shape
}

// listenerEntry tags a topic handler with a registration id. Go function
// values are not comparable, so the id is the handler identity used for
// removal.
type listenerEntry struct {
	id      uint64
	handler EventHandler
}

// Registry is the registration table: address -> consumer and topic ->
// ordered listeners. A Registry is owned by exactly one Bus; there is no
// process-wide table. All mutation is serialized by the mutex, so it is safe
// to use from any goroutine.
type Registry struct {
	mu        sync.RWMutex
	consumers map[string]consumerEntry
	listeners map[string][]listenerEntry
	nextID    uint64
}

// NewRegistry returns an empty registration table.
func NewRegistry() *Registry {
	return &Registry{
		consumers: make(map[string]consumerEntry),
		listeners: make(map[string][]listenerEntry),
	}
}

// RegisterConsumer stores the single handler for an address. A second
// registration on an occupied address fails with AlreadyRegisteredError and
// leaves the table untouched.
func (r *Registry) RegisterConsumer(address string, handler MessageHandler, shape Shape) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.consumers[address]; ok {
		return &AlreadyRegisteredError{Address: address}
	}
	r.consumers[address] = consumerEntry{handler: handler, shape: shape}
	return nil
}

// LookupConsumer returns the handler and shape bound to an address.
func (r *Registry) LookupConsumer(address string) (MessageHandler, Shape, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.consumers[address]
	if !ok {
		return nil, nil, false
	}
	return entry.handler, entry.shape, true
}

// RemoveConsumer drops the entry for an address. Removing an absent address
// is a no-op.
func (r *Registry) RemoveConsumer(address string) {
	r.mu.Lock()
	delete(r.consumers, address)
	r.mu.Unlock()
}

// RegisterListener appends a handler to a topic's sequence, creating the
// sequence if absent, and returns the registration id used for removal.
// Insertion order determines the start order of listeners during a publish.
func (r *Registry) RegisterListener(topic string, handler EventHandler) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners[topic] = append(r.listeners[topic], listenerEntry{id: id, handler: handler})
	return id
}

// RemoveListener drops the registration with the given id from a topic's
// sequence. The topic entry itself is dropped once the sequence empties.
// Removing an unknown topic or id is a no-op.
func (r *Registry) RemoveListener(topic string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, ok := r.listeners[topic]
	if !ok {
		return
	}
	for i, e := range entries {
		if e.id == id {
			entries = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(entries) == 0 {
		delete(r.listeners, topic)
		return
	}
	r.listeners[topic] = entries
}

// ConsumerAddresses returns a snapshot of the currently registered addresses.
func (r *Registry) ConsumerAddresses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	addrs := make([]string, 0, len(r.consumers))
	for a := range r.consumers {
		addrs = append(addrs, a)
	}
	return addrs
}

// Listeners returns an ordered copy of a topic's handlers. Mutating the
// result does not affect the table.
func (r *Registry) Listeners(topic string) []EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.listeners[topic]
	if len(entries) == 0 {
		return nil
	}
	handlers := make([]EventHandler, len(entries))
	for i, e := range entries {
		handlers[i] = e.handler
	}
	return handlers
}
