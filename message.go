package xeventbus

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Message is the immutable envelope carrying a single request across the bus.
// Fields are set at construction and never mutated afterwards.
type Message struct {
	id           string
	body         any
	replyAddress string
}

// NewMessage wraps a payload in a fresh envelope. A nil body is a valid
// "null request".
func NewMessage(body any) *Message {
	return &Message{id: newMessageID(), body: body}
}

// NewMessageWithReply wraps a payload and records the address the handler
// should route a follow-up request back to. The bus never auto-routes replies;
// reading and using the field is the handler's responsibility.
func NewMessageWithReply(body any, replyAddress string) *Message {
	return &Message{id: newMessageID(), body: body, replyAddress: replyAddress}
}

// ID returns the unique identifier assigned at construction.
func (m *Message) ID() string { return m.id }

// Body returns the payload; nil when the request carried none.
func (m *Message) Body() any { return m.body }

// ReplyAddress returns the reply-routing hint, or "" when the sender expects none.
func (m *Message) ReplyAddress() string { return m.replyAddress }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newMessageID returns a 128-bit ULID encoded as a 26-character string.
func newMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
