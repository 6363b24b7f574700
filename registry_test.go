package xeventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopHandler(ctx context.Context, msg *Message) (any, error) { return nil, nil }

func nopListener(ctx context.Context, body any) error { return nil }

func TestRegistry_ConsumerUniqueness(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterConsumer("a", nopHandler, nil))

	err := r.RegisterConsumer("a", nopHandler, nil)
	var dup *AlreadyRegisteredError
	require.ErrorAs(t, err, &dup)

	// Failed registration must not disturb the existing entry.
	_, _, ok := r.LookupConsumer("a")
	assert.True(t, ok)
	assert.ElementsMatch(t, []string{"a"}, r.ConsumerAddresses())
}

func TestRegistry_RemoveConsumerTolerant(t *testing.T) {
	r := NewRegistry()

	r.RemoveConsumer("missing")

	require.NoError(t, r.RegisterConsumer("a", nopHandler, nil))
	r.RemoveConsumer("a")
	r.RemoveConsumer("a")

	_, _, ok := r.LookupConsumer("a")
	assert.False(t, ok)
}

func TestRegistry_ListenerOrderPreserved(t *testing.T) {
	r := NewRegistry()

	var order []int
	mk := func(n int) EventHandler {
		return func(ctx context.Context, body any) error {
			order = append(order, n)
			return nil
		}
	}

	r.RegisterListener("t", mk(1))
	r.RegisterListener("t", mk(2))
	r.RegisterListener("t", mk(3))

	for _, h := range r.Listeners("t") {
		require.NoError(t, h(context.Background(), nil))
	}
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestRegistry_RemoveListenerDropsEmptyTopic(t *testing.T) {
	r := NewRegistry()

	id1 := r.RegisterListener("t", nopListener)
	id2 := r.RegisterListener("t", nopListener)
	require.Len(t, r.Listeners("t"), 2)

	r.RemoveListener("t", id1)
	require.Len(t, r.Listeners("t"), 1)

	// Already removed: no-op, no error.
	r.RemoveListener("t", id1)
	r.RemoveListener("unknown.topic", id1)

	r.RemoveListener("t", id2)
	assert.Empty(t, r.Listeners("t"))
}

func TestRegistry_LookupReturnsShape(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.RegisterConsumer("typed", nopHandler, ShapeOf[string]()))

	_, shape, ok := r.LookupConsumer("typed")
	require.True(t, ok)
	require.NotNil(t, shape)
	assert.Equal(t, "string", shape.Name())
}
