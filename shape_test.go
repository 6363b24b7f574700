package xeventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderCreated struct {
	OrderID string
	Amount  float64
}

func TestShapeOf_Satisfaction(t *testing.T) {
	s := ShapeOf[string]()
	assert.True(t, s.Satisfies("hi"))
	assert.False(t, s.Satisfies(42))
	assert.False(t, s.Satisfies(nil))
	assert.Equal(t, "string", s.Name())

	ptr := ShapeOf[*orderCreated]()
	assert.True(t, ptr.Satisfies(&orderCreated{}))
	assert.False(t, ptr.Satisfies(orderCreated{}))
	assert.Equal(t, "*xeventbus.orderCreated", ptr.Name())

	// An interface shape accepts any value assignable to it.
	anyShape := ShapeOf[any]()
	assert.True(t, anyShape.Satisfies("x"))
	assert.True(t, anyShape.Satisfies(1))
}

func TestNewShape_Predicate(t *testing.T) {
	positive := NewShape("positive int", func(v any) bool {
		n, ok := v.(int)
		return ok && n > 0
	})
	assert.True(t, positive.Satisfies(1))
	assert.False(t, positive.Satisfies(-1))
	assert.False(t, positive.Satisfies("1"))
	assert.Equal(t, "positive int", positive.Name())

	// A nil predicate is satisfied by everything.
	open := NewShape("open", nil)
	assert.True(t, open.Satisfies(struct{}{}))
}

func TestRegisterConsumerOf_InferredShape(t *testing.T) {
	bus := newTestBus(t)

	_, err := RegisterConsumerOf(bus, "orders.get",
		func(ctx context.Context, msg *Message) (*orderCreated, error) {
			return &orderCreated{OrderID: "o-1", Amount: 9.5}, nil
		})
	require.NoError(t, err)

	resp, err := bus.Request(context.Background(), "orders.get", nil)
	require.NoError(t, err)
	order, ok := resp.(*orderCreated)
	require.True(t, ok)
	assert.Equal(t, "o-1", order.OrderID)

	// The captured shape is visible through the registry.
	_, shape, ok := bus.registry.LookupConsumer("orders.get")
	require.True(t, ok)
	assert.Equal(t, "*xeventbus.orderCreated", shape.Name())
}

func TestRegisterConsumerOf_InterfaceReturnMismatch(t *testing.T) {
	bus := newTestBus(t)

	// With an interface return type the compile-time guarantee is gone, so
	// the value predicate does the work.
	type replier interface{ Reply() string }
	_, err := RegisterConsumerOf(bus, "iface.address",
		func(ctx context.Context, msg *Message) (replier, error) {
			return nil, nil
		})
	require.NoError(t, err)

	_, err = bus.Request(context.Background(), "iface.address", nil)
	var exec *HandlerExecutionError
	require.ErrorAs(t, err, &exec)
	var invalid *InvalidTypeError
	require.ErrorAs(t, err, &invalid)
}
