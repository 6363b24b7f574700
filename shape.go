package xeventbus

import (
	"context"
	"fmt"
	"reflect"
)

// shapeFn is the plain-predicate Shape implementation behind NewShape.
type shapeFn struct {
	name  string
	check func(v any) bool
}

func (s shapeFn) Satisfies(v any) bool {
	if s.check == nil {
		return true
	}
	return s.check(v)
}

func (s shapeFn) Name() string { return s.name }

// NewShape adapts a named predicate to the Shape interface.
func NewShape(name string, satisfies func(v any) bool) Shape {
	return shapeFn{name: name, check: satisfies}
}

// typeShape is satisfied by any value assignable to R. The check is an
// ordinary type assertion; reflection is used only to render the name.
type typeShape[R any] struct{}

func (typeShape[R]) Satisfies(v any) bool {
	_, ok := v.(R)
	return ok
}

func (typeShape[R]) Name() string {
	return reflect.TypeOf((*R)(nil)).Elem().String()
}

// ShapeOf returns the Shape describing values assignable to R.
func ShapeOf[R any]() Shape {
	return typeShape[R]{}
}

// RegisterConsumerOf registers a typed handler on an address. The expected
// response shape is inferred from the handler's declared return type at
// compile time; replies that do not satisfy it (possible when R is an
// interface type) fail the request with a HandlerExecutionError.
func RegisterConsumerOf[R any](b *Bus, address string, handler func(ctx context.Context, msg *Message) (R, error)) (*Consumer, error) {
	wrapped := func(ctx context.Context, msg *Message) (any, error) {
		v, err := handler(ctx, msg)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	return b.RegisterConsumerWithShape(address, wrapped, ShapeOf[R]())
}

// actualTypeName renders the dynamic type of a reply for error reports.
func actualTypeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
