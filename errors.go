package xeventbus

import (
	"fmt"
	"time"
)

// AlreadyRegisteredError reports a consumer registration on an occupied address.
type AlreadyRegisteredError struct {
	Address string
}

func (e *AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("handler already registered for address %q", e.Address)
}

// HandlerNotFoundError reports a request to an address with no consumer.
type HandlerNotFoundError struct {
	Address string
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for address %q", e.Address)
}

// HandlerTimeoutError reports a handler that did not reply within the deadline.
// The in-flight invocation has been cancelled by the time the error surfaces.
type HandlerTimeoutError struct {
	Address string
	Timeout time.Duration
}

func (e *HandlerTimeoutError) Error() string {
	return fmt.Sprintf("handler for address %q timed out after %s", e.Address, e.Timeout)
}

// HandlerExecutionError wraps a failure raised by the handler itself, including
// a recovered panic or a reply that failed the registered shape check.
type HandlerExecutionError struct {
	Address string
	Cause   error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler for address %q failed: %v", e.Address, e.Cause)
}

func (e *HandlerExecutionError) Unwrap() error { return e.Cause }

// InvalidTypeError describes a reply that did not satisfy the expected response
// shape. It surfaces as the cause of a HandlerExecutionError, not as its own
// top-level kind.
type InvalidTypeError struct {
	Address  string
	Expected string
	Actual   string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("handler for address %q returned an invalid type: expected %q, got %q",
		e.Address, e.Expected, e.Actual)
}

// ErrObserverPoolShutdownTimeout is returned by Close when the observer pool
// could not drain its queue within the shutdown grace period.
var ErrObserverPoolShutdownTimeout = fmt.Errorf("observer pool shutdown timed out")
