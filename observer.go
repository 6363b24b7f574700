package xeventbus

import (
	"time"

	"github.com/trickstertwo/xlog"
)

// EventType enumerates bus lifecycle events for the Observer pattern.
type EventType string

const (
	RequestStart  EventType = "request_start"
	RequestDone   EventType = "request_done"
	PublishStart  EventType = "publish_start"
	PublishDone   EventType = "publish_done"
	ListenerError EventType = "listener_error"
)

// BusEvent carries telemetry for observers.
type BusEvent struct {
	Type      EventType
	Address   string
	Topic     string
	MessageID string
	Listeners int
	Duration  time.Duration
	Err       error

	// Internal: attached for async dispatch
	observers []Observer
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(e BusEvent)

func (f ObserverFunc) OnEvent(e BusEvent) { f(e) }

// LoggingObserver emits BusEvents via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnEvent(e BusEvent) {
	if o.Logger == nil {
		return
	}
	lg := o.Logger.With(
		xlog.Str("type", string(e.Type)),
		xlog.Str("address", e.Address),
		xlog.Str("topic", e.Topic),
		xlog.Str("message_id", e.MessageID),
	)
	switch e.Type {
	case ListenerError:
		lg.Warn().Err(e.Err).Msg("xeventbus event")
	case RequestDone:
		if e.Err != nil {
			lg.With(xlog.Dur("duration", e.Duration)).Warn().Err(e.Err).Msg("xeventbus event")
			return
		}
		lg.With(xlog.Dur("duration", e.Duration)).Debug().Msg("xeventbus event")
	default:
		if e.Duration > 0 {
			lg = lg.With(xlog.Dur("duration", e.Duration))
		}
		lg.Debug().Msg("xeventbus event")
	}
}
