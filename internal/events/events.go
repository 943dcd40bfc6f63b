// Package events broadcasts channel changes to the transports that report them.
package events

import (
	"time"

	"github.com/kelindar/event"

	"github.com/sweeney/ledctl/internal/led"
)

// Event type identifiers.
const (
	TypeStateChanged uint32 = iota + 1
	TypeCommandApplied
)

// Event is implemented by every event on the bus.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published when the channel settles or starts a new
// behaviour. Reason says what triggered it ("command", "settled", "startup").
type StateChangedEvent struct {
	Timestamp time.Time
	State     led.State
	Reason    string
}

func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// CommandAppliedEvent is published once per command handled by the loop.
type CommandAppliedEvent struct {
	Timestamp time.Time
	Op        string
	Source    string // "mqtt" or "http"
	Changed   bool
	Err       string
}

func (e CommandAppliedEvent) Type() uint32 { return TypeCommandApplied }

// Bus wraps a kelindar/event dispatcher.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an event bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish broadcasts ev to the subscribers of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case StateChangedEvent:
		event.Publish(b.dispatcher, e)
	case CommandAppliedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// OnStateChanged subscribes h and returns the unsubscribe function.
func (b *Bus) OnStateChanged(h func(StateChangedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}

// OnCommandApplied subscribes h and returns the unsubscribe function.
func (b *Bus) OnCommandApplied(h func(CommandAppliedEvent)) func() {
	return event.Subscribe(b.dispatcher, h)
}
