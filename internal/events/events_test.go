package events

import (
	"testing"
	"time"

	"github.com/sweeney/ledctl/internal/led"
)

func TestBusStateChanged(t *testing.T) {
	bus := New()
	received := make(chan StateChangedEvent, 1)

	unsub := bus.OnStateChanged(func(e StateChangedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(StateChangedEvent{
		State:  led.State{Pin: 18, Mode: led.ModePWM, Brightness: 40, Target: 40, MaxBrightness: 255},
		Reason: "settled",
	})

	select {
	case got := <-received:
		if got.State.Brightness != 40 {
			t.Errorf("Brightness: got %d, want 40", got.State.Brightness)
		}
		if got.Reason != "settled" {
			t.Errorf("Reason: got %q, want settled", got.Reason)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusCommandApplied(t *testing.T) {
	bus := New()
	received := make(chan CommandAppliedEvent, 1)

	unsub := bus.OnCommandApplied(func(e CommandAppliedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(CommandAppliedEvent{Op: "on", Source: "mqtt", Changed: true})

	select {
	case got := <-received:
		if got.Op != "on" || got.Source != "mqtt" || !got.Changed {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusSeparatesTypes(t *testing.T) {
	bus := New()
	states := make(chan StateChangedEvent, 1)

	unsub := bus.OnStateChanged(func(e StateChangedEvent) {
		states <- e
	})
	defer unsub()

	bus.Publish(CommandAppliedEvent{Op: "off"})

	select {
	case e := <-states:
		t.Fatalf("state subscriber received a command event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventTypes(t *testing.T) {
	if (StateChangedEvent{}).Type() == (CommandAppliedEvent{}).Type() {
		t.Error("event types must differ")
	}
}
