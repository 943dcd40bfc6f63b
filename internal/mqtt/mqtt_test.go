package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/ledctl/internal/led"
)

func testState() led.State {
	return led.State{
		Pin:           18,
		Mode:          led.ModePWM,
		Brightness:    120,
		Target:        200,
		MaxBrightness: 255,
		Busy:          true,
	}
}

func TestTopicsFor(t *testing.T) {
	got := TopicsFor("desk")
	want := Topics{
		State:   "ledctl/desk/state",
		System:  "ledctl/desk/system",
		Command: "ledctl/desk/set",
	}
	if got != want {
		t.Errorf("TopicsFor: got %+v, want %+v", got, want)
	}
}

func TestFormatPayload(t *testing.T) {
	event := StateEvent{
		Timestamp: time.Date(2026, 1, 3, 14, 30, 0, 0, time.UTC),
		Reason:    "command",
		State:     testState(),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.LED.Timestamp != "2026-01-03T14:30:00Z" {
		t.Errorf("unexpected timestamp: %s", parsed.LED.Timestamp)
	}
	if parsed.LED.Phase != "fading" {
		t.Errorf("expected phase fading, got %s", parsed.LED.Phase)
	}
	if parsed.LED.Mode != "pwm" {
		t.Errorf("expected mode pwm, got %s", parsed.LED.Mode)
	}
	if parsed.LED.Brightness != 120 || parsed.LED.Target != 200 {
		t.Errorf("brightness/target: got %d/%d", parsed.LED.Brightness, parsed.LED.Target)
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	event := StateEvent{
		Timestamp: time.Date(2026, 1, 3, 14, 30, 0, 0, time.UTC),
		Reason:    "settled",
		State: led.State{
			Pin: 17, Mode: led.ModeBinary, Brightness: 1, Target: 1, MaxBrightness: 1,
		},
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"led":{"timestamp":"2026-01-03T14:30:00Z","reason":"settled","pin":17,"mode":"binary","phase":"idle","brightness":1,"target":1,"max_brightness":1,"flash_offs":0,"flash_ons":0,"busy":false}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("EST", -5*60*60)
	event := StateEvent{
		Timestamp: time.Date(2026, 1, 3, 9, 30, 0, 0, loc),
		State:     testState(),
	}

	payload, _ := FormatPayload(event)
	var parsed Payload
	json.Unmarshal(payload, &parsed)

	if parsed.LED.Timestamp != "2026-01-03T14:30:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.LED.Timestamp)
	}
	if parsed.LED.Reason != "" {
		t.Errorf("expected empty reason, got %q", parsed.LED.Reason)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnectedOmitsReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	system := parsed["system"].(map[string]interface{})
	if _, exists := system["reason"]; exists {
		t.Error("RECONNECTED should not have reason field")
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	event := StateEvent{Timestamp: time.Now(), Reason: "command", State: testState()}
	if err := f.PublishState(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := f.StateEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].State != event.State {
		t.Errorf("state mismatch: got %+v", events[0].State)
	}
	if len(f.Payloads()) != 1 {
		t.Errorf("expected 1 payload, got %d", len(f.Payloads()))
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")
	f.PublishSystemError = errors.New("broker down")

	if err := f.PublishState(StateEvent{State: testState()}); err == nil {
		t.Error("expected PublishState error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected PublishSystem error")
	}
	if len(f.StateEvents()) != 0 || len(f.SystemEvents()) != 0 {
		t.Error("failed publishes should not be recorded")
	}
}

func TestFakePublisherDeliver(t *testing.T) {
	f := NewFakePublisher()

	if f.Deliver([]byte(`{"op":"on"}`)) {
		t.Error("Deliver without a subscriber should report false")
	}

	var got []byte
	f.Subscribe(func(p []byte) { got = p })
	if !f.Deliver([]byte(`{"op":"on"}`)) {
		t.Fatal("Deliver should reach the subscriber")
	}
	if string(got) != `{"op":"on"}` {
		t.Errorf("handler got %q", got)
	}
}

func TestFakePublisherRecordsRetainedFlag(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "STARTUP", Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})

	events := f.SystemEvents()
	if len(events) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(events))
	}
	if !events[0].Retained {
		t.Error("first event should have Retained=true")
	}
	if events[1].Retained {
		t.Error("second event should have Retained=false")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.PublishState(StateEvent{State: testState()})
	f.PublishSystem(SystemEvent{Event: "STARTUP"})
	f.Subscribe(func([]byte) {})
	f.Connected = true
	f.Close()

	f.Reset()

	if len(f.StateEvents()) != 0 || len(f.SystemEvents()) != 0 || len(f.Payloads()) != 0 {
		t.Error("expected empty recordings after reset")
	}
	if f.Deliver([]byte("x")) {
		t.Error("subscription should be cleared by reset")
	}
	if f.Closed || f.IsConnected() {
		t.Error("flags should be cleared by reset")
	}
}
