package mqtt

import "sync"

// FakePublisher records published events and delivers scripted commands.
// Safe for concurrent use; read recorded events through the accessor methods
// while other goroutines may still publish.
type FakePublisher struct {
	mu sync.Mutex

	// Recorded events and their JSON payloads.
	stateEvents []StateEvent

	systemEvents []SystemEvent

	payloads [][]byte

	handler func([]byte)

	// PublishError, if set, will be returned by PublishState.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishState records the state event.
func (f *FakePublisher) PublishState(event StateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.stateEvents = append(f.stateEvents, event)
	f.payloads = append(f.payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	f.systemEvents = append(f.systemEvents, event)
	return nil
}

// Subscribe stores the handler for Deliver.
func (f *FakePublisher) Subscribe(handler func(payload []byte)) error {
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return nil
}

// Deliver passes payload to the subscribed handler as if it arrived on the
// command topic. Reports false if nothing is subscribed.
func (f *FakePublisher) Deliver(payload []byte) bool {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return false
	}
	h(payload)
	return true
}

// StateEvents returns a copy of the recorded state events.
func (f *FakePublisher) StateEvents() []StateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StateEvent(nil), f.stateEvents...)
}

// SystemEvents returns a copy of the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// Payloads returns a copy of the recorded state payloads.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events and the subscription.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stateEvents = nil
	f.systemEvents = nil
	f.payloads = nil
	f.handler = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
