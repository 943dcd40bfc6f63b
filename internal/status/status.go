// Package status provides a thread-safe status tracker for the ledctl daemon.
// It is written by the control loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ledctl/internal/led"
)

// Config contains daemon configuration for display.
type Config struct {
	Name            string
	Mode            string
	Driver          string
	Pin             string
	Broker          string
	HTTPAddr        string
	HeartbeatS      int
	FlashIntervalMs uint32
	FadeIntervalMs  uint32
}

// Counts tallies commands seen by the control loop.
type Counts struct {
	Commands  int // every command received
	Changed   int // applied and changed the channel
	Unchanged int // applied but already satisfied
	Rejected  int // failed to parse or validate
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         led.State
	Ready         bool
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest channel state and marks the daemon ready.
// Called from runLoop whenever the channel changes.
func (t *Tracker) Update(state led.State) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Ready = true
	t.mu.Unlock()
}

// RecordCommand counts one command. err non-nil means it was rejected.
func (t *Tracker) RecordCommand(changed bool, err error) {
	t.mu.Lock()
	t.snap.Counts.Commands++
	switch {
	case err != nil:
		t.snap.Counts.Rejected++
	case changed:
		t.snap.Counts.Changed++
	default:
		t.snap.Counts.Unchanged++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
