// Package mqtt publishes LED state and receives LED commands over MQTT,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ledctl/internal/led"
)

// TopicPrefix is the root of every topic this daemon uses.
const TopicPrefix = "ledctl"

// Topics are the per-channel MQTT topics.
type Topics struct {
	State   string // retained channel state
	System  string // lifecycle events and LWT
	Command string // incoming command payloads
}

// TopicsFor returns the topics of the channel called name.
func TopicsFor(name string) Topics {
	base := TopicPrefix + "/" + name
	return Topics{
		State:   base + "/state",
		System:  base + "/system",
		Command: base + "/set",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishState sends the channel state to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishState(event StateEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers raw command payloads.
type Subscriber interface {
	// Subscribe registers handler for payloads on the command topic.
	// Handlers run on the client's goroutine and must not block.
	Subscribe(handler func(payload []byte)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// StateEvent is a channel state to publish.
type StateEvent struct {
	Timestamp time.Time
	Reason    string // e.g. "startup", "command", "settled"
	State     led.State
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT state message structure.
type Payload struct {
	LED LEDPayload `json:"led"`
}

// LEDPayload contains the channel state details.
type LEDPayload struct {
	Timestamp     string `json:"timestamp"`
	Reason        string `json:"reason,omitempty"`
	Pin           int    `json:"pin"`
	Mode          string `json:"mode"`
	Phase         string `json:"phase"`
	Brightness    uint16 `json:"brightness"`
	Target        uint16 `json:"target"`
	MaxBrightness uint16 `json:"max_brightness"`
	FlashOffs     uint16 `json:"flash_offs"`
	FlashOns      uint16 `json:"flash_ons"`
	Busy          bool   `json:"busy"`
}

// FormatPayload creates the JSON payload for a state event.
func FormatPayload(event StateEvent) ([]byte, error) {
	s := event.State
	payload := Payload{
		LED: LEDPayload{
			Timestamp:     event.Timestamp.UTC().Format(time.RFC3339),
			Reason:        event.Reason,
			Pin:           s.Pin,
			Mode:          string(s.Mode),
			Phase:         string(s.Phase()),
			Brightness:    s.Brightness,
			Target:        s.Target,
			MaxBrightness: s.MaxBrightness,
			FlashOffs:     s.FlashOffs,
			FlashOns:      s.FlashOns,
			Busy:          s.Busy,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
