package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Name          string     `json:"name"`
	LED           LEDJSON    `json:"led"`
	Ready         bool       `json:"ready"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"command_counts"`
	Config        ConfigJSON `json:"config"`
}

// LEDJSON is the JSON representation of the channel state.
type LEDJSON struct {
	Pin           int    `json:"pin"`
	Mode          string `json:"mode"`
	Phase         string `json:"phase"`
	Brightness    uint16 `json:"brightness"`
	Target        uint16 `json:"target"`
	MaxBrightness uint16 `json:"max_brightness"`
	Busy          bool   `json:"busy"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of command counts.
type CountsJSON struct {
	Commands  int `json:"commands"`
	Changed   int `json:"changed"`
	Unchanged int `json:"unchanged"`
	Rejected  int `json:"rejected"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode            string `json:"mode"`
	Driver          string `json:"driver"`
	Pin             string `json:"pin"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
	HeartbeatS      int    `json:"heartbeat_s"`
	FlashIntervalMs uint32 `json:"flash_interval_ms"`
	FadeIntervalMs  uint32 `json:"fade_interval_ms"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.State.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}
	phase := string(snap.State.Phase())
	if !snap.Ready {
		phase = "UNKNOWN"
	}

	return StatusInner{
		Name: snap.Config.Name,
		LED: LEDJSON{
			Pin:           snap.State.Pin,
			Mode:          mode,
			Phase:         phase,
			Brightness:    snap.State.Brightness,
			Target:        snap.State.Target,
			MaxBrightness: snap.State.MaxBrightness,
			Busy:          snap.State.Busy,
		},
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Commands:  snap.Counts.Commands,
			Changed:   snap.Counts.Changed,
			Unchanged: snap.Counts.Unchanged,
			Rejected:  snap.Counts.Rejected,
		},
		Config: ConfigJSON{
			Mode:            snap.Config.Mode,
			Driver:          snap.Config.Driver,
			Pin:             snap.Config.Pin,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			HeartbeatS:      snap.Config.HeartbeatS,
			FlashIntervalMs: snap.Config.FlashIntervalMs,
			FadeIntervalMs:  snap.Config.FadeIntervalMs,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
