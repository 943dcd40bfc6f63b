package led

// Mode is the output mode a channel was initialised in.
type Mode string

const (
	ModeBinary      Mode = "binary"
	ModePWM         Mode = "pwm"
	ModePWMExtended Mode = "pwm-extended"
)

// Phase names what Update will do next. It is derived from the counters and
// the brightness/target relationship; the channel stores no phase of its own.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseFlashingOff Phase = "flashing-off"
	PhaseFlashingOn  Phase = "flashing-on"
	PhaseFading      Phase = "fading"
	PhaseSnapping    Phase = "snapping"
)

// State is a point-in-time copy of a channel.
type State struct {
	Pin           int
	Mode          Mode
	Brightness    uint16
	Target        uint16
	MaxBrightness uint16
	FlashOffs     uint16
	FlashOns      uint16
	Busy          bool
}

// Phase returns the behaviour that has priority in this state.
func (s State) Phase() Phase {
	switch {
	case s.FlashOffs > 0:
		return PhaseFlashingOff
	case s.FlashOns > 0:
		return PhaseFlashingOn
	case s.Brightness != s.Target && s.Mode != ModeBinary:
		return PhaseFading
	case s.Brightness != s.Target:
		return PhaseSnapping
	default:
		return PhaseIdle
	}
}

// Settled reports whether nothing is left for Update to do.
func (s State) Settled() bool {
	return s.Phase() == PhaseIdle
}
