// Package led contains the state machine for a single LED channel.
// This package has NO hardware dependencies: output goes through Driver and
// time comes from Clock, so every behaviour is testable with fakes.
package led

import "time"

// Driver sets the physical output of one pin.
// All methods are synchronous and must not block.
type Driver interface {
	// ConfigureOutput prepares the pin as an output. Called once per Init.
	ConfigureOutput()

	// WriteDigital drives the pin fully high or low.
	WriteDigital(high bool)

	// WriteAnalog writes an 8-bit PWM duty cycle.
	WriteAnalog(duty uint8)

	// WriteHighResolution writes a 16-bit compare value. Implementations
	// must not let a concurrent timer reload observe a half-written value.
	WriteHighResolution(duty uint16)

	// EnableHighResolution reconfigures the pin's timer for 16-bit output.
	// Returns false if the pin has no such timer.
	EnableHighResolution() bool
}

// Clock returns elapsed milliseconds since an arbitrary start.
// The value wraps at 2^32; callers compare with unsigned subtraction.
type Clock interface {
	Millis() uint32
}

// SystemClock is a Clock backed by the monotonic wall clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock that reads zero now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Millis returns milliseconds since the clock was created, truncated to 32 bits.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// Timing holds the step intervals of timed behaviours, in milliseconds.
type Timing struct {
	FlashInterval uint32 // half-period of a flash burst
	FadeInterval  uint32 // time per ±1 fade step
}

// DefaultTiming is 100ms flash half-periods and 1ms fade steps.
var DefaultTiming = Timing{FlashInterval: 100, FadeInterval: 1}
