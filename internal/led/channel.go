package led

// Channel owns all mutable state for one LED.
// Not safe for concurrent use: commands and Update must come from one goroutine.
type Channel struct {
	pin    int
	driver Driver
	clock  Clock
	timing Timing

	pwm           bool
	extended      bool
	maxBrightness uint16
	brightness    uint16
	target        uint16

	// Remaining half-toggles of a flash burst. At most one is non-zero.
	flashOffs uint16
	flashOns  uint16

	// Start of the current flash half-period or fade step (Clock millis).
	eventStart uint32
	busy       bool
}

// NewChannel creates a channel for pin. Nothing is written to the driver
// until one of the Init methods is called.
func NewChannel(pin int, driver Driver, clock Clock, timing Timing) *Channel {
	return &Channel{
		pin:           pin,
		driver:        driver,
		clock:         clock,
		timing:        timing,
		maxBrightness: StandardMaxBrightness,
	}
}

// Init configures the pin as a binary output and switches it on or off.
func (c *Channel) Init(defaultOn bool) {
	c.driver.ConfigureOutput()
	c.pwm = false
	c.extended = false
	c.maxBrightness = BinaryMaxBrightness
	c.flashOffs, c.flashOns = 0, 0
	if defaultOn {
		c.On()
	} else {
		c.Off()
	}
}

// InitPWM enables continuous brightness and pushes defaultBrightness to the
// pin immediately. The ceiling is StandardMaxBrightness unless InitPWMExtended
// already raised it.
func (c *Channel) InitPWM(defaultBrightness uint16) {
	c.driver.ConfigureOutput()
	if !c.extended {
		c.maxBrightness = StandardMaxBrightness
	}
	c.pwm = true
	c.flashOffs, c.flashOns = 0, 0
	level := c.clamp(defaultBrightness)
	c.brightness = level
	c.target = level
	c.SetPWM(level)
}

// InitPWMExtended switches the pin's timer to high resolution, raises the
// ceiling to ExtendedMaxBrightness and then behaves like InitPWM.
// If the pin has no high-resolution timer nothing changes and it returns false.
func (c *Channel) InitPWMExtended(defaultBrightness uint16) bool {
	if !c.driver.EnableHighResolution() {
		return false
	}
	c.extended = true
	c.maxBrightness = ExtendedMaxBrightness
	c.InitPWM(defaultBrightness)
	return true
}

// SetPWM writes level to the pin without touching channel state.
// Above the 8-bit ceiling it goes through the high-resolution path,
// otherwise through the LinearAppearance table.
func (c *Channel) SetPWM(level uint16) {
	level = c.clamp(level)
	if c.maxBrightness > StandardMaxBrightness {
		c.driver.WriteHighResolution(HighResDuty(level))
		return
	}
	c.driver.WriteAnalog(LinearAppearance[level])
}

// On sets brightness and target to the ceiling.
func (c *Channel) On() {
	c.brightness = c.maxBrightness
	c.target = c.maxBrightness
	c.write(c.maxBrightness)
}

// Off drives the pin low directly, bypassing PWM, and zeroes brightness and target.
func (c *Channel) Off() {
	c.driver.WriteDigital(false)
	c.brightness = 0
	c.target = 0
}

// SetBrightness jumps straight to level. Returns false if already there.
func (c *Channel) SetBrightness(level uint16) bool {
	level = c.clamp(level)
	if c.brightness == level {
		return false
	}
	c.brightness = level
	c.target = level
	c.write(level)
	return true
}

// FlashOff blinks the LED off n times, starting now, and ends back at the
// current brightness. Only valid while the LED is lit.
func (c *Channel) FlashOff(n uint8) bool {
	if n == 0 || c.brightness == 0 {
		return false
	}
	c.flashOffs = 2*uint16(n) - 1
	c.flashOns = 0
	c.write(0)
	c.eventStart = c.clock.Millis()
	return true
}

// FlashOn blinks the LED fully on n times, starting now, and ends back at
// the current brightness. Only valid below the ceiling.
func (c *Channel) FlashOn(n uint8) bool {
	if n == 0 || c.brightness == c.maxBrightness {
		return false
	}
	c.flashOns = 2*uint16(n) - 1
	c.flashOffs = 0
	c.write(c.maxBrightness)
	c.eventStart = c.clock.Millis()
	return true
}

// FadeIncrement moves the fade target by delta, clamped to [0, MaxBrightness].
// Returns true if a fade will happen.
func (c *Channel) FadeIncrement(delta int) bool {
	// Compare against the headroom so huge deltas cannot overflow.
	switch {
	case delta > int(c.maxBrightness)-int(c.target):
		c.target = c.maxBrightness
	case delta < -int(c.target):
		c.target = 0
	default:
		c.target = uint16(int(c.target) + delta)
	}
	if c.target == c.brightness {
		return false
	}
	c.eventStart = c.clock.Millis()
	return true
}

// FadeTo sets the fade target. Returns true if a fade will happen.
func (c *Channel) FadeTo(target uint16) bool {
	c.target = c.clamp(target)
	return c.target != c.brightness
}

// Update advances whichever timed behaviour is active and reports whether
// the channel is busy. Flashing always wins over fading. Call it often;
// it never blocks and writes the pin at most once.
func (c *Channel) Update() bool {
	now := c.clock.Millis()
	elapsed := now - c.eventStart // wraparound-safe

	switch {
	case c.flashOffs > 0:
		if elapsed >= c.timing.FlashInterval {
			if c.flashOffs%2 == 0 {
				c.write(0)
			} else {
				c.write(c.brightness)
			}
			c.flashOffs--
			c.eventStart = now
		}
		c.busy = true

	case c.flashOns > 0:
		if elapsed >= c.timing.FlashInterval {
			if c.flashOns%2 == 0 {
				c.write(c.maxBrightness)
			} else {
				c.write(c.brightness)
			}
			c.flashOns--
			c.eventStart = now
		}
		c.busy = true

	case c.pwm && c.brightness != c.target:
		if elapsed >= c.timing.FadeInterval {
			if c.target > c.brightness {
				c.brightness++
			} else {
				c.brightness--
			}
			c.SetPWM(c.brightness)
			c.eventStart = now
		}
		c.busy = true

	case c.brightness != c.target:
		// No fading without PWM.
		if c.target > c.brightness {
			c.On()
		} else {
			c.Off()
		}
		c.busy = true

	default:
		c.busy = false
	}
	return c.busy
}

// Pin returns the pin the channel was created for.
func (c *Channel) Pin() int { return c.pin }

// Brightness returns the current commanded level.
func (c *Channel) Brightness() uint16 { return c.brightness }

// Target returns the level the fade converges to.
func (c *Channel) Target() uint16 { return c.target }

// MaxBrightness returns the ceiling of the current mode.
func (c *Channel) MaxBrightness() uint16 { return c.maxBrightness }

// PWMEnabled reports whether brightness is continuous.
func (c *Channel) PWMEnabled() bool { return c.pwm }

// Busy reports the result of the last Update.
func (c *Channel) Busy() bool { return c.busy }

// State returns a copy of the channel state.
func (c *Channel) State() State {
	return State{
		Pin:           c.pin,
		Mode:          c.mode(),
		Brightness:    c.brightness,
		Target:        c.target,
		MaxBrightness: c.maxBrightness,
		FlashOffs:     c.flashOffs,
		FlashOns:      c.flashOns,
		Busy:          c.busy,
	}
}

func (c *Channel) mode() Mode {
	switch {
	case !c.pwm:
		return ModeBinary
	case c.extended:
		return ModePWMExtended
	default:
		return ModePWM
	}
}

// write outputs level using whichever path the mode calls for.
func (c *Channel) write(level uint16) {
	if c.pwm {
		c.SetPWM(level)
		return
	}
	c.driver.WriteDigital(level > 0)
}

func (c *Channel) clamp(level uint16) uint16 {
	if level > c.maxBrightness {
		return c.maxBrightness
	}
	return level
}
