// Package pwm drives an LED pin with hardware PWM through periph.io.
package pwm

import (
	"fmt"
	"log"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Output frequencies. Standard matches a typical 8-bit analog write; high
// resolution matches a 16-bit timer counting to 65535 in phase-correct mode.
const (
	StandardFrequency = 490 * physic.Hertz
	HighResFrequency  = 122 * physic.Hertz
)

// highResPins are the BCM pins wired to the hardware PWM block.
var highResPins = map[string]bool{
	"GPIO12": true,
	"GPIO13": true,
	"GPIO18": true,
	"GPIO19": true,
}

// HighResCapable reports whether the named pin can drive 16-bit output.
func HighResCapable(name string) bool {
	return highResPins[name]
}

// Driver writes LED levels to a periph.io output pin.
type Driver struct {
	pin gpio.PinOut

	// mu is held for the whole of a high-resolution write so a concurrent
	// reconfiguration never sees a partial update.
	mu      sync.Mutex
	highRes bool
}

// Open initialises the host drivers and looks the pin up by name (e.g. "GPIO18").
func Open(name string) (*Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("pwm: unknown pin %q", name)
	}
	return New(p), nil
}

// New wraps an already-resolved pin.
func New(pin gpio.PinOut) *Driver {
	return &Driver{pin: pin}
}

// ConfigureOutput drives the pin low.
func (d *Driver) ConfigureOutput() {
	if err := d.pin.Out(gpio.Low); err != nil {
		log.Printf("pwm: configure %s: %v", d.pin.Name(), err)
	}
}

// WriteDigital drives the pin fully high or low, stopping any PWM.
func (d *Driver) WriteDigital(high bool) {
	if err := d.pin.Out(gpio.Level(high)); err != nil {
		log.Printf("pwm: out %s: %v", d.pin.Name(), err)
	}
}

// WriteAnalog writes an 8-bit duty cycle at StandardFrequency.
func (d *Driver) WriteAnalog(duty uint8) {
	if err := d.pin.PWM(scale(uint64(duty), 255), StandardFrequency); err != nil {
		log.Printf("pwm: analog %s: %v", d.pin.Name(), err)
	}
}

// WriteHighResolution writes a 16-bit duty cycle at HighResFrequency.
func (d *Driver) WriteHighResolution(duty uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.highRes {
		log.Printf("pwm: high-res write on %s before EnableHighResolution", d.pin.Name())
		return
	}
	if err := d.pin.PWM(scale(uint64(duty), 65535), HighResFrequency); err != nil {
		log.Printf("pwm: high-res %s: %v", d.pin.Name(), err)
	}
}

// EnableHighResolution succeeds only on the hardware PWM pins.
func (d *Driver) EnableHighResolution() bool {
	if !HighResCapable(d.pin.Name()) {
		return false
	}
	d.mu.Lock()
	d.highRes = true
	d.mu.Unlock()
	return true
}

// Close drives the pin low.
func (d *Driver) Close() error {
	if err := d.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("pwm: close %s: %w", d.pin.Name(), err)
	}
	return nil
}

// scale maps v in [0, top] onto [0, gpio.DutyMax].
func scale(v, top uint64) gpio.Duty {
	return gpio.Duty(v * uint64(gpio.DutyMax) / top)
}
