//go:build linux

package gpio

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// RealDriver switches an LED on a GPIO character device line.
// The character device has no PWM, so analog writes are rendered on/off.
type RealDriver struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	pin  int
}

// NewRealDriver opens the chip. The line is requested by ConfigureOutput.
func NewRealDriver(chipName string, pin int) (*RealDriver, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealDriver{chip: chip, pin: pin}, nil
}

// ConfigureOutput requests the line as an output, initially low.
// A line that is already held is reconfigured instead.
func (d *RealDriver) ConfigureOutput() {
	if d.line != nil {
		if err := d.line.Reconfigure(gpiocdev.AsOutput(0)); err != nil {
			log.Printf("gpio: reconfigure pin %d: %v", d.pin, err)
		}
		return
	}
	line, err := d.chip.RequestLine(d.pin, gpiocdev.AsOutput(0))
	if err != nil {
		log.Printf("gpio: request pin %d: %v", d.pin, err)
		return
	}
	d.line = line
}

// WriteDigital drives the line high or low.
func (d *RealDriver) WriteDigital(high bool) {
	if d.line == nil {
		return
	}
	v := 0
	if high {
		v = 1
	}
	if err := d.line.SetValue(v); err != nil {
		log.Printf("gpio: set pin %d: %v", d.pin, err)
	}
}

// WriteAnalog switches the line on for any non-zero duty.
func (d *RealDriver) WriteAnalog(duty uint8) {
	d.WriteDigital(duty >= analogThreshold)
}

// WriteHighResolution switches the line on for any non-zero duty.
func (d *RealDriver) WriteHighResolution(duty uint16) {
	d.WriteDigital(duty >= analogThreshold)
}

// EnableHighResolution always fails: character device lines have no timer.
func (d *RealDriver) EnableHighResolution() bool {
	return false
}

// Close drives the LED low and returns the line to input with pull-down
// (the Raspberry Pi boot default) before releasing it.
func (d *RealDriver) Close() error {
	var errs []error

	if d.line != nil {
		if err := d.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear pin %d: %w", d.pin, err))
		}
		if err := d.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", d.pin, err))
		}
		if err := d.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", d.pin, err))
		}
	}
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
