//go:build !linux

package gpio

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(chipName string, pin int) (*RealDriver, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

func (d *RealDriver) ConfigureOutput()                {}
func (d *RealDriver) WriteDigital(high bool)          {}
func (d *RealDriver) WriteAnalog(duty uint8)          {}
func (d *RealDriver) WriteHighResolution(duty uint16) {}
func (d *RealDriver) EnableHighResolution() bool      { return false }

// Close is a no-op on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
