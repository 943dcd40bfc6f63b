package gpio

import "log"

// LogDriver logs every write instead of touching hardware.
type LogDriver struct {
	Pin     int
	HighRes bool // whether EnableHighResolution succeeds
}

func (d *LogDriver) ConfigureOutput() {
	log.Printf("gpio: pin %d configured as output", d.Pin)
}

func (d *LogDriver) WriteDigital(high bool) {
	log.Printf("gpio: pin %d digital %v", d.Pin, high)
}

func (d *LogDriver) WriteAnalog(duty uint8) {
	log.Printf("gpio: pin %d analog %d/255", d.Pin, duty)
}

func (d *LogDriver) WriteHighResolution(duty uint16) {
	log.Printf("gpio: pin %d high-res %d/65535", d.Pin, duty)
}

func (d *LogDriver) EnableHighResolution() bool {
	log.Printf("gpio: pin %d high-res requested (supported=%v)", d.Pin, d.HighRes)
	return d.HighRes
}

func (d *LogDriver) Close() error { return nil }
