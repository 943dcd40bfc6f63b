// Package gpio drives an LED pin through the Linux GPIO character device.
// The real implementation uses go-gpiocdev and can only switch the line on or off.
// The fake implementation records writes so the LED logic can be tested without hardware.
package gpio

// Defaults for the character device (BCM numbering on a Raspberry Pi).
const (
	DefaultChip = "gpiochip0"
	DefaultPin  = 17
)

// analogThreshold is the lowest duty cycle a binary line renders as on.
const analogThreshold = 1
