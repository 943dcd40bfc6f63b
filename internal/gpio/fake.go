package gpio

// WriteKind identifies which output path a write used.
type WriteKind string

const (
	WriteDigital WriteKind = "digital"
	WriteAnalog  WriteKind = "analog"
	WriteHighRes WriteKind = "highres"
)

// Write is a single recorded output write.
type Write struct {
	Kind  WriteKind
	Value int // 0/1 for digital, duty otherwise
}

// FakeDriver is a test double that records every write.
type FakeDriver struct {
	// Writes contains all writes in order.
	Writes []Write

	// Configured counts ConfigureOutput calls.
	Configured int

	// HighResCapable controls the result of EnableHighResolution.
	HighResCapable bool

	// HighResEnabled is set once EnableHighResolution succeeded.
	HighResEnabled bool

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver. highRes sets HighResCapable.
func NewFakeDriver(highRes bool) *FakeDriver {
	return &FakeDriver{HighResCapable: highRes}
}

// ConfigureOutput counts the call.
func (f *FakeDriver) ConfigureOutput() {
	f.Configured++
}

// WriteDigital records a digital write.
func (f *FakeDriver) WriteDigital(high bool) {
	v := 0
	if high {
		v = 1
	}
	f.Writes = append(f.Writes, Write{Kind: WriteDigital, Value: v})
}

// WriteAnalog records an 8-bit write.
func (f *FakeDriver) WriteAnalog(duty uint8) {
	f.Writes = append(f.Writes, Write{Kind: WriteAnalog, Value: int(duty)})
}

// WriteHighResolution records a 16-bit write.
func (f *FakeDriver) WriteHighResolution(duty uint16) {
	f.Writes = append(f.Writes, Write{Kind: WriteHighRes, Value: int(duty)})
}

// EnableHighResolution returns HighResCapable.
func (f *FakeDriver) EnableHighResolution() bool {
	if f.HighResCapable {
		f.HighResEnabled = true
	}
	return f.HighResCapable
}

// Last returns the most recent write, if any.
func (f *FakeDriver) Last() (Write, bool) {
	if len(f.Writes) == 0 {
		return Write{}, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Lit reports whether the last write left the pin driving the LED.
func (f *FakeDriver) Lit() bool {
	w, ok := f.Last()
	return ok && w.Value > 0
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// Reset forgets recorded writes. Capability settings are kept.
func (f *FakeDriver) Reset() {
	f.Writes = nil
	f.Configured = 0
	f.Closed = false
}
