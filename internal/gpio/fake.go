package gpio

import "sync"

// FakeOutput is a test double that records every line write.
// Safe for concurrent use: the driver writes while tests read.
type FakeOutput struct {
	mu sync.Mutex

	enable      bool
	pulse       bool
	enableCalls int
	pulses      []bool
	closed      bool

	// PulseError, if set, is returned by SetPulse.
	PulseError error

	// EnableError, if set, is returned by SetEnable.
	EnableError error
}

// NewFakeOutput creates a FakeOutput with both lines low.
func NewFakeOutput() *FakeOutput {
	return &FakeOutput{}
}

// SetEnable records the enable level.
func (f *FakeOutput) SetEnable(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnableError != nil {
		return f.EnableError
	}
	f.enable = on
	f.enableCalls++
	return nil
}

// SetPulse records the pulse level.
func (f *FakeOutput) SetPulse(high bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PulseError != nil {
		return f.PulseError
	}
	f.pulse = high
	f.pulses = append(f.pulses, high)
	return nil
}

// Close drives both lines low and marks the output closed.
func (f *FakeOutput) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enable = false
	f.pulse = false
	f.closed = true
	return nil
}

// Enabled returns the current enable level.
func (f *FakeOutput) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enable
}

// EnableCalls returns how many times SetEnable succeeded.
func (f *FakeOutput) EnableCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enableCalls
}

// Pulse returns the current pulse level.
func (f *FakeOutput) Pulse() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pulse
}

// Pulses returns a copy of every pulse level written, in order.
func (f *FakeOutput) Pulses() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.pulses))
	copy(out, f.pulses)
	return out
}

// Closed reports whether Close was called.
func (f *FakeOutput) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
