// Package gpio drives the heater's digital output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives the two heater control lines.
type Output interface {
	// SetEnable drives the enable line. Active = true.
	SetEnable(on bool) error

	// SetPulse drives the pulse line. The heater responds to edges, not levels.
	SetPulse(high bool) error

	// Close drives both lines low and releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinEnable = 12
	DefaultPinPulse  = 16
	DefaultChip      = "gpiochip0"
)
