//go:build !linux

package gpio

import "errors"

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chipName string, pinEnable, pinPulse int) (*RealOutput, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// SetEnable is not implemented on non-Linux platforms.
func (o *RealOutput) SetEnable(on bool) error {
	return errors.New("gpio: not supported")
}

// SetPulse is not implemented on non-Linux platforms.
func (o *RealOutput) SetPulse(high bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutput) Close() error {
	return nil
}
