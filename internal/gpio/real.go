//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives actual hardware using the Linux GPIO character device.
type RealOutput struct {
	chip   *gpiocdev.Chip
	enable *gpiocdev.Line
	pulse  *gpiocdev.Line
}

// NewRealOutput requests the enable and pulse lines as outputs, both low.
func NewRealOutput(chipName string, pinEnable, pinPulse int) (*RealOutput, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	enable, err := chip.RequestLine(pinEnable, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("heater-enable"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request enable pin %d: %w", pinEnable, err)
	}

	pulse, err := chip.RequestLine(pinPulse, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("heater-pulse"))
	if err != nil {
		enable.Close()
		chip.Close()
		return nil, fmt.Errorf("request pulse pin %d: %w", pinPulse, err)
	}

	return &RealOutput{
		chip:   chip,
		enable: enable,
		pulse:  pulse,
	}, nil
}

// SetEnable drives the enable line.
func (o *RealOutput) SetEnable(on bool) error {
	if err := o.enable.SetValue(level(on)); err != nil {
		return fmt.Errorf("set enable: %w", err)
	}
	return nil
}

// SetPulse drives the pulse line.
func (o *RealOutput) SetPulse(high bool) error {
	if err := o.pulse.SetValue(level(high)); err != nil {
		return fmt.Errorf("set pulse: %w", err)
	}
	return nil
}

// Close drives both lines low, then reconfigures them as inputs with pull-down
// (matching Pi boot defaults) before releasing them. The heater must never be
// left enabled by a dead process.
func (o *RealOutput) Close() error {
	var errs []error

	lines := []struct {
		name string
		line *gpiocdev.Line
	}{
		{"pulse", o.pulse},
		{"enable", o.enable},
	}
	for _, l := range lines {
		name, line := l.name, l.line
		if line == nil {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s pin: %w", name, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", name, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", name, err))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func level(b bool) int {
	if b {
		return 1
	}
	return 0
}
