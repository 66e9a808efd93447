package pulse

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sweeney/heater-control/internal/gpio"
)

// DefaultTick is the driver period; one budget unit.
const DefaultTick = 10 * time.Millisecond

// State is the driver's actuator state.
type State string

const (
	StateIdle    State = "IDLE"
	StatePulsing State = "PULSING"
)

// Driver toggles the pulse line once per tick while budget remains.
type Driver struct {
	budget  *Budget
	out     gpio.Output
	toggle  bool
	pulsing atomic.Bool
	ticks   atomic.Uint64
}

// NewDriver creates a driver spending budget on out.
func NewDriver(budget *Budget, out gpio.Output) *Driver {
	return &Driver{
		budget: budget,
		out:    out,
	}
}

// Tick performs one driver step. With budget left it spends one tick and
// writes the flipped toggle bit; otherwise the line keeps its last level.
// An output error is returned unchanged and is fatal to the run.
func (d *Driver) Tick() error {
	d.ticks.Add(1)
	if !d.budget.DecrementIfPositive() {
		d.pulsing.Store(false)
		return nil
	}
	d.toggle = !d.toggle
	if err := d.out.SetPulse(d.toggle); err != nil {
		d.pulsing.Store(false)
		return err
	}
	d.pulsing.Store(true)
	return nil
}

// Run raises the enable line once, then calls Tick on every tick until ctx is
// cancelled. On the way out the budget is zeroed so nothing can resume
// pulsing. Only an output failure produces an error.
func (d *Driver) Run(ctx context.Context, tick <-chan time.Time) error {
	defer d.budget.Store(0)

	if err := d.out.SetEnable(true); err != nil {
		return fmt.Errorf("enable heater: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			d.pulsing.Store(false)
			return nil
		case <-tick:
			if err := d.Tick(); err != nil {
				return fmt.Errorf("drive pulse: %w", err)
			}
		}
	}
}

// State returns Pulsing if the last tick spent budget.
func (d *Driver) State() State {
	if d.pulsing.Load() {
		return StatePulsing
	}
	return StateIdle
}

// Ticks returns how many ticks the driver has processed.
func (d *Driver) Ticks() uint64 {
	return d.ticks.Load()
}
