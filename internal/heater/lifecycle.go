package heater

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sweeney/heater-control/internal/gpio"
	"github.com/sweeney/heater-control/internal/logger"
	"github.com/sweeney/heater-control/internal/logic"
	"github.com/sweeney/heater-control/internal/notify"
	"github.com/sweeney/heater-control/internal/pulse"
	"github.com/sweeney/heater-control/internal/status"
)

// Default loop periods.
const (
	DefaultCycle = 500 * time.Millisecond
	DefaultTick  = pulse.DefaultTick
)

// Deps wires a run to its hardware and transports.
type Deps struct {
	Config   logic.Config
	Sensors  Sensors
	Output   gpio.Output
	Notifier notify.Notifier
	Tracker  *status.Tracker // optional
	RunID    string

	Cycle time.Duration
	Tick  time.Duration
	Now   func() time.Time

	// MonitorTick and DriverTick replace the internal tickers when set.
	MonitorTick <-chan time.Time
	DriverTick  <-chan time.Time
}

// Run is a started monitor and pulse driver pair.
type Run struct {
	monitor  *Monitor
	driver   *pulse.Driver
	budget   *pulse.Budget
	out      gpio.Output
	notifier notify.Notifier
	tracker  *status.Tracker

	group   *errgroup.Group
	cancel  context.CancelFunc
	tickers []*time.Ticker

	started atomic.Bool

	mu         sync.Mutex
	stopReason string

	waitOnce sync.Once
	err      error
}

// Start spawns the monitor and driver and returns immediately. The driver
// does not raise the enable line until the startup notification has gone
// out.
func Start(ctx context.Context, deps Deps) *Run {
	if deps.Cycle <= 0 {
		deps.Cycle = DefaultCycle
	}
	if deps.Tick <= 0 {
		deps.Tick = DefaultTick
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)

	budget := pulse.NewBudget()
	driver := pulse.NewDriver(budget, deps.Output)
	r := &Run{
		monitor:  NewMonitor(deps.Config, deps.Sensors, budget, deps.Notifier, deps.Tracker, driver, deps.RunID, deps.Now),
		driver:   driver,
		budget:   budget,
		out:      deps.Output,
		notifier: deps.Notifier,
		tracker:  deps.Tracker,
		group:    g,
		cancel:   cancel,
	}

	monitorTick := deps.MonitorTick
	if monitorTick == nil {
		t := time.NewTicker(deps.Cycle)
		r.tickers = append(r.tickers, t)
		monitorTick = t.C
	}
	driverTick := deps.DriverTick
	if driverTick == nil {
		t := time.NewTicker(deps.Tick)
		r.tickers = append(r.tickers, t)
		driverTick = t.C
	}

	ready := make(chan struct{})

	g.Go(func() error {
		if err := r.monitor.Announce(gctx); err != nil {
			if gctx.Err() != nil && errors.Is(err, context.Canceled) {
				logger.Info().Msg("stopped before heating started")
				return nil
			}
			return err
		}
		r.started.Store(true)
		close(ready)
		return r.monitor.Run(gctx, monitorTick)
	})

	g.Go(func() error {
		select {
		case <-ready:
		case <-gctx.Done():
			return nil
		}
		if err := driver.Run(gctx, driverTick); err != nil {
			return r.actuatorFault(gctx, err)
		}
		return nil
	})

	return r
}

// Stop requests a supervised shutdown. reason ends up in the final
// notification.
func (r *Run) Stop(reason string) {
	r.mu.Lock()
	if r.stopReason == "" {
		r.stopReason = reason
	}
	r.mu.Unlock()
	r.cancel()
}

// Wait joins both units, leaves the actuator in its safe state and returns
// the error that ended the run. A nil error means the run was stopped.
func (r *Run) Wait() error {
	r.waitOnce.Do(func() {
		err := r.group.Wait()
		r.cancel()
		for _, t := range r.tickers {
			t.Stop()
		}

		r.budget.Store(0)
		if cerr := r.out.Close(); cerr != nil {
			logger.Error().Err(cerr).Msg("failed to release heater output")
			if err == nil {
				err = fmt.Errorf("close output: %w", cerr)
			}
		}

		var fault *FaultError
		if err == nil || !errors.As(err, &fault) {
			r.announceStop(err)
		}
		r.err = err
	})
	return r.err
}

// Budget returns the pulse budget currently available to the driver.
func (r *Run) Budget() int {
	return r.budget.Load()
}

// Last returns the monitor's most recent decision. Only meaningful after Wait.
func (r *Run) Last() logic.Decision {
	return r.monitor.Last()
}

func (r *Run) actuatorFault(ctx context.Context, err error) error {
	r.budget.Store(0)
	msg := fmt.Sprintf("actuator fault: %v", err)
	logger.Error().Err(err).Msg("pulse driver failed")
	if r.tracker != nil {
		r.tracker.SetFault(logic.FaultActuator, msg)
	}
	r.monitor.sendBestEffort(ctx, notify.EventFault, msg)
	return &FaultError{Kind: logic.FaultActuator, Message: msg, Err: err}
}

// announceStop sends the "stopped" notification for runs that did not end
// on a fault. Runs that never announced themselves have nobody to tell.
func (r *Run) announceStop(err error) {
	if err != nil {
		logger.Error().Err(err).Msg("run ended")
		return
	}
	r.mu.Lock()
	reason := r.stopReason
	r.mu.Unlock()
	if reason == "" {
		reason = "cancelled"
	}
	logger.Info().Str("reason", reason).Msg("heating stopped")
	if !r.started.Load() {
		return
	}
	r.monitor.sendBestEffort(context.Background(), notify.EventStopped, logic.StoppedMessage(reason, r.monitor.Last()))
}
