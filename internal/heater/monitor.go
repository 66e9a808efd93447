// Package heater runs the temperature monitor and pulse driver as one
// supervised unit.
package heater

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/heater-control/internal/logger"
	"github.com/sweeney/heater-control/internal/logic"
	"github.com/sweeney/heater-control/internal/notify"
	"github.com/sweeney/heater-control/internal/pulse"
	"github.com/sweeney/heater-control/internal/status"
)

// notifyTimeout bounds a single notification send.
const notifyTimeout = 10 * time.Second

// Sensors returns one sample per configured sensor.
type Sensors interface {
	ReadAll(ctx context.Context) map[string]logic.Sample
}

// FaultError ends a run on a safety verdict or an actuator failure.
type FaultError struct {
	Kind    logic.FaultKind
	Message string
	Err     error
}

func (e *FaultError) Error() string {
	return e.Message
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// Monitor is the per-cycle half of a run: read sensors, decide, publish
// the budget, notify.
type Monitor struct {
	sensors    Sensors
	controller *logic.Controller
	budget     *pulse.Budget
	notifier   notify.Notifier
	tracker    *status.Tracker
	driver     *pulse.Driver
	runID      string
	now        func() time.Time

	last logic.Decision
}

// NewMonitor creates a monitor whose run clock starts at now().
// tracker and driver may be nil.
func NewMonitor(cfg logic.Config, sensors Sensors, budget *pulse.Budget, notifier notify.Notifier,
	tracker *status.Tracker, driver *pulse.Driver, runID string, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		sensors:    sensors,
		controller: logic.NewController(cfg, now()),
		budget:     budget,
		notifier:   notifier,
		tracker:    tracker,
		driver:     driver,
		runID:      runID,
		now:        now,
	}
}

// Announce sends the "heating started" notification. A failure here means
// nobody would hear about a fault, so it is returned to abort the run.
func (m *Monitor) Announce(ctx context.Context) error {
	cfg := m.controller.Config()
	if err := m.send(ctx, notify.EventStarted, logic.StartedMessage(cfg)); err != nil {
		return fmt.Errorf("send startup notification: %w", err)
	}
	logger.Info().
		Str("run_id", m.runID).
		Float64("target", cfg.Target).
		Dur("time_limit", cfg.TimeLimit).
		Msg("heating started")
	return nil
}

// Cycle runs one monitor step. It returns a *FaultError when the
// supervisor ends the run; the budget is already zero by then. A cycle
// whose context is cancelled mid-read is discarded.
func (m *Monitor) Cycle(ctx context.Context) error {
	samples := m.sensors.ReadAll(ctx)
	// Reads abandoned by a stop are not sensor failures.
	if ctx.Err() != nil {
		return nil
	}
	d := m.controller.Process(logic.Input{Samples: samples, Time: m.now()})
	m.last = d

	m.budget.Store(d.Budget)
	m.report(d, samples)
	logger.Info().Msg(logic.StatusLine(samples, d, d.Budget))

	if d.Verdict.Fatal {
		m.budget.Store(0)
		logger.Error().
			Str("fault", string(d.Verdict.Fault)).
			Int("streak", d.Streak).
			Msg(d.Verdict.Message)
		m.sendBestEffort(ctx, notify.EventFault, d.Verdict.Message)
		return &FaultError{Kind: d.Verdict.Fault, Message: d.Verdict.Message}
	}

	if d.Verdict.Brake {
		logger.Warn().Float64("max", d.Verdict.Max).Msg("temperature rising too fast, heating paused")
	}

	if d.TargetReached {
		logger.Info().Float64("average", d.Average).Dur("elapsed", d.Elapsed).Msg("target reached")
		m.sendBestEffort(ctx, notify.EventTargetReached, logic.TargetReachedMessage(d))
	}
	return nil
}

// Run performs a cycle immediately and then one per tick until ctx is
// cancelled or a fault ends the run.
func (m *Monitor) Run(ctx context.Context, tick <-chan time.Time) error {
	if err := m.Cycle(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := m.Cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// Last returns the most recent decision.
func (m *Monitor) Last() logic.Decision {
	return m.last
}

func (m *Monitor) report(d logic.Decision, samples map[string]logic.Sample) {
	if m.tracker == nil {
		return
	}
	m.tracker.Update(d, samples, d.Budget)
	if m.driver != nil {
		m.tracker.SetDriverState(string(m.driver.State()))
	}
	if cs, ok := m.notifier.(notify.ConnectionStatus); ok {
		m.tracker.SetNotifierConnected(cs.IsConnected())
	}
}

func (m *Monitor) send(ctx context.Context, event notify.EventType, text string) error {
	ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	return m.notifier.Send(ctx, notify.Message{
		Timestamp: m.now(),
		RunID:     m.runID,
		Event:     event,
		Text:      text,
	})
}

// sendBestEffort delivers a post-startup notification. Failures are logged
// and never stop the run; a cancelled run still gets its last message out.
func (m *Monitor) sendBestEffort(ctx context.Context, event notify.EventType, text string) {
	if err := m.send(context.WithoutCancel(ctx), event, text); err != nil {
		logger.Warn().Err(err).Str("event", string(event)).Msg("notification failed")
	}
}
