package logic

import "time"

// Controller combines the averaging window, safety supervisor and duty
// decision into one per-cycle step. It also keeps the run clock and the
// once-per-run notification flag.
type Controller struct {
	cfg        Config
	window     *Window
	supervisor *Supervisor

	startTime  time.Time
	lastCycle  time.Time
	lastBudget int
	onTime     time.Duration

	targetReachedNotified bool
	faulted               bool
}

// NewController creates a controller for a run starting at startTime.
func NewController(cfg Config, startTime time.Time) *Controller {
	return &Controller{
		cfg:        cfg,
		window:     NewWindow(cfg.AvgNum),
		supervisor: NewSupervisor(cfg, startTime),
		startTime:  startTime,
		lastCycle:  startTime,
	}
}

// Process runs one monitor cycle and returns the resulting decision.
// After a fatal verdict every further call returns a zero budget.
func (c *Controller) Process(in Input) Decision {
	d := Decision{
		Time:    in.Time,
		Elapsed: in.Time.Sub(c.startTime),
	}

	// On time only counts intervals that followed a heating grant.
	if c.lastBudget > 0 {
		c.onTime += in.Time.Sub(c.lastCycle)
	}
	c.lastCycle = in.Time
	d.OnTime = c.onTime

	if c.faulted {
		c.lastBudget = 0
		d.State = StateFault
		return d
	}

	c.window.Push(in.Samples[c.cfg.WaterLabel])
	d.Average, d.HaveAverage = c.window.Mean()
	d.Window = c.window.Values()

	d.Verdict = c.supervisor.Evaluate(in.Samples, in.Time)
	d.Streak = c.supervisor.Streak()

	if d.Verdict.Fatal {
		c.faulted = true
		c.lastBudget = 0
		d.State = StateFault
		return d
	}

	d.Budget = Duty(d.Average, d.HaveAverage, d.Verdict.Brake, c.cfg.Target, c.cfg.RunLength)
	c.lastBudget = d.Budget

	if !c.targetReachedNotified && d.HaveAverage &&
		d.Elapsed >= c.cfg.Grace && d.Average >= c.cfg.Target {
		c.targetReachedNotified = true
		d.TargetReached = true
	}

	switch {
	case d.Verdict.Brake:
		d.State = StateBrake
	case d.Budget > 0:
		d.State = StateHeating
	default:
		d.State = StateIdle
	}

	return d
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}
