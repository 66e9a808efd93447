// Package status provides a thread-safe status tracker for the heater-control daemon.
// The monitor writes it once per cycle; HTTP handlers read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/heater-control/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Target    float64
	RunLength int
	CycleMs   int64
	TickMs    int64
	Transport string
	Recipient string
	HTTPAddr  string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	RunID             string
	State             logic.State
	Average           float64
	HaveAverage       bool
	Window            []float64
	Samples           map[string]logic.Sample
	Budget            int
	DriverState       string
	Streak            int
	Brake             bool
	Elapsed           time.Duration
	OnTime            time.Duration
	Fault             logic.FaultKind
	FaultMessage      string
	NotifierConnected bool
	Cycles            int
	StartTime         time.Time
	Now               time.Time
	Config            Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given run id, start time and config.
func NewTracker(runID string, startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			RunID:     runID,
			State:     logic.StateStarting,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of one monitor cycle.
func (t *Tracker) Update(d logic.Decision, samples map[string]logic.Sample, budget int) {
	copied := make(map[string]logic.Sample, len(samples))
	for k, v := range samples {
		copied[k] = v
	}

	t.mu.Lock()
	t.snap.State = d.State
	t.snap.Average = d.Average
	t.snap.HaveAverage = d.HaveAverage
	t.snap.Window = d.Window
	t.snap.Samples = copied
	t.snap.Budget = budget
	t.snap.Streak = d.Streak
	t.snap.Brake = d.Verdict.Brake
	t.snap.Elapsed = d.Elapsed
	t.snap.OnTime = d.OnTime
	t.snap.Cycles++
	if d.Verdict.Fatal {
		t.snap.Fault = d.Verdict.Fault
		t.snap.FaultMessage = d.Verdict.Message
	}
	t.mu.Unlock()
}

// SetFault marks the run as ended by a fault outside the monitor cycle,
// such as an actuator failure.
func (t *Tracker) SetFault(kind logic.FaultKind, msg string) {
	t.mu.Lock()
	t.snap.State = logic.StateFault
	t.snap.Fault = kind
	t.snap.FaultMessage = msg
	t.snap.Budget = 0
	t.mu.Unlock()
}

// SetDriverState sets the pulse driver state.
func (t *Tracker) SetDriverState(state string) {
	t.mu.Lock()
	t.snap.DriverState = state
	t.mu.Unlock()
}

// SetNotifierConnected sets the notification transport status.
func (t *Tracker) SetNotifierConnected(connected bool) {
	t.mu.Lock()
	t.snap.NotifierConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
