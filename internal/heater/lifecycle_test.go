package heater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/heater-control/internal/gpio"
	"github.com/sweeney/heater-control/internal/logic"
	"github.com/sweeney/heater-control/internal/notify"
	"github.com/sweeney/heater-control/internal/sensor"
	"github.com/sweeney/heater-control/internal/status"
)

type runFixture struct {
	reader      *sensor.FakeReader
	out         *gpio.FakeOutput
	notifier    *notify.FakeNotifier
	tracker     *status.Tracker
	monitorTick chan time.Time
	driverTick  chan time.Time
}

func newRunFixture(water, heater float64) *runFixture {
	return &runFixture{
		reader: sensor.NewFakeReader(map[string][]float64{
			waterID:  {water},
			heaterID: {heater},
		}),
		out:         gpio.NewFakeOutput(),
		notifier:    notify.NewFakeNotifier(),
		tracker:     status.NewTracker("run-1", time.Now(), status.Config{}),
		monitorTick: make(chan time.Time),
		driverTick:  make(chan time.Time),
	}
}

func (f *runFixture) start(ctx context.Context) *Run {
	return f.startWith(ctx, logic.DefaultConfig(), f.notifier)
}

func (f *runFixture) startWith(ctx context.Context, cfg logic.Config, n notify.Notifier) *Run {
	bus := sensor.NewBus(f.reader, map[string]string{
		waterID:  logic.LabelWater,
		heaterID: logic.LabelHeater,
	}, time.Second)
	return Start(ctx, Deps{
		Config:      cfg,
		Sensors:     bus,
		Output:      f.out,
		Notifier:    n,
		Tracker:     f.tracker,
		RunID:       "run-1",
		MonitorTick: f.monitorTick,
		DriverTick:  f.driverTick,
	})
}

func waitRun(t *testing.T, r *Run) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- r.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
		return nil
	}
}

func TestRunOverheatEndsRun(t *testing.T) {
	f := newRunFixture(39.0, 61.0)
	r := f.start(context.Background())

	err := waitRun(t, r)

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, logic.FaultOverheat, fault.Kind)
	assert.Equal(t, 0, r.Budget())
	assert.True(t, f.out.Closed())
	assert.False(t, f.out.Enabled())
	assert.Equal(t, 1, f.notifier.Count(notify.EventStarted))
	assert.Equal(t, 1, f.notifier.Count(notify.EventFault))
	assert.Zero(t, f.notifier.Count(notify.EventStopped))
}

func TestRunStartupNotificationFailure(t *testing.T) {
	f := newRunFixture(39.0, 45.0)
	sendErr := errors.New("broker unreachable")
	f.notifier.SetSendError(sendErr)

	r := f.start(context.Background())
	err := waitRun(t, r)

	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
	var fault *FaultError
	assert.False(t, errors.As(err, &fault))
	assert.Zero(t, f.out.EnableCalls(), "heater must never be enabled")
	assert.True(t, f.out.Closed())
	assert.Zero(t, f.tracker.Snapshot().Cycles, "no cycle runs before the announcement")
}

func TestRunPulsesAndStops(t *testing.T) {
	f := newRunFixture(39.0, 45.0)
	r := f.start(context.Background())

	require.Eventually(t, func() bool { return r.Budget() == logic.DefaultRunLength },
		2*time.Second, 5*time.Millisecond)

	for i := 0; i < 4; i++ {
		f.driverTick <- time.Now()
	}
	require.Eventually(t, func() bool { return len(f.out.Pulses()) == 4 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false, true, false}, f.out.Pulses())
	assert.Equal(t, logic.DefaultRunLength-4, r.Budget())
	assert.True(t, f.out.Enabled())
	assert.Equal(t, 1, f.out.EnableCalls())

	// Next monitor cycle overwrites the partly spent grant.
	f.monitorTick <- time.Now()
	require.Eventually(t, func() bool { return r.Budget() == logic.DefaultRunLength },
		2*time.Second, 5*time.Millisecond)

	r.Stop("SIGTERM")
	require.NoError(t, waitRun(t, r))

	assert.Equal(t, 0, r.Budget())
	assert.True(t, f.out.Closed())
	require.Equal(t, 1, f.notifier.Count(notify.EventStopped))
	msgs := f.notifier.Messages()
	assert.Contains(t, msgs[len(msgs)-1].Text, "SIGTERM")
}

func TestRunParentCancel(t *testing.T) {
	f := newRunFixture(41.0, 45.0)
	ctx, cancel := context.WithCancel(context.Background())
	r := f.start(ctx)

	require.Eventually(t, func() bool { return f.tracker.Snapshot().Cycles > 0 },
		2*time.Second, 5*time.Millisecond)
	cancel()

	require.NoError(t, waitRun(t, r))
	assert.Equal(t, 1, f.notifier.Count(notify.EventStopped))
}

func TestRunActuatorFault(t *testing.T) {
	f := newRunFixture(39.0, 45.0)
	pulseErr := errors.New("line busy")
	f.out.PulseError = pulseErr
	r := f.start(context.Background())

	require.Eventually(t, func() bool { return r.Budget() > 0 },
		2*time.Second, 5*time.Millisecond)
	f.driverTick <- time.Now()

	err := waitRun(t, r)

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, logic.FaultActuator, fault.Kind)
	assert.ErrorIs(t, err, pulseErr)
	assert.Equal(t, 0, r.Budget())
	assert.True(t, f.out.Closed())
	assert.Equal(t, 1, f.notifier.Count(notify.EventFault))
	assert.Zero(t, f.notifier.Count(notify.EventStopped))

	snap := f.tracker.Snapshot()
	assert.Equal(t, logic.StateFault, snap.State)
	assert.Equal(t, logic.FaultActuator, snap.Fault)
}

func TestRunSensorStreakEndsRun(t *testing.T) {
	f := newRunFixture(39.0, 0)
	r := f.start(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Wait() }()

	var err error
	deadline := time.After(5 * time.Second)
loop:
	for {
		select {
		case err = <-done:
			break loop
		case f.monitorTick <- time.Now():
		case <-deadline:
			t.Fatal("run did not finish")
		}
	}

	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, logic.FaultSensor, fault.Kind)
	assert.Equal(t, logic.DefaultFaultThreshold+1, f.tracker.Snapshot().Cycles)
}

func TestRunStopDuringSlowReadIsClean(t *testing.T) {
	f := newRunFixture(39.0, 45.0)
	f.reader.Delay[waterID] = 500 * time.Millisecond
	cfg := logic.DefaultConfig()
	cfg.FaultThreshold = 0 // a single invalid cycle would fault

	r := f.startWith(context.Background(), cfg, f.notifier)
	require.Eventually(t, func() bool { return f.notifier.Count(notify.EventStarted) == 1 },
		2*time.Second, 5*time.Millisecond)
	r.Stop("SIGTERM")

	require.NoError(t, waitRun(t, r))
	assert.Zero(t, f.notifier.Count(notify.EventFault))
	assert.Equal(t, 1, f.notifier.Count(notify.EventStopped))
	assert.Zero(t, f.tracker.Snapshot().Cycles, "interrupted cycle is discarded")
	assert.True(t, f.out.Closed())
}

// blockingNotifier holds every send until its context ends.
type blockingNotifier struct {
	notify.FakeNotifier
	entered chan struct{}
}

func (b *blockingNotifier) Send(ctx context.Context, _ notify.Message) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunStopDuringStartupIsClean(t *testing.T) {
	f := newRunFixture(39.0, 45.0)
	n := &blockingNotifier{entered: make(chan struct{}, 1)}

	r := f.startWith(context.Background(), logic.DefaultConfig(), n)
	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("startup notification never sent")
	}
	r.Stop("SIGTERM")

	require.NoError(t, waitRun(t, r))
	assert.Zero(t, f.out.EnableCalls(), "heater must never be enabled")
	assert.True(t, f.out.Closed())
	assert.Zero(t, f.tracker.Snapshot().Cycles)
}
