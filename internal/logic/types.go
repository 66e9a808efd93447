// Package logic contains the pure decision core of the heater controller:
// averaging, safety supervision, duty decision and notification triggers.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Default tuning, matching the deployed heater.
const (
	DefaultTarget         = 41.0
	DefaultAvgNum         = 10
	DefaultRunLength      = 200 // ticks of 10ms
	DefaultFaultThreshold = 10
	DefaultMaxTemp        = 60.0
	DefaultMaxRise        = 6.0
	DefaultTimeLimit      = 4 * time.Hour
	DefaultGrace          = 30 * time.Second

	LabelWater  = "water"
	LabelHeater = "heater"
)

// Sample is one sensor reading for a single cycle.
// A zero Value is never a valid reading: the 1-wire driver reports 0 on failure.
type Sample struct {
	Label string
	Value float64
	Valid bool
}

// Usable reports whether the sample carries a physical temperature.
func (s Sample) Usable() bool {
	return s.Valid && s.Value != 0
}

// State is the controller state reported to status consumers.
type State string

const (
	StateStarting State = "STARTING"
	StateHeating  State = "HEATING"
	StateIdle     State = "IDLE"
	StateBrake    State = "BRAKE"
	StateFault    State = "FAULT"
)

// FaultKind identifies which safety rule ended the run.
type FaultKind string

const (
	FaultNone     FaultKind = ""
	FaultSensor   FaultKind = "SENSOR_FAULT"
	FaultOverheat FaultKind = "OVERHEAT"
	FaultTimeout  FaultKind = "TIMEOUT"
	FaultActuator FaultKind = "ACTUATOR_FAULT" // raised by the pulse driver, not the supervisor
)

// Config holds the control and safety parameters.
type Config struct {
	Target         float64       // water temperature to reach
	AvgNum         int           // averaging window capacity
	RunLength      int           // budget granted per heating cycle, in ticks
	FaultThreshold int           // tolerated consecutive invalid cycles
	MaxTemp        float64       // absolute ceiling across all sensors
	MaxRise        float64       // tolerated one-cycle rise of the maximum
	TimeLimit      time.Duration // maximum run time
	Grace          time.Duration // minimum run time before "target reached"
	WaterLabel     string        // label averaged for the duty decision
	Required       []string      // labels that must read valid every cycle
}

// DefaultConfig returns the deployed tuning.
func DefaultConfig() Config {
	return Config{
		Target:         DefaultTarget,
		AvgNum:         DefaultAvgNum,
		RunLength:      DefaultRunLength,
		FaultThreshold: DefaultFaultThreshold,
		MaxTemp:        DefaultMaxTemp,
		MaxRise:        DefaultMaxRise,
		TimeLimit:      DefaultTimeLimit,
		Grace:          DefaultGrace,
		WaterLabel:     LabelWater,
		Required:       []string{LabelWater, LabelHeater},
	}
}

// Input is the sensor snapshot for one monitor cycle.
type Input struct {
	Samples map[string]Sample
	Time    time.Time
}

// Verdict is the safety supervisor's result for one cycle.
type Verdict struct {
	Fatal   bool
	Fault   FaultKind
	Message string
	Brake   bool    // rise-rate brake, heating suppressed this cycle only
	Max     float64 // maximum usable temperature this cycle
	HaveMax bool
}

// Decision is everything the monitor needs to act on after one cycle.
type Decision struct {
	Time          time.Time
	Budget        int
	Average       float64
	HaveAverage   bool
	Window        []float64
	Verdict       Verdict
	State         State
	Streak        int
	Elapsed       time.Duration
	OnTime        time.Duration
	TargetReached bool // true only on the cycle the notification must fire
}
