package status

import (
	"encoding/json"
	"sort"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	RunID          string       `json:"run_id"`
	State          string       `json:"state"`
	Average        *float64     `json:"average"`
	Window         []float64    `json:"window"`
	Sensors        []SensorJSON `json:"sensors"`
	Budget         int          `json:"budget"`
	Driver         string       `json:"driver"`
	Streak         int          `json:"fault_streak"`
	Brake          bool         `json:"brake"`
	ElapsedSeconds int64        `json:"elapsed_seconds"`
	OnSeconds      int64        `json:"on_seconds"`
	Cycles         int          `json:"cycles"`
	Fault          *FaultJSON   `json:"fault,omitempty"`
	Notifier       NotifierJSON `json:"notifier"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	Config         ConfigJSON   `json:"config"`
}

// SensorJSON is one sensor reading.
type SensorJSON struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// FaultJSON describes the fault that ended the run.
type FaultJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// NotifierJSON reports notification transport state.
type NotifierJSON struct {
	Connected bool   `json:"connected"`
	Transport string `json:"transport"`
	Recipient string `json:"recipient"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Target    float64 `json:"target"`
	RunLength int     `json:"run_length"`
	CycleMs   int64   `json:"cycle_ms"`
	TickMs    int64   `json:"tick_ms"`
	HTTPAddr  string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		RunID:          snap.RunID,
		State:          state,
		Window:         snap.Window,
		Budget:         snap.Budget,
		Driver:         snap.DriverState,
		Streak:         snap.Streak,
		Brake:          snap.Brake,
		ElapsedSeconds: int64(snap.Elapsed.Truncate(time.Second).Seconds()),
		OnSeconds:      int64(snap.OnTime.Truncate(time.Second).Seconds()),
		Cycles:         snap.Cycles,
		Notifier: NotifierJSON{
			Connected: snap.NotifierConnected,
			Transport: snap.Config.Transport,
			Recipient: snap.Config.Recipient,
		},
		StartTime: snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp: snap.Now.UTC().Format(time.RFC3339),
		Config: ConfigJSON{
			Target:    snap.Config.Target,
			RunLength: snap.Config.RunLength,
			CycleMs:   snap.Config.CycleMs,
			TickMs:    snap.Config.TickMs,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
	}
	if inner.Window == nil {
		inner.Window = []float64{}
	}
	if snap.HaveAverage {
		avg := snap.Average
		inner.Average = &avg
	}

	labels := make([]string, 0, len(snap.Samples))
	for label := range snap.Samples {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	inner.Sensors = make([]SensorJSON, 0, len(labels))
	for _, label := range labels {
		s := snap.Samples[label]
		inner.Sensors = append(inner.Sensors, SensorJSON{Label: label, Value: s.Value, Valid: s.Usable()})
	}

	if snap.Fault != "" {
		inner.Fault = &FaultJSON{Kind: string(snap.Fault), Message: snap.FaultMessage}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
