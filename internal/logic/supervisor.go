package logic

import (
	"fmt"
	"sort"
	"time"
)

// Supervisor evaluates the safety rules once per cycle.
// It keeps the failure streak and the previous cycle's maximum.
type Supervisor struct {
	cfg       Config
	startTime time.Time
	streak    int
	prevMax   float64
	havePrev  bool
}

// NewSupervisor creates a supervisor for a run starting at startTime.
func NewSupervisor(cfg Config, startTime time.Time) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		startTime: startTime,
	}
}

// Evaluate applies, in order: sensor failure streak, overheat, rise rate and
// elapsed time. The first fatal rule wins and later rules are not evaluated.
func (s *Supervisor) Evaluate(samples map[string]Sample, now time.Time) Verdict {
	var v Verdict

	// 1. Sensor failure streak
	invalid := s.invalidRequired(samples)
	if len(invalid) > 0 {
		s.streak++
	} else {
		s.streak = 0
	}
	if s.streak > s.cfg.FaultThreshold {
		v.Fatal = true
		v.Fault = FaultSensor
		v.Message = fmt.Sprintf("sensor fault: %v invalid for %d consecutive cycles", invalid, s.streak)
		return v
	}

	// 2. Absolute overheat
	maxLabel := ""
	for _, label := range sortedLabels(samples) {
		smp := samples[label]
		if !smp.Usable() {
			continue
		}
		if !v.HaveMax || smp.Value > v.Max {
			v.Max = smp.Value
			v.HaveMax = true
			maxLabel = label
		}
	}
	if v.HaveMax && v.Max > s.cfg.MaxTemp {
		v.Fatal = true
		v.Fault = FaultOverheat
		v.Message = fmt.Sprintf("overheat: %s %.1f°C exceeds %.1f°C", maxLabel, v.Max, s.cfg.MaxTemp)
		return v
	}

	// 3. Rise rate, soft brake only
	if v.HaveMax {
		if s.havePrev && v.Max-s.prevMax > s.cfg.MaxRise {
			v.Brake = true
		}
		s.prevMax = v.Max
		s.havePrev = true
	}

	// 4. Elapsed time
	if elapsed := now.Sub(s.startTime); elapsed > s.cfg.TimeLimit {
		v.Fatal = true
		v.Fault = FaultTimeout
		v.Message = fmt.Sprintf("timeout: run time %v exceeds %v", elapsed.Truncate(time.Second), s.cfg.TimeLimit)
		return v
	}

	return v
}

// Streak returns the current count of consecutive invalid cycles.
func (s *Supervisor) Streak() int {
	return s.streak
}

// invalidRequired returns the required labels that are missing or unusable.
func (s *Supervisor) invalidRequired(samples map[string]Sample) []string {
	var invalid []string
	for _, label := range s.cfg.Required {
		smp, ok := samples[label]
		if !ok || !smp.Usable() {
			invalid = append(invalid, label)
		}
	}
	return invalid
}

func sortedLabels(samples map[string]Sample) []string {
	labels := make([]string, 0, len(samples))
	for label := range samples {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
