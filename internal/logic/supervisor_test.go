package logic

import (
	"strings"
	"testing"
	"time"
)

var testStart = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func readings(waterC, heaterC float64) map[string]Sample {
	return map[string]Sample{
		LabelWater:  {Label: LabelWater, Value: waterC, Valid: waterC != 0},
		LabelHeater: {Label: LabelHeater, Value: heaterC, Valid: heaterC != 0},
	}
}

func TestSupervisorHealthyCycle(t *testing.T) {
	s := NewSupervisor(DefaultConfig(), testStart)
	v := s.Evaluate(readings(39.0, 45.0), testStart.Add(time.Second))

	if v.Fatal || v.Brake {
		t.Errorf("expected healthy verdict, got %+v", v)
	}
	if !v.HaveMax || v.Max != 45.0 {
		t.Errorf("expected max 45.0, got %v (have=%v)", v.Max, v.HaveMax)
	}
}

func TestSupervisorStreakBelowThreshold(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSupervisor(cfg, testStart)

	for i := 1; i <= cfg.FaultThreshold; i++ {
		v := s.Evaluate(readings(39.0, 0), testStart.Add(time.Duration(i)*time.Second))
		if v.Fatal {
			t.Fatalf("cycle %d: unexpected fatal verdict %q", i, v.Message)
		}
		if s.Streak() != i {
			t.Errorf("cycle %d: streak %d, want %d", i, s.Streak(), i)
		}
	}
}

func TestSupervisorStreakExceedsThreshold(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSupervisor(cfg, testStart)

	var v Verdict
	for i := 1; i <= cfg.FaultThreshold+1; i++ {
		v = s.Evaluate(readings(39.0, 0), testStart.Add(time.Duration(i)*time.Second))
	}

	if !v.Fatal {
		t.Fatal("expected fatal verdict after threshold+1 invalid cycles")
	}
	if v.Fault != FaultSensor {
		t.Errorf("expected %s, got %s", FaultSensor, v.Fault)
	}
	if !strings.Contains(v.Message, "sensor fault") || !strings.Contains(v.Message, LabelHeater) {
		t.Errorf("unexpected message: %q", v.Message)
	}
}

func TestSupervisorStreakResetsOnValidCycle(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSupervisor(cfg, testStart)

	for i := 0; i < cfg.FaultThreshold; i++ {
		s.Evaluate(readings(0, 45.0), testStart)
	}
	s.Evaluate(readings(39.0, 45.0), testStart)
	if s.Streak() != 0 {
		t.Fatalf("expected streak reset, got %d", s.Streak())
	}

	for i := 0; i < cfg.FaultThreshold; i++ {
		if v := s.Evaluate(readings(0, 45.0), testStart); v.Fatal {
			t.Fatalf("streak should have restarted, got fatal at %d", i)
		}
	}
}

func TestSupervisorMissingRequiredSensorCounts(t *testing.T) {
	s := NewSupervisor(DefaultConfig(), testStart)
	s.Evaluate(map[string]Sample{LabelWater: water(39.0)}, testStart)
	if s.Streak() != 1 {
		t.Errorf("missing heater sample should count as invalid, streak %d", s.Streak())
	}
}

func TestSupervisorOverheat(t *testing.T) {
	s := NewSupervisor(DefaultConfig(), testStart)
	v := s.Evaluate(readings(39.0, 60.5), testStart)

	if !v.Fatal || v.Fault != FaultOverheat {
		t.Fatalf("expected overheat, got %+v", v)
	}
	if !strings.Contains(v.Message, "heater") {
		t.Errorf("message should name the sensor: %q", v.Message)
	}
}

func TestSupervisorAtCeilingIsNotOverheat(t *testing.T) {
	s := NewSupervisor(DefaultConfig(), testStart)
	if v := s.Evaluate(readings(39.0, 60.0), testStart); v.Fatal {
		t.Errorf("max equal to ceiling should not be fatal: %q", v.Message)
	}
}

func TestSupervisorStreakCheckedBeforeOverheat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FaultThreshold = 0
	s := NewSupervisor(cfg, testStart)

	v := s.Evaluate(readings(0, 70.0), testStart)
	if v.Fault != FaultSensor {
		t.Errorf("expected sensor fault to win, got %s", v.Fault)
	}
}

func TestSupervisorRiseBrake(t *testing.T) {
	s := NewSupervisor(DefaultConfig(), testStart)

	if v := s.Evaluate(readings(39.0, 45.0), testStart); v.Brake {
		t.Fatal("first cycle has no previous max, should not brake")
	}
	v := s.Evaluate(readings(39.0, 53.0), testStart.Add(time.Second))
	if !v.Brake {
		t.Error("expected brake on 45 -> 53 jump")
	}
	if v.Fatal {
		t.Errorf("brake must not be fatal: %q", v.Message)
	}

	// Next cycle compares against 53
	if v := s.Evaluate(readings(39.0, 54.0), testStart.Add(2*time.Second)); v.Brake {
		t.Error("1 degree rise should not brake")
	}
}

func TestSupervisorRiseAtThresholdDoesNotBrake(t *testing.T) {
	s := NewSupervisor(DefaultConfig(), testStart)
	s.Evaluate(readings(39.0, 45.0), testStart)
	if v := s.Evaluate(readings(39.0, 51.0), testStart); v.Brake {
		t.Error("rise equal to threshold should not brake")
	}
}

func TestSupervisorTimeout(t *testing.T) {
	cfg := DefaultConfig()
	s := NewSupervisor(cfg, testStart)

	if v := s.Evaluate(readings(39.0, 45.0), testStart.Add(cfg.TimeLimit)); v.Fatal {
		t.Fatalf("at the limit should not be fatal: %q", v.Message)
	}
	v := s.Evaluate(readings(39.0, 45.0), testStart.Add(cfg.TimeLimit+time.Second))
	if !v.Fatal || v.Fault != FaultTimeout {
		t.Errorf("expected timeout, got %+v", v)
	}
}
