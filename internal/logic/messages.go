package logic

import (
	"fmt"
	"strings"
	"time"
)

// StartedMessage is sent once when monitoring begins.
func StartedMessage(cfg Config) string {
	return fmt.Sprintf("heating started: target %.1f°C, limit %v", cfg.Target, cfg.TimeLimit)
}

// TargetReachedMessage is sent once, on the first qualifying cycle.
func TargetReachedMessage(d Decision) string {
	return fmt.Sprintf("target reached: %.1f°C after %v", d.Average, d.Elapsed.Truncate(time.Second))
}

// StoppedMessage is sent on an operator-requested shutdown.
func StoppedMessage(reason string, d Decision) string {
	return fmt.Sprintf("heating stopped (%s) after %v, on %v",
		reason, d.Elapsed.Truncate(time.Second), d.OnTime.Truncate(time.Second))
}

// StatusLine renders the per-cycle console summary.
// Labels are sorted; unusable readings print as ERR.
func StatusLine(samples map[string]Sample, d Decision, budget int) string {
	var b strings.Builder
	for _, label := range sortedLabels(samples) {
		smp := samples[label]
		if smp.Usable() {
			fmt.Fprintf(&b, "%s=%.2f ", label, smp.Value)
		} else {
			fmt.Fprintf(&b, "%s=ERR ", label)
		}
	}
	if d.HaveAverage {
		fmt.Fprintf(&b, "avg=%.2f ", d.Average)
	} else {
		b.WriteString("avg=- ")
	}
	fmt.Fprintf(&b, "elapsed=%v on=%v budget=%d",
		d.Elapsed.Truncate(time.Second), d.OnTime.Truncate(time.Second), budget)
	return b.String()
}
