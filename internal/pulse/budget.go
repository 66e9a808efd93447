// Package pulse implements the shared pulse budget and the fixed-tick driver
// that spends it on the heater's pulse line.
package pulse

import "sync/atomic"

// Budget is the count of remaining actuator ticks.
//
// Exactly one writer (the monitor) overwrites it with Store and exactly one
// consumer (the driver) spends it with DecrementIfPositive. It never goes
// below zero.
type Budget struct {
	v atomic.Int64
}

// NewBudget returns a budget of zero.
func NewBudget() *Budget {
	return &Budget{}
}

// Store overwrites the budget. Negative values are stored as zero.
func (b *Budget) Store(ticks int) {
	if ticks < 0 {
		ticks = 0
	}
	b.v.Store(int64(ticks))
}

// Load returns the current budget.
func (b *Budget) Load() int {
	return int(b.v.Load())
}

// DecrementIfPositive spends one tick. It reports false, leaving the budget
// untouched, when nothing is left.
func (b *Budget) DecrementIfPositive() bool {
	for {
		cur := b.v.Load()
		if cur <= 0 {
			return false
		}
		if b.v.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}
