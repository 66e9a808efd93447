package logic

// Duty returns the pulse budget to store for this cycle.
// Without an average the heater stays off. The result always overwrites the
// shared budget, so a 0 cancels whatever the previous cycle granted.
func Duty(average float64, haveAverage, brake bool, target float64, runLength int) int {
	if !haveAverage || brake {
		return 0
	}
	if average < target {
		return runLength
	}
	return 0
}
