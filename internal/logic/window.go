package logic

// Window is a bounded FIFO of recent usable readings.
// Not safe for concurrent use; the monitor owns it.
type Window struct {
	capacity int
	values   []float64
}

// NewWindow creates a window holding at most capacity readings.
// A capacity below 1 is treated as 1.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		values:   make([]float64, 0, capacity+1),
	}
}

// Push appends a usable sample, evicting the oldest entry past capacity.
// Unusable samples are ignored and Push returns false.
func (w *Window) Push(s Sample) bool {
	if !s.Usable() {
		return false
	}
	w.values = append(w.values, s.Value)
	if len(w.values) > w.capacity {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.capacity]
	}
	return true
}

// Mean returns the arithmetic mean of the current contents.
// ok is false while the window is empty.
func (w *Window) Mean() (mean float64, ok bool) {
	if len(w.values) == 0 {
		return 0, false
	}
	// Recomputed every call; a running sum would accumulate float error.
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values)), true
}

// Len returns the number of readings held.
func (w *Window) Len() int {
	return len(w.values)
}

// Values returns a copy of the readings, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, len(w.values))
	copy(out, w.values)
	return out
}
