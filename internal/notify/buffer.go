package notify

import "github.com/sweeney/heater-control/internal/logger"

// pendingAlert is a serialized alert waiting for the broker to come back.
type pendingAlert struct {
	topic   string
	payload []byte
	qos     byte
	event   EventType
}

// ringBuffer is a fixed-capacity FIFO that holds alerts while the broker is down.
// Not safe for concurrent use; the caller synchronizes.
type ringBuffer struct {
	buf      []pendingAlert
	capacity int
	head     int // next write position
	count    int
	dropped  int // alerts overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{
		buf:      make([]pendingAlert, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(a pendingAlert) {
	if r.count == r.capacity {
		if r.dropped == 0 {
			logger.Warn().Int("capacity", r.capacity).Msg("notify: buffer full, dropping oldest")
		}
		r.dropped++
		// head already points at the oldest entry
		r.buf[r.head] = a
		r.head = (r.head + 1) % r.capacity
		return
	}
	r.buf[r.head] = a
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// drainAll returns pending alerts oldest first and how many were lost to
// overflow, then empties the buffer.
func (r *ringBuffer) drainAll() ([]pendingAlert, int) {
	if r.count == 0 {
		return nil, 0
	}

	out := make([]pendingAlert, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := range out {
		out[i] = r.buf[(start+i)%r.capacity]
	}
	dropped := r.dropped

	r.count = 0
	r.head = 0
	r.dropped = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
