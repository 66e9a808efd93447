package sensor

import (
	"context"
	"sync"
	"time"
)

// FakeReader is a test double returning scripted temperatures per device id.
type FakeReader struct {
	mu sync.Mutex

	// Values holds scripted readings per id. Each call consumes the next
	// value; the last one repeats once exhausted. A 0 means failure.
	Values map[string][]float64

	// Delay, if set for an id, blocks Read for that long.
	Delay map[string]time.Duration

	index map[string]int
}

// NewFakeReader creates a FakeReader with the given script.
func NewFakeReader(values map[string][]float64) *FakeReader {
	return &FakeReader{
		Values: values,
		Delay:  make(map[string]time.Duration),
		index:  make(map[string]int),
	}
}

// Read returns the next scripted value for id.
func (f *FakeReader) Read(ctx context.Context, id string) (float64, error) {
	f.mu.Lock()
	delay := f.Delay[id]
	vals := f.Values[id]
	var v float64
	if len(vals) > 0 {
		i := f.index[id]
		v = vals[i]
		if i < len(vals)-1 {
			f.index[id] = i + 1
		}
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if v == 0 {
		return 0, ErrNoReading
	}
	return v, nil
}

// Set replaces the script for id and restarts it.
func (f *FakeReader) Set(id string, values ...float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Values == nil {
		f.Values = make(map[string][]float64)
	}
	f.Values[id] = values
	f.index[id] = 0
}
