// Package sensor acquires temperatures from 1-wire probes.
// Reads fan out one goroutine per probe and are joined under a timeout.
package sensor

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sweeney/heater-control/internal/logger"
	"github.com/sweeney/heater-control/internal/logic"
)

// DefaultTimeout bounds one ReadAll call.
const DefaultTimeout = 1500 * time.Millisecond

var (
	// ErrNoReading means the probe answered without a usable temperature.
	ErrNoReading = errors.New("sensor: no reading")

	// ErrTimeout means the probe did not answer before the cycle deadline.
	ErrTimeout = errors.New("sensor: read timed out")
)

// Reader reads one probe by device id.
type Reader interface {
	// Read returns the temperature in °C. A zero temperature is never
	// returned with a nil error.
	Read(ctx context.Context, id string) (float64, error)
}

// Bus reads a fixed set of probes and maps them to logical labels.
type Bus struct {
	reader  Reader
	labels  map[string]string // device id -> label
	timeout time.Duration
}

// NewBus creates a bus over the given id -> label mapping.
func NewBus(r Reader, labels map[string]string, timeout time.Duration) *Bus {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bus{
		reader:  r,
		labels:  labels,
		timeout: timeout,
	}
}

// Labels returns the logical labels in sorted order.
func (b *Bus) Labels() []string {
	out := make([]string, 0, len(b.labels))
	for _, label := range b.labels {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// ReadAll reads every probe concurrently and returns one sample per label.
// It never returns later than the bus timeout; a probe still busy at the
// deadline is reported invalid and its read is abandoned.
func (b *Bus) ReadAll(ctx context.Context) map[string]logic.Sample {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var (
		mu     sync.Mutex
		result = make(map[string]logic.Sample, len(b.labels))
	)

	var wg sync.WaitGroup
	for id, label := range b.labels {
		id, label := id, label
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := b.readOne(ctx, id)
			smp := logic.Sample{Label: label, Value: v, Valid: err == nil && v != 0}
			if err != nil {
				logger.Debug().Err(err).Str("id", id).Str("label", label).Msg("sensor read failed")
				smp.Value = 0
			}
			mu.Lock()
			result[label] = smp
			mu.Unlock()
		}()
	}
	wg.Wait()

	return result
}

func (b *Bus) readOne(ctx context.Context, id string) (float64, error) {
	type reading struct {
		v   float64
		err error
	}
	ch := make(chan reading, 1)
	go func() {
		v, err := b.reader.Read(ctx, id)
		ch <- reading{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return 0, ErrTimeout
	}
}
