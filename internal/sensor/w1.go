package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultOneWirePath is where the w1-therm driver exposes probes.
const DefaultOneWirePath = "/sys/bus/w1/devices"

var tempPattern = regexp.MustCompile(`(?m)t=(-?[0-9]+)\s*$`)

// W1Reader reads DS18B20 probes through the kernel w1_slave files.
type W1Reader struct {
	base string
}

// NewW1Reader creates a reader rooted at base (normally DefaultOneWirePath).
func NewW1Reader(base string) *W1Reader {
	return &W1Reader{base: base}
}

// Read parses <base>/<id>/w1_slave. The first line must end in YES (CRC ok)
// and the second carries the temperature in millidegrees.
func (r *W1Reader) Read(_ context.Context, id string) (float64, error) {
	data, err := os.ReadFile(filepath.Join(r.base, id, "w1_slave"))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", id, err)
	}
	return parseW1Slave(string(data))
}

func parseW1Slave(s string) (float64, error) {
	first, _, _ := strings.Cut(s, "\n")
	if !strings.HasSuffix(strings.TrimSpace(first), "YES") {
		return 0, fmt.Errorf("crc check failed: %w", ErrNoReading)
	}

	m := tempPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrNoReading
	}
	milli, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", m[1], ErrNoReading)
	}
	if milli == 0 {
		return 0, ErrNoReading
	}
	return float64(milli) / 1000, nil
}
