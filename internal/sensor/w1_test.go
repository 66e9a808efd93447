package sensor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodSlave = "72 01 4b 46 7f ff 0e 10 57 : crc=57 YES\n72 01 4b 46 7f ff 0e 10 57 t=39125\n"

func writeSlave(t *testing.T, base, id, content string) {
	t.Helper()
	dir := filepath.Join(base, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "w1_slave"), []byte(content), 0o644))
}

func TestParseW1Slave(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"valid", goodSlave, 39.125, false},
		{"negative", "xx : crc=aa YES\nxx t=-1250\n", -1.25, false},
		{"crc failure", "72 01 : crc=00 NO\n72 01 t=39125\n", 0, true},
		{"zero", "xx : crc=aa YES\nxx t=0\n", 0, true},
		{"missing temperature", "xx : crc=aa YES\nxx\n", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseW1Slave(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoReading)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestW1ReaderRead(t *testing.T) {
	base := t.TempDir()
	writeSlave(t, base, "28-3c01a816d9f0", goodSlave)

	r := NewW1Reader(base)
	v, err := r.Read(context.Background(), "28-3c01a816d9f0")
	require.NoError(t, err)
	assert.InDelta(t, 39.125, v, 1e-9)
}

func TestW1ReaderMissingDevice(t *testing.T) {
	r := NewW1Reader(t.TempDir())
	_, err := r.Read(context.Background(), "28-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
