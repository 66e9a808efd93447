package logic

import "testing"

func TestDuty(t *testing.T) {
	tests := []struct {
		name    string
		avg     float64
		haveAvg bool
		brake   bool
		want    int
	}{
		{"below target", 39.0, true, false, 200},
		{"at target", 41.0, true, false, 0},
		{"above target", 42.5, true, false, 0},
		{"no average", 0, false, false, 0},
		{"brake below target", 39.0, true, true, 0},
		{"brake above target", 45.0, true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Duty(tt.avg, tt.haveAvg, tt.brake, 41.0, 200)
			if got != tt.want {
				t.Errorf("Duty(%v, %v, %v) = %d, want %d", tt.avg, tt.haveAvg, tt.brake, got, tt.want)
			}
		})
	}
}
