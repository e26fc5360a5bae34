package audio

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Errorf("RMS(nil) = %f, want 0", got)
	}
	if got := RMS([]float32{1, -1, 1, -1}); got != 1 {
		t.Errorf("RMS(square) = %f, want 1", got)
	}
	if got := RMS([]float32{0.5, -0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("RMS(0.5) = %f, want 0.5", got)
	}
}

func TestLevelPercent(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		gain    float64
		want    int
	}{
		{"silence", []float32{0, 0, 0}, 4, 0},
		{"quiet", []float32{0.1, -0.1}, 4, 40},
		{"unity gain", []float32{0.25, -0.25}, 1, 25},
		{"clipped", []float32{1, -1}, 4, 100},
		{"empty", nil, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelPercent(tt.samples, tt.gain); got != tt.want {
				t.Errorf("LevelPercent() = %d, want %d", got, tt.want)
			}
		})
	}
}
