package audio

import "math"

// RMS returns the root mean square of samples, 0 for an empty slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// LevelPercent maps the loudness of samples to a 0-100 brightness, scaling
// the RMS by gain and clamping.
func LevelPercent(samples []float32, gain float64) int {
	p := math.Round(RMS(samples) * gain * 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
