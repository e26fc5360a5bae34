// Package music drives the strip brightness from audio loudness.
package music

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/chaz8081/bledob/internal/audio"
	"github.com/chaz8081/bledob/internal/ble/protocol"
)

// Source yields one window of mono samples per frame. It returns io.EOF when
// exhausted.
type Source interface {
	Next() ([]float32, error)
}

// Sender writes commands to the strip. *ble.Session satisfies it.
type Sender interface {
	Send(cmd protocol.Command) error
}

// Options configures Run.
type Options struct {
	FPS  int     // brightness frames per second
	Gain float64 // RMS multiplier before mapping to percent
}

// Run reads windows from src at opts.FPS and sends the loudness as a
// brightness command. Unchanged levels are not resent. Run returns nil when
// src is exhausted or ctx is cancelled.
func Run(ctx context.Context, src Source, dst Sender, opts Options) error {
	if opts.FPS <= 0 {
		return fmt.Errorf("music: fps must be > 0, got %d", opts.FPS)
	}
	lim := rate.NewLimiter(rate.Limit(opts.FPS), 1)

	last := -1
	frames := 0
	for {
		// Wait fails only once ctx is done or its deadline is too close.
		if err := lim.Wait(ctx); err != nil {
			slog.Info("[music] stopped", "frames", frames)
			return nil
		}

		samples, err := src.Next()
		if errors.Is(err, io.EOF) {
			slog.Info("[music] source finished", "frames", frames)
			return nil
		}
		if err != nil {
			return fmt.Errorf("music: read source: %w", err)
		}

		level := audio.LevelPercent(samples, opts.Gain)
		if level == last {
			continue
		}
		last = level
		frames++

		if err := dst.Send(protocol.Brightness(level)); err != nil {
			slog.Warn("[music] send failed", "level", level, "error", err)
		}
	}
}

// ClipSource plays a decoded clip in windows of sampleRate/fps samples.
type ClipSource struct {
	samples []float32
	window  int
	pos     int
}

// NewClipSource creates a source over clip's mono samples.
func NewClipSource(clip *audio.Clip, fps int) *ClipSource {
	window := clip.SampleRate / max(fps, 1)
	return &ClipSource{samples: clip.Mono(), window: max(window, 1)}
}

// Next returns the next window.
func (s *ClipSource) Next() ([]float32, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := min(s.pos+s.window, len(s.samples))
	w := s.samples[s.pos:end]
	s.pos = end
	return w, nil
}

// Drainer is satisfied by *audio.Recorder.
type Drainer interface {
	Drain() []float32
}

// MicSource returns whatever the recorder captured since the last frame.
type MicSource struct {
	rec Drainer
}

// NewMicSource wraps a running recorder.
func NewMicSource(rec Drainer) *MicSource {
	return &MicSource{rec: rec}
}

// Next drains the recorder. It never returns io.EOF.
func (s *MicSource) Next() ([]float32, error) {
	return s.rec.Drain(), nil
}
