// Package audio captures microphone input with malgo and loads WAV files,
// producing float32 samples for music mode.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// maxBufferedSeconds bounds how much unread audio a Recorder keeps.
const maxBufferedSeconds = 1

// Recorder streams audio from the default microphone. Samples accumulate
// until Drain is called; only the most recent second is kept.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate uint32
	channels   uint32
	limit      int // max buffered samples

	mu  sync.Mutex
	buf []float32
}

// NewRecorder creates a recorder. Call Close when done.
func NewRecorder(sampleRate, channels uint32) (*Recorder, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}
	return newRecorder(ctx, sampleRate, channels), nil
}

func newRecorder(ctx *malgo.AllocatedContext, sampleRate, channels uint32) *Recorder {
	return &Recorder{
		ctx:        ctx,
		sampleRate: sampleRate,
		channels:   channels,
		limit:      int(sampleRate*channels) * maxBufferedSeconds,
	}
}

// Start opens the capture device. Calling Start on a running recorder is an
// error.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		return fmt.Errorf("audio: capture already running")
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = r.channels
	cfg.SampleRate = r.sampleRate

	device, err := malgo.InitDevice(r.ctx.Context, cfg, malgo.DeviceCallbacks{Data: r.onData})
	if err != nil {
		return fmt.Errorf("audio: init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("audio: start capture device: %w", err)
	}
	r.buf = r.buf[:0]
	r.device = device
	return nil
}

// Drain returns the samples captured since the last Drain and empties the
// buffer. Capture continues.
func (r *Recorder) Drain() []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) == 0 {
		return nil
	}
	out := make([]float32, len(r.buf))
	copy(out, r.buf)
	r.buf = r.buf[:0]
	return out
}

// Close stops capture and releases the audio context.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.device != nil {
		r.device.Uninit()
		r.device = nil
	}
	r.mu.Unlock()

	if r.ctx == nil {
		return nil
	}
	if err := r.ctx.Uninit(); err != nil {
		return fmt.Errorf("audio: uninit context: %w", err)
	}
	r.ctx.Free()
	r.ctx = nil
	return nil
}

// onData receives interleaved little-endian float32 frames from malgo.
func (r *Recorder) onData(_, input []byte, frames uint32) {
	n := min(int(frames*r.channels), len(input)/4)

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < n; i++ {
		r.buf = append(r.buf, math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:])))
	}
	if r.limit > 0 && len(r.buf) > r.limit {
		r.buf = append(r.buf[:0], r.buf[len(r.buf)-r.limit:]...)
	}
}
