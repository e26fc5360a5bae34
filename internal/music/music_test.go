package music

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaz8081/bledob/internal/audio"
	"github.com/chaz8081/bledob/internal/ble/protocol"
)

type recordingSender struct {
	cmds []protocol.Command
	err  error
}

func (s *recordingSender) Send(cmd protocol.Command) error {
	s.cmds = append(s.cmds, cmd)
	return s.err
}

func TestRunSendsChangedLevels(t *testing.T) {
	clip := &audio.Clip{
		Samples:    []float32{0, 0, 0.25, -0.25, 0.25, -0.25, 1, -1},
		SampleRate: 2000,
		Channels:   1,
	}
	src := NewClipSource(clip, 1000) // two samples per window
	dst := &recordingSender{}

	err := Run(context.Background(), src, dst, Options{FPS: 1000, Gain: 1})
	require.NoError(t, err)

	assert.Equal(t, []protocol.Command{
		protocol.Brightness(0),
		protocol.Brightness(25),
		protocol.Brightness(100),
	}, dst.cmds)
}

func TestRunKeepsGoingOnSendError(t *testing.T) {
	clip := &audio.Clip{Samples: []float32{0, 1, 0.5}, SampleRate: 100, Channels: 1}
	dst := &recordingSender{err: errors.New("write failed")}

	require.NoError(t, Run(context.Background(), NewClipSource(clip, 100), dst, Options{FPS: 1000, Gain: 1}))
	assert.Len(t, dst.cmds, 3)
}

type fakeDrainer struct{ calls int }

func (d *fakeDrainer) Drain() []float32 {
	d.calls++
	return []float32{0.5, -0.5}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rec := &fakeDrainer{}
	dst := &recordingSender{}
	require.NoError(t, Run(ctx, NewMicSource(rec), dst, Options{FPS: 100, Gain: 1}))

	assert.Positive(t, rec.calls)
	assert.Equal(t, []protocol.Command{protocol.Brightness(50)}, dst.cmds, "a steady level is sent once")
}

func TestRunRejectsZeroFPS(t *testing.T) {
	err := Run(context.Background(), NewMicSource(&fakeDrainer{}), &recordingSender{}, Options{})
	assert.Error(t, err)
}

func TestClipSourceWindows(t *testing.T) {
	clip := &audio.Clip{Samples: make([]float32, 10), SampleRate: 40, Channels: 1}
	src := NewClipSource(clip, 10)

	var sizes []int
	for {
		w, err := src.Next()
		if err != nil {
			break
		}
		sizes = append(sizes, len(w))
	}
	assert.Equal(t, []int{4, 4, 2}, sizes)
}
