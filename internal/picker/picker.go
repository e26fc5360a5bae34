// Package picker samples the screen color under the mouse cursor using
// robotgo.
package picker

import (
	"context"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/chaz8081/bledob/internal/ble/protocol"
)

// Picker reads pixel colors from the screen.
type Picker struct {
	locate func() (int, int)
	pixel  func(x, y int) string
}

// New creates a Picker backed by robotgo.
func New() *Picker {
	return &Picker{
		locate: robotgo.Location,
		pixel: func(x, y int) string {
			return robotgo.GetPixelColor(x, y)
		},
	}
}

// Pick returns the color of the pixel under the cursor.
func (p *Picker) Pick() (protocol.Color, error) {
	x, y := p.locate()
	hex := p.pixel(x, y)
	c, err := protocol.ParseColor(hex)
	if err != nil {
		return protocol.Color{}, fmt.Errorf("picker: pixel at (%d,%d): %w", x, y, err)
	}
	return c, nil
}

// PickAfter waits delay so the user can move the cursor, then picks.
func (p *Picker) PickAfter(ctx context.Context, delay time.Duration) (protocol.Color, error) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return protocol.Color{}, ctx.Err()
	case <-t.C:
	}
	return p.Pick()
}
