// Package protocol encodes commands for the BLK-BLEDOB LED strip controller.
//
// Every command is a fixed 9-byte frame that starts with 0x7E and ends with
// 0xEF. The controller never answers, so the package only encodes.
package protocol

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// FrameLen is the length of every command frame.
	FrameLen = 9

	frameStart byte = 0x7E
	frameEnd   byte = 0xEF
)

// Frame is an encoded command ready to be written to the write characteristic.
type Frame [FrameLen]byte

// Bytes returns the frame as a byte slice.
func (f Frame) Bytes() []byte {
	b := make([]byte, FrameLen)
	copy(b, f[:])
	return b
}

// String formats the frame as space-separated upper-case hex, e.g. "7E 07 ... EF".
func (f Frame) String() string {
	var sb strings.Builder
	for i, b := range f {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// Command is one of Power, Color, Brightness, Effect or Speed.
// The set is closed: only this package can add variants.
type Command interface {
	encode() Frame
}

// Encode returns the frame for cmd. It is pure and never fails.
func Encode(cmd Command) Frame {
	return cmd.encode()
}

// Power switches the strip on or off.
type Power bool

func (p Power) encode() Frame {
	if p {
		return Frame{frameStart, 0x07, 0x04, 0xFF, 0x00, 0x01, 0x02, 0x01, frameEnd}
	}
	return Frame{frameStart, 0x07, 0x04, 0x00, 0x00, 0x00, 0x02, 0x01, frameEnd}
}

// Color sets a static RGB color.
type Color struct {
	R, G, B uint8
}

func (c Color) encode() Frame {
	return Frame{frameStart, 0x07, 0x05, 0x03, c.R, c.G, c.B, 0x10, frameEnd}
}

// Hex returns the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseColor parses "#rrggbb" (the leading # is optional).
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("protocol: color %q must have 6 hex digits", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("protocol: color %q: %w", s, err)
	}
	return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Brightness sets the brightness as a percentage (0-100).
type Brightness int

func (b Brightness) encode() Frame {
	return Frame{frameStart, 0x04, 0x01, PercentToLevel(int(b)), 0x01, 0xFF, 0x02, 0x01, frameEnd}
}

// Speed sets the effect speed as a percentage (0-100).
type Speed int

func (s Speed) encode() Frame {
	return Frame{frameStart, 0x07, 0x02, PercentToLevel(int(s)), 0xFF, 0xFF, 0xFF, 0x00, frameEnd}
}

// Effect selects a built-in animation by name. Unknown names select the
// first effect ("three color jump").
type Effect string

func (e Effect) encode() Frame {
	id, ok := EffectID(string(e))
	if !ok {
		id = DefaultEffectID
	}
	return Frame{frameStart, 0x07, 0x03, id, 0x03, 0xFF, 0xFF, 0x00, frameEnd}
}

// PercentToLevel scales 0-100 to 0-255 as round(percent * 2.55), rounding
// halves to even, clamped to the byte range.
func PercentToLevel(percent int) byte {
	level := math.RoundToEven(float64(percent) * 2.55)
	switch {
	case level < 0:
		return 0
	case level > 255:
		return 255
	}
	return byte(level)
}
