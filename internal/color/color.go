// Package color converts user color input into LED color commands.
package color

import (
	"fmt"
	"math"

	"github.com/chaz8081/bledob/internal/ble/protocol"
)

// HSV is a hue/saturation/value triple. H is in degrees [0, 359], S and V are
// percentages [0, 100].
type HSV struct {
	H, S, V int
}

// Validate reports whether every component is in range.
func (c HSV) Validate() error {
	if c.H < 0 || c.H > 359 {
		return fmt.Errorf("color: hue must be 0-359, got %d", c.H)
	}
	if c.S < 0 || c.S > 100 {
		return fmt.Errorf("color: saturation must be 0-100, got %d", c.S)
	}
	if c.V < 0 || c.V > 100 {
		return fmt.Errorf("color: value must be 0-100, got %d", c.V)
	}
	return nil
}

// ParseHSV parses "H,S,V".
func ParseHSV(s string) (HSV, error) {
	var c HSV
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &c.H, &c.S, &c.V); err != nil {
		return HSV{}, fmt.Errorf("color: parse hsv %q: want H,S,V", s)
	}
	if err := c.Validate(); err != nil {
		return HSV{}, err
	}
	return c, nil
}

// FromHSV converts c to RGB. Saturation and value percentages are truncated to
// the 0-255 scale before conversion so that results match the desktop color
// picker the strip's settings were first recorded with.
func FromHSV(c HSV) protocol.Color {
	h := c.H % 360
	s := int(float64(c.S) * 2.55)
	v := int(float64(c.V) * 2.55)

	if s == 0 {
		return protocol.Color{R: uint8(v), G: uint8(v), B: uint8(v)}
	}

	hue := float64(h) / 60
	sextant := int(math.Floor(hue))
	frac := hue - float64(sextant)

	vf := float64(v) / 255
	sf := float64(s) / 255
	p := vf * (1 - sf)
	q := vf * (1 - sf*frac)
	t := vf * (1 - sf*(1-frac))

	var r, g, b float64
	switch sextant {
	case 0:
		r, g, b = vf, t, p
	case 1:
		r, g, b = q, vf, p
	case 2:
		r, g, b = p, vf, t
	case 3:
		r, g, b = p, q, vf
	case 4:
		r, g, b = t, p, vf
	default:
		r, g, b = vf, p, q
	}
	return protocol.Color{R: to8(r), G: to8(g), B: to8(b)}
}

// ToHSV converts an RGB color into an HSV triple in percent units. It is the
// approximate inverse of FromHSV and is used to keep the stored HSV in sync
// when a color arrives as hex.
func ToHSV(c protocol.Color) HSV {
	r := float64(c.R) / 255
	g := float64(c.G) / 255
	b := float64(c.B) / 255
	maxc := math.Max(r, math.Max(g, b))
	minc := math.Min(r, math.Min(g, b))
	delta := maxc - minc

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxc == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case maxc == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if maxc > 0 {
		s = delta / maxc
	}
	return HSV{
		H: int(math.Round(h)) % 360,
		S: int(math.Round(s * 100)),
		V: int(math.Round(maxc * 100)),
	}
}

func to8(f float64) uint8 {
	v := math.Round(f * 255)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
