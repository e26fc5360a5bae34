package protocol

import "sort"

// DefaultEffectID is sent when an effect name is not in the table.
const DefaultEffectID byte = 0x87

var effects = map[string]byte{
	"three color jump":         0x87,
	"seven color jump":         0x88,
	"three color cross fade":   0x89,
	"seven color cross fade":   0x8a,
	"red fade":                 0x8b,
	"green fade":               0x8c,
	"blue fade":                0x8d,
	"yellow fade":              0x8e,
	"cyan fade":                0x8f,
	"magenta fade":             0x90,
	"white fade":               0x91,
	"red green cross fade":     0x92,
	"red blue cross fade":      0x93,
	"green blue cross fade":    0x94,
	"seven color strobe flash": 0x95,
	"red strobe flash":         0x96,
	"green strobe flash":       0x97,
	"blue strobe flash":        0x98,
	"yellow strobe flash":      0x99,
	"cyan strobe flash":        0x9a,
	"magenta strobe flash":     0x9b,
	"white strobe flash":       0x9c,
}

// EffectID looks up the controller id of a named effect.
func EffectID(name string) (byte, bool) {
	id, ok := effects[name]
	return id, ok
}

// EffectNames returns all effect names in alphabetical order.
func EffectNames() []string {
	names := make([]string, 0, len(effects))
	for name := range effects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextEffect returns the effect following name in alphabetical order,
// wrapping around. An unknown name yields the first effect.
func NextEffect(name string) string {
	names := EffectNames()
	for i, n := range names {
		if n == name {
			return names[(i+1)%len(names)]
		}
	}
	return names[0]
}
