package controller

import (
	"fmt"
	"time"

	"github.com/chaz8081/bledob/internal/ble"
	"github.com/chaz8081/bledob/internal/color"
	"github.com/chaz8081/bledob/internal/settings"
)

// Kind tags an Intent.
type Kind int

const (
	KindStatus Kind = iota
	KindScan
	KindConnect
	KindDisconnect
	KindPower
	KindTogglePower
	KindColor
	KindHSV
	KindBrightness
	KindAdjustBrightness
	KindEffect
	KindNextEffect
	KindSpeed
	KindAutoConnect
)

var kindNames = map[Kind]string{
	KindStatus:           "status",
	KindScan:             "scan",
	KindConnect:          "connect",
	KindDisconnect:       "disconnect",
	KindPower:            "power",
	KindTogglePower:      "toggle",
	KindColor:            "color",
	KindHSV:              "hsv",
	KindBrightness:       "brightness",
	KindAdjustBrightness: "adjust-brightness",
	KindEffect:           "effect",
	KindNextEffect:       "next-effect",
	KindSpeed:            "speed",
	KindAutoConnect:      "auto-connect",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// Intent is a user request. Only the fields relevant to Kind are read.
type Intent struct {
	ID      string
	Kind    Kind
	Address string        // KindConnect
	On      bool          // KindPower, KindAutoConnect
	Color   string        // KindColor, "#rrggbb"
	HSV     color.HSV     // KindHSV
	Percent int           // KindBrightness, KindSpeed; delta for KindAdjustBrightness
	Effect  string        // KindEffect
	Timeout time.Duration // KindScan, 0 = session default
}

// Result is the outcome of a processed Intent.
type Result struct {
	ID          string
	State       ble.State
	Peer        ble.Peripheral
	Peripherals []ble.Peripheral
	Settings    settings.Snapshot
}

// EventKind tags an Event.
type EventKind int

const (
	EventStatus EventKind = iota // session state transition
	EventScan                    // scan finished
	EventApplied                 // intent processed
	EventError                   // intent failed
)

// Event is published on the Events channel.
type Event struct {
	Kind        EventKind
	IntentID    string
	Intent      Kind
	Status      ble.Status
	Peripherals []ble.Peripheral
	Err         error
}
