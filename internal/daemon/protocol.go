package daemon

import (
	"github.com/chaz8081/bledob/internal/ble"
	"github.com/chaz8081/bledob/internal/settings"
)

// Request is sent from the CLI client to the daemon.
type Request struct {
	ID        string  `json:"id"`
	Command   string  `json:"command"` // controller intent name: status, scan, connect, power, ...
	Address   string  `json:"address,omitempty"`
	On        bool    `json:"on,omitempty"`
	Color     string  `json:"color,omitempty"`
	HSV       *[3]int `json:"hsv,omitempty"`
	Percent   int     `json:"percent,omitempty"`
	Effect    string  `json:"effect,omitempty"`
	TimeoutMS int64   `json:"timeout_ms,omitempty"`
}

// Response is sent from the daemon back to the CLI client.
type Response struct {
	ID          string             `json:"id"`
	State       string             `json:"state,omitempty"`  // disconnected, connecting, connected, disconnecting
	Device      string             `json:"device,omitempty"` // address of the connected peripheral
	Peripherals []Peripheral       `json:"peripherals,omitempty"`
	Settings    *settings.Snapshot `json:"settings,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Peripheral is the wire form of a discovered device.
type Peripheral struct {
	Address  string   `json:"address"`
	Name     string   `json:"name"`
	RSSI     int      `json:"rssi"`
	Services []string `json:"services,omitempty"`
}

func peripheralsToWire(ps []ble.Peripheral) []Peripheral {
	if len(ps) == 0 {
		return nil
	}
	out := make([]Peripheral, len(ps))
	for i, p := range ps {
		out[i] = Peripheral{Address: p.Address, Name: p.DisplayName(), RSSI: p.RSSI, Services: p.Services}
	}
	return out
}
