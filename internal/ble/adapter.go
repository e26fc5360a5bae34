// Package ble provides the BLE device session for BLK-BLEDOB LED strip
// controllers. It handles discovery, connection management, write
// characteristic negotiation and command transmission over Bluetooth Low Energy.
package ble

import "context"

// Characteristic represents a BLE GATT characteristic.
type Characteristic interface {
	// UUID returns the characteristic identifier as reported by the stack,
	// either in short or full 128-bit form.
	UUID() string
	// Write sends data without waiting for a response from the peripheral.
	Write(data []byte) error
}

// Service is a discovered GATT service and its characteristics, in
// discovery order.
type Service struct {
	UUID            string
	Characteristics []Characteristic
}

// Peripheral is a device observed during a scan. It is never mutated; a new
// scan produces new values.
type Peripheral struct {
	Address  string   // platform identifier (MAC on Linux, CoreBluetooth UUID on macOS)
	Name     string   // advertised local name, may be empty
	RSSI     int      // informational only
	Services []string // known LED service ids seen in the advertisement (short form)
}

// DisplayName returns the advertised name or a placeholder.
func (p Peripheral) DisplayName() string {
	if p.Name == "" {
		return "Unknown Device"
	}
	return p.Name
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// DiscoverServices lists all services and their characteristics.
	DiscoverServices() ([]Service, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the link drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter.
	Enable() error
	// Scan discovers BLE peripherals until ctx is done.
	Scan(ctx context.Context) ([]Peripheral, error)
	// Connect establishes a connection to the peripheral with the given address.
	Connect(ctx context.Context, address string) (Connection, error)
}
