package ble

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"tinygo.org/x/bluetooth"
)

// TinyGoAdapter wraps tinygo-org/bluetooth (BlueZ on Linux, CoreBluetooth on
// macOS, WinRT on Windows). On macOS peripheral addresses are CoreBluetooth
// UUIDs rather than MAC addresses; they are passed through unchanged.
type TinyGoAdapter struct {
	adapter *bluetooth.Adapter

	// mu protects the connections map.
	mu          sync.Mutex
	connections map[string]*tinygoConnection // keyed by device address
}

// NewTinyGoAdapter creates a BLE adapter on the platform's default radio.
func NewTinyGoAdapter() *TinyGoAdapter {
	return &TinyGoAdapter{
		adapter:     bluetooth.DefaultAdapter,
		connections: make(map[string]*tinygoConnection),
	}
}

func (a *TinyGoAdapter) Enable() error {
	if err := a.adapter.Enable(); err != nil {
		return err
	}

	// The adapter-level handler fires with connected=false when a
	// peripheral drops the link.
	a.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if connected {
			return
		}
		id := device.Address.String()
		a.mu.Lock()
		conn, ok := a.connections[id]
		delete(a.connections, id)
		a.mu.Unlock()
		if ok {
			conn.fireDisconnect()
		}
	})

	return nil
}

// ledServiceUUIDs returns the 16-bit LED service UUIDs in ServiceIDs order.
func ledServiceUUIDs() []bluetooth.UUID {
	ids := ServiceIDs()
	uuids := make([]bluetooth.UUID, 0, len(ids))
	for _, id := range ids {
		v, err := strconv.ParseUint(id, 16, 16)
		if err != nil {
			continue
		}
		uuids = append(uuids, bluetooth.New16BitUUID(uint16(v)))
	}
	return uuids
}

func (a *TinyGoAdapter) Scan(ctx context.Context) ([]Peripheral, error) {
	// StopScan before Scan has started is a no-op, which would leave the
	// scan running forever.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	ids := ServiceIDs()
	uuids := ledServiceUUIDs()

	var mu sync.Mutex
	var found []Peripheral
	seen := make(map[string]bool)

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			a.adapter.StopScan()
		case <-done:
		}
	}()

	err := a.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		// Covers a cancel that lands between the check above and Scan starting.
		if ctx.Err() != nil {
			adapter.StopScan()
			return
		}
		addr := result.Address.String()
		mu.Lock()
		defer mu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true

		var services []string
		for i, uuid := range uuids {
			if result.HasServiceUUID(uuid) {
				services = append(services, ids[i])
			}
		}
		found = append(found, Peripheral{
			Address:  addr,
			Name:     result.LocalName(),
			RSSI:     int(result.RSSI),
			Services: services,
		})
	})
	close(done)

	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return found, nil
}

func (a *TinyGoAdapter) Connect(ctx context.Context, address string) (Connection, error) {
	var addr bluetooth.Address
	addr.Set(address)

	// tinygo/bluetooth's Connect blocks with its own timeout and cannot be
	// cancelled, so ctx only bounds how long we wait for it.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	select {
	case <-ctx.Done():
		// Tear down a link that completes after we gave up on it.
		go func() {
			if result := <-ch; result.err == nil {
				_ = result.device.Disconnect()
			}
		}()
		return nil, fmt.Errorf("ble: connect to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return nil, fmt.Errorf("ble: connect to %s: %w", address, result.err)
		}
		device := result.device
		conn := &tinygoConnection{adapter: a, device: &device, id: device.Address.String()}

		a.mu.Lock()
		a.connections[conn.id] = conn
		a.mu.Unlock()

		return conn, nil
	}
}

func (a *TinyGoAdapter) forget(id string) {
	a.mu.Lock()
	delete(a.connections, id)
	a.mu.Unlock()
}

// Compile-time check that TinyGoAdapter implements Adapter.
var _ Adapter = (*TinyGoAdapter)(nil)

type tinygoConnection struct {
	adapter *TinyGoAdapter
	device  *bluetooth.Device
	id      string

	mu           sync.Mutex
	disconnectCb func()
}

func (c *tinygoConnection) DiscoverServices() ([]Service, error) {
	svcs, err := c.device.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}

	services := make([]Service, 0, len(svcs))
	for _, svc := range svcs {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("ble: discover characteristics of %s: %w", svc.UUID(), err)
		}
		s := Service{UUID: svc.UUID().String()}
		for i := range chars {
			s.Characteristics = append(s.Characteristics, &tinygoCharacteristic{char: &chars[i]})
		}
		services = append(services, s)
	}
	return services, nil
}

func (c *tinygoConnection) Disconnect() error {
	c.adapter.forget(c.id)
	return c.device.Disconnect()
}

func (c *tinygoConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

func (c *tinygoConnection) fireDisconnect() {
	c.mu.Lock()
	cb := c.disconnectCb
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type tinygoCharacteristic struct {
	char *bluetooth.DeviceCharacteristic
}

func (c *tinygoCharacteristic) UUID() string {
	return c.char.UUID().String()
}

func (c *tinygoCharacteristic) Write(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
