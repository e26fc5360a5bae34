package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/chaz8081/bledob/internal/ble"
)

type fakeChar struct {
	mu     sync.Mutex
	writes [][]byte
}

func (c *fakeChar) UUID() string { return "0000ffd4-0000-1000-8000-00805f9b34fb" }

func (c *fakeChar) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeChar) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.writes...)
}

type fakeConn struct {
	char *fakeChar

	mu   sync.Mutex
	lost func()
}

func (c *fakeConn) DiscoverServices() ([]ble.Service, error) {
	return []ble.Service{{UUID: "ffd0", Characteristics: []ble.Characteristic{c.char}}}, nil
}

func (c *fakeConn) Disconnect() error { return nil }

func (c *fakeConn) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lost = cb
}

func (c *fakeConn) drop() {
	c.mu.Lock()
	cb := c.lost
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// fakeAdapter advertises a fixed set of peripherals and hands out one
// characteristic shared by all connections.
type fakeAdapter struct {
	peripherals []ble.Peripheral
	connectErr  error
	char        *fakeChar

	mu    sync.Mutex
	scans int
	conn  *fakeConn
}

func newFakeAdapter(peripherals ...ble.Peripheral) *fakeAdapter {
	return &fakeAdapter{peripherals: peripherals, char: &fakeChar{}}
}

func (a *fakeAdapter) Enable() error { return nil }

func (a *fakeAdapter) Scan(_ context.Context) ([]ble.Peripheral, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scans++
	return a.peripherals, nil
}

func (a *fakeAdapter) Connect(_ context.Context, _ string) (ble.Connection, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conn = &fakeConn{char: a.char}
	return a.conn, nil
}

func (a *fakeAdapter) scanCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scans
}

func (a *fakeAdapter) lastConn() *fakeConn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn
}

var errRefused = errors.New("connection refused")
