package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaz8081/bledob/internal/ble/protocol"
)

// Failure classes reported by Session. Use errors.Is to test for them.
var (
	ErrDiscovery  = errors.New("ble: discovery failed")
	ErrConnection = errors.New("ble: connection failed")
	ErrWrite      = errors.New("ble: write failed")
	ErrLinkLost   = errors.New("ble: link lost")
)

// State is the connection state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status describes a state transition. Err is set when the transition was
// caused by a failure.
type Status struct {
	State State
	Peer  Peripheral
	Err   error
}

// SessionOptions configures the Session behavior.
type SessionOptions struct {
	ScanTimeout    time.Duration // default scan duration when the caller passes 0
	ConnectTimeout time.Duration // bound on a single connect attempt, 0 = none
	FilterServices bool          // keep only peripherals advertising an LED service
	NamePrefix     string        // keep only peripherals whose name has this prefix (case-insensitive)

	// OnStatus is called on every state transition. It runs on the goroutine
	// that caused the transition and must not call back into the Session.
	OnStatus func(Status)
}

// DefaultSessionOptions returns sensible defaults.
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		ScanTimeout:    5 * time.Second,
		ConnectTimeout: 15 * time.Second,
	}
}

// Session owns the lifecycle of one BLE connection to an LED controller.
// Scan, Connect, Disconnect and Send are serialized so that at most one
// transport operation is in flight at any time. Safe for concurrent use.
type Session struct {
	adapter Adapter
	opts    SessionOptions

	// mu serializes transport operations.
	mu      sync.Mutex
	enabled bool

	// stateMu guards the fields below; it is never held across a transport call.
	stateMu sync.RWMutex
	state   State
	peer    Peripheral
	conn    Connection
	char    Characteristic
	scanned []Peripheral
}

// NewSession creates a disconnected session on top of adapter.
func NewSession(adapter Adapter, opts SessionOptions) *Session {
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 5 * time.Second
	}
	return &Session{
		adapter: adapter,
		opts:    opts,
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Peer returns the peripheral the session is connected (or connecting) to.
func (s *Session) Peer() Peripheral {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.peer
}

// Peripherals returns a copy of the most recent scan result.
func (s *Session) Peripherals() []Peripheral {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return slices.Clone(s.scanned)
}

// Lookup finds a peripheral by address in the most recent scan result.
func (s *Session) Lookup(address string) (Peripheral, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	for _, p := range s.scanned {
		if strings.EqualFold(p.Address, address) {
			return p, true
		}
	}
	return Peripheral{}, false
}

// Scan discovers peripherals for timeout (or the configured default when
// timeout is 0). The result replaces the previous scan snapshot as a whole.
// Scanning does not change the connection state.
func (s *Session) Scan(ctx context.Context, timeout time.Duration) ([]Peripheral, error) {
	if timeout <= 0 {
		timeout = s.opts.ScanTimeout
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enable(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := s.adapter.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	result := s.filter(found)

	s.stateMu.Lock()
	s.scanned = result
	s.stateMu.Unlock()

	slog.Info("[BLE] scan completed", "found", len(found), "kept", len(result))
	return slices.Clone(result), nil
}

// filter applies the service and name filters to scan results.
func (s *Session) filter(found []Peripheral) []Peripheral {
	result := make([]Peripheral, 0, len(found))
	prefix := strings.ToLower(s.opts.NamePrefix)
	for _, p := range found {
		if s.opts.FilterServices && len(p.Services) == 0 {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(p.Name), prefix) {
			continue
		}
		result = append(result, p)
	}
	return result
}

// Connect establishes a connection to p and resolves its write
// characteristic. On failure the session is left disconnected with no open
// link. Connecting while connected to another peripheral disconnects it first;
// connecting to the current peer is a no-op.
func (s *Session) Connect(ctx context.Context, p Peripheral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.State() == StateConnected {
		if strings.EqualFold(s.Peer().Address, p.Address) {
			return nil
		}
		if err := s.disconnectLocked(); err != nil {
			slog.Warn("[BLE] disconnect before switching peripheral failed", "error", err)
		}
	}

	s.transition(Status{State: StateConnecting, Peer: p}, nil, nil)

	var dropped atomic.Bool
	conn, char, err := s.dial(ctx, p, &dropped)
	if err != nil {
		s.transition(Status{State: StateDisconnected, Peer: p, Err: err}, nil, nil)
		slog.Warn("[BLE] connect failed", "address", p.Address, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrConnection, p.Address, err)
	}

	s.transition(Status{State: StateConnected, Peer: p}, conn, char)

	// A drop reported before the transition found no current link to clear.
	if dropped.Load() {
		s.linkLost(conn)
		return fmt.Errorf("%w: %s: %w", ErrConnection, p.Address, ErrLinkLost)
	}

	slog.Info("[BLE] connected", "address", p.Address, "name", p.Name, "char", char.UUID())
	return nil
}

// dial opens the link and resolves the write characteristic (caller must
// hold mu). The link is closed again if resolution fails. The disconnect
// callback is registered as soon as the link exists; drops are recorded in
// dropped.
func (s *Session) dial(ctx context.Context, p Peripheral, dropped *atomic.Bool) (Connection, Characteristic, error) {
	if err := s.enable(); err != nil {
		return nil, nil, err
	}

	if s.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ConnectTimeout)
		defer cancel()
	}

	conn, err := s.adapter.Connect(ctx, p.Address)
	if err != nil {
		return nil, nil, err
	}
	conn.OnDisconnect(func() {
		dropped.Store(true)
		s.linkLost(conn)
	})

	services, err := conn.DiscoverServices()
	if err != nil {
		_ = conn.Disconnect()
		return nil, nil, fmt.Errorf("discover services: %w", err)
	}

	char, err := Resolve(services)
	if err != nil {
		_ = conn.Disconnect()
		return nil, nil, err
	}
	return conn, char, nil
}

// Disconnect releases the connection. It is a no-op when not connected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnectLocked()
}

// disconnectLocked tears the link down (caller must hold mu).
func (s *Session) disconnectLocked() error {
	s.stateMu.RLock()
	conn, peer, state := s.conn, s.peer, s.state
	s.stateMu.RUnlock()

	if state != StateConnected || conn == nil {
		return nil
	}

	s.transition(Status{State: StateDisconnecting, Peer: peer}, conn, nil)
	err := conn.Disconnect()
	s.transition(Status{State: StateDisconnected, Peer: peer, Err: err}, nil, nil)

	if err != nil {
		return fmt.Errorf("ble: disconnect %s: %w", peer.Address, err)
	}
	slog.Info("[BLE] disconnected", "address", peer.Address)
	return nil
}

// Send encodes cmd and writes it without response. When the session is not
// connected the command is dropped and Send returns nil. A failed write
// leaves the session connected.
func (s *Session) Send(cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stateMu.RLock()
	state, char, peer := s.state, s.char, s.peer
	s.stateMu.RUnlock()

	if state != StateConnected || char == nil {
		slog.Debug("[BLE] not connected, dropping command")
		return nil
	}

	frame := protocol.Encode(cmd)
	if err := char.Write(frame.Bytes()); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, peer.Address, err)
	}
	slog.Debug("[BLE] frame sent", "frame", frame.String())
	return nil
}

// linkLost handles a link drop reported by the transport. Drops of links the
// session no longer owns (or is tearing down itself) are ignored.
func (s *Session) linkLost(conn Connection) {
	s.stateMu.Lock()
	if s.conn != conn || s.state != StateConnected {
		s.stateMu.Unlock()
		return
	}
	peer := s.peer
	s.state = StateDisconnected
	s.peer = Peripheral{}
	s.conn = nil
	s.char = nil
	s.stateMu.Unlock()

	slog.Warn("[BLE] link lost", "address", peer.Address)
	s.notify(Status{State: StateDisconnected, Peer: peer, Err: ErrLinkLost})
}

// transition records a new state and reports it.
func (s *Session) transition(st Status, conn Connection, char Characteristic) {
	s.stateMu.Lock()
	s.state = st.State
	s.conn = conn
	s.char = char
	if st.State == StateDisconnected {
		s.peer = Peripheral{}
	} else {
		s.peer = st.Peer
	}
	s.stateMu.Unlock()

	s.notify(st)
}

func (s *Session) notify(st Status) {
	if s.opts.OnStatus != nil {
		s.opts.OnStatus(st)
	}
}

// enable powers the adapter on once (caller must hold mu).
func (s *Session) enable() error {
	if s.enabled {
		return nil
	}
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("enable adapter: %w", err)
	}
	s.enabled = true
	return nil
}
