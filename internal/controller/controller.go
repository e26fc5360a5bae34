// Package controller turns user intents into LED commands. It owns the BLE
// session, processes one intent at a time and writes the resulting state back
// to the settings store.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/chaz8081/bledob/internal/ble"
	"github.com/chaz8081/bledob/internal/ble/protocol"
	"github.com/chaz8081/bledob/internal/color"
	"github.com/chaz8081/bledob/internal/settings"
)

var (
	// ErrUnknownPeripheral is returned when a connect address was not found by a scan.
	ErrUnknownPeripheral = errors.New("controller: peripheral not found")
	// ErrInvalidArgument is returned for out-of-range intent values.
	ErrInvalidArgument = errors.New("controller: invalid argument")
	// ErrStopped is returned by Do once Run has exited.
	ErrStopped = errors.New("controller: stopped")
)

const (
	eventBuffer      = 32
	brightnessMinPct = 0
	brightnessMaxPct = 100
)

type reply struct {
	res Result
	err error
}

type request struct {
	ctx    context.Context
	intent Intent
	reply  chan reply
}

// Controller serializes intents onto a BLE session.
type Controller struct {
	session *ble.Session
	store   *settings.Store

	requests chan request
	events   chan Event

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a controller driving a new session on adapter. opts.OnStatus,
// when set, is still called for every transition.
func New(adapter ble.Adapter, opts ble.SessionOptions, store *settings.Store) *Controller {
	c := &Controller{
		store:    store,
		requests: make(chan request),
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
	}

	userStatus := opts.OnStatus
	opts.OnStatus = func(st ble.Status) {
		if userStatus != nil {
			userStatus(st)
		}
		c.publish(Event{Kind: EventStatus, Status: st, Err: st.Err})
	}
	c.session = ble.NewSession(adapter, opts)
	return c
}

// Session returns the underlying BLE session.
func (c *Controller) Session() *ble.Session { return c.session }

// Events returns the event channel. Events are dropped when the channel is full.
func (c *Controller) Events() <-chan Event { return c.events }

// Run processes intents until ctx is cancelled, then disconnects.
func (c *Controller) Run(ctx context.Context) error {
	defer c.doneOnce.Do(func() { close(c.done) })

	for {
		select {
		case <-ctx.Done():
			if err := c.session.Disconnect(); err != nil {
				slog.Warn("[controller] disconnect on shutdown failed", "error", err)
			}
			return nil
		case req := <-c.requests:
			res, err := c.handle(req.ctx, req.intent)
			res.ID = req.intent.ID
			req.reply <- reply{res: res, err: err}
		}
	}
}

// Do submits in and waits for its result. An empty ID is replaced by a new ULID.
func (c *Controller) Do(ctx context.Context, in Intent) (Result, error) {
	if in.ID == "" {
		in.ID = ulid.Make().String()
	}
	req := request{ctx: ctx, intent: in, reply: make(chan reply, 1)}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-c.done:
		return Result{}, ErrStopped
	}

	select {
	case r := <-req.reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// AutoConnect connects to the last used device when auto-connect is enabled.
// It reports whether a connection was attempted.
func (c *Controller) AutoConnect(ctx context.Context) (bool, error) {
	snap := c.store.Snapshot()
	if !snap.AutoConnect || snap.LastDevice == "" {
		return false, nil
	}
	slog.Info("[controller] auto-connecting", "address", snap.LastDevice)
	_, err := c.Do(ctx, Intent{Kind: KindConnect, Address: snap.LastDevice})
	return true, err
}

func (c *Controller) handle(ctx context.Context, in Intent) (Result, error) {
	var peripherals []ble.Peripheral
	err := c.apply(ctx, in, &peripherals)

	res := c.result()
	if peripherals != nil {
		res.Peripherals = peripherals
	}

	if err != nil {
		slog.Warn("[controller] intent failed", "id", in.ID, "kind", in.Kind, "error", err)
		c.publish(Event{Kind: EventError, IntentID: in.ID, Intent: in.Kind, Err: err})
		return res, err
	}
	c.publish(Event{Kind: EventApplied, IntentID: in.ID, Intent: in.Kind})
	return res, nil
}

func (c *Controller) apply(ctx context.Context, in Intent, peripherals *[]ble.Peripheral) error {
	switch in.Kind {
	case KindStatus:
		return nil

	case KindScan:
		found, err := c.session.Scan(ctx, in.Timeout)
		if err != nil {
			return err
		}
		*peripherals = found
		c.publish(Event{Kind: EventScan, IntentID: in.ID, Intent: in.Kind, Peripherals: found})
		return nil

	case KindConnect:
		return c.connect(ctx, in)

	case KindDisconnect:
		err := c.session.Disconnect()
		c.save(func(s *settings.Snapshot) { s.PowerState = false })
		return err

	case KindPower:
		return c.setPower(in.On)

	case KindTogglePower:
		return c.setPower(!c.store.Snapshot().PowerState)

	case KindColor:
		col, err := protocol.ParseColor(in.Color)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		return c.setColor(col, color.ToHSV(col))

	case KindHSV:
		if err := in.HSV.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		return c.setColor(color.FromHSV(in.HSV), in.HSV)

	case KindBrightness:
		if err := checkPercent(in.Percent); err != nil {
			return err
		}
		return c.setBrightness(in.Percent)

	case KindAdjustBrightness:
		p := c.store.Snapshot().LastBrightness + in.Percent
		return c.setBrightness(min(max(p, brightnessMinPct), brightnessMaxPct))

	case KindEffect:
		if _, ok := protocol.EffectID(in.Effect); !ok {
			slog.Warn("[controller] unknown effect, device will use the default", "effect", in.Effect)
		}
		return c.setEffect(in.Effect)

	case KindNextEffect:
		return c.setEffect(protocol.NextEffect(c.store.Snapshot().LastEffect))

	case KindSpeed:
		if err := checkPercent(in.Percent); err != nil {
			return err
		}
		err := c.session.Send(protocol.Speed(in.Percent))
		c.save(func(s *settings.Snapshot) { s.LastEffectSpeed = in.Percent })
		return err

	case KindAutoConnect:
		c.save(func(s *settings.Snapshot) { s.AutoConnect = in.On })
		return nil
	}
	return fmt.Errorf("%w: unknown intent %v", ErrInvalidArgument, in.Kind)
}

// connect resolves the address against the last scan, scanning again when it
// is not there.
func (c *Controller) connect(ctx context.Context, in Intent) error {
	addr := strings.TrimSpace(in.Address)
	if addr == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidArgument)
	}

	p, ok := c.session.Lookup(addr)
	if !ok {
		if _, err := c.session.Scan(ctx, in.Timeout); err != nil {
			return err
		}
		if p, ok = c.session.Lookup(addr); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPeripheral, addr)
		}
	}

	if err := c.session.Connect(ctx, p); err != nil {
		return err
	}
	c.save(func(s *settings.Snapshot) {
		s.LastDevice = p.Address
		s.PowerState = true
	})
	return nil
}

func (c *Controller) setPower(on bool) error {
	err := c.session.Send(protocol.Power(on))
	c.save(func(s *settings.Snapshot) { s.PowerState = on })
	return err
}

func (c *Controller) setColor(col protocol.Color, hsv color.HSV) error {
	err := c.session.Send(col)
	c.save(func(s *settings.Snapshot) {
		s.LastColor = col.Hex()
		s.LastHSV = [3]int{hsv.H, hsv.S, hsv.V}
	})
	return err
}

func (c *Controller) setBrightness(p int) error {
	err := c.session.Send(protocol.Brightness(p))
	c.save(func(s *settings.Snapshot) { s.LastBrightness = p })
	return err
}

func (c *Controller) setEffect(name string) error {
	err := c.session.Send(protocol.Effect(name))
	c.save(func(s *settings.Snapshot) { s.LastEffect = name })
	return err
}

// save updates and persists the settings. Persistence failures are logged
// and do not fail the intent.
func (c *Controller) save(fn func(*settings.Snapshot)) {
	c.store.Update(fn)
	if err := c.store.Save(); err != nil {
		slog.Warn("[controller] saving settings failed", "path", c.store.Path(), "error", err)
	}
}

func (c *Controller) result() Result {
	return Result{
		State:       c.session.State(),
		Peer:        c.session.Peer(),
		Peripherals: c.session.Peripherals(),
		Settings:    c.store.Snapshot(),
	}
}

func (c *Controller) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
		slog.Debug("[controller] event channel full, dropping event", "kind", ev.Kind)
	}
}

func checkPercent(p int) error {
	if p < 0 || p > 100 {
		return fmt.Errorf("%w: percent must be 0-100, got %d", ErrInvalidArgument, p)
	}
	return nil
}
