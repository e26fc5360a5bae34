// Package daemon exposes the controller over a unix socket so that short-lived
// CLI invocations can drive a long-lived BLE connection.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/chaz8081/bledob/internal/color"
	"github.com/chaz8081/bledob/internal/controller"
)

// ErrAlreadyRunning is returned by Serve when another daemon answers on the socket.
var ErrAlreadyRunning = errors.New("daemon: already running")

// Doer processes controller intents.
type Doer interface {
	Do(ctx context.Context, in controller.Intent) (controller.Result, error)
}

// Server accepts one JSON request per connection.
type Server struct {
	ctrl   Doer
	socket string

	wg sync.WaitGroup
}

// NewServer creates a server for ctrl listening on socket.
func NewServer(ctrl Doer, socket string) *Server {
	return &Server{ctrl: ctrl, socket: socket}
}

// Serve listens until ctx is cancelled. A stale socket file is removed first;
// a socket with a live listener is left alone.
func (s *Server) Serve(ctx context.Context) error {
	if conn, err := net.DialTimeout("unix", s.socket, time.Second); err == nil {
		conn.Close()
		return fmt.Errorf("%w on %s", ErrAlreadyRunning, s.socket)
	}
	_ = os.Remove(s.socket)
	ln, err := net.Listen("unix", s.socket)
	if err != nil {
		return fmt.Errorf("daemon: listen %s: %w", s.socket, err)
	}
	if err := os.Chmod(s.socket, 0700); err != nil {
		ln.Close()
		return fmt.Errorf("daemon: chmod %s: %w", s.socket, err)
	}
	defer os.Remove(s.socket)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	slog.Info("[daemon] listening", "socket", s.socket)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("daemon: accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		_ = json.NewEncoder(conn).Encode(Response{Error: "invalid request: " + err.Error()})
		return
	}

	resp := s.handleRequest(ctx, req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		slog.Debug("[daemon] write response failed", "id", req.ID, "error", err)
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) Response {
	in, err := toIntent(req)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}

	slog.Debug("[daemon] request", "id", req.ID, "command", req.Command)
	res, err := s.ctrl.Do(ctx, in)

	snap := res.Settings
	resp := Response{
		ID:          req.ID,
		State:       res.State.String(),
		Device:      res.Peer.Address,
		Peripherals: peripheralsToWire(res.Peripherals),
		Settings:    &snap,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func toIntent(req Request) (controller.Intent, error) {
	kind, ok := controller.ParseKind(req.Command)
	if !ok {
		return controller.Intent{}, fmt.Errorf("unknown command: %q", req.Command)
	}

	in := controller.Intent{
		ID:      req.ID,
		Kind:    kind,
		Address: req.Address,
		On:      req.On,
		Color:   req.Color,
		Percent: req.Percent,
		Effect:  req.Effect,
		Timeout: time.Duration(req.TimeoutMS) * time.Millisecond,
	}
	if kind == controller.KindHSV {
		if req.HSV == nil {
			return controller.Intent{}, fmt.Errorf("hsv command requires hsv values")
		}
		in.HSV = color.HSV{H: req.HSV[0], S: req.HSV[1], V: req.HSV[2]}
	}
	return in, nil
}
