package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/chaz8081/bledob/internal/ble"
	"github.com/chaz8081/bledob/internal/ble/bluez"
	"github.com/chaz8081/bledob/internal/config"
	"github.com/chaz8081/bledob/internal/controller"
	"github.com/chaz8081/bledob/internal/daemon"
	"github.com/chaz8081/bledob/internal/hotkey"
	"github.com/chaz8081/bledob/internal/settings"
)

func sessionOptions(cfg *config.Config) ble.SessionOptions {
	opts := ble.DefaultSessionOptions()
	opts.ScanTimeout = cfg.BLE.ScanTimeout
	opts.ConnectTimeout = cfg.BLE.ConnectTimeout
	opts.FilterServices = cfg.BLE.FilterServices
	opts.NamePrefix = cfg.BLE.NamePrefix
	return opts
}

// preflight makes sure the BlueZ adapter is powered on Linux. Elsewhere the
// platform stack manages the radio.
func preflight(cfg *config.Config) {
	if runtime.GOOS != "linux" || !cfg.BLE.PowerOn {
		return
	}
	bz, err := bluez.Dial(cfg.BLE.Adapter)
	if err != nil {
		slog.Warn("[BLE] bluez preflight skipped", "error", err)
		return
	}
	defer bz.Close()

	changed, err := bz.EnsurePowered()
	if err != nil {
		slog.Warn("[BLE] could not power adapter", "adapter", cfg.BLE.Adapter, "error", err)
		return
	}
	if changed {
		slog.Info("[BLE] adapter powered on", "adapter", cfg.BLE.Adapter)
	}
}

func runDaemon(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	preflight(cfg)

	store := settings.Open(cfg.SettingsPath())
	ctrl := controller.New(ble.NewTinyGoAdapter(), sessionOptions(cfg), store)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := ctrl.Run(ctx); err != nil {
			slog.Error("[controller] stopped", "error", err)
		}
	}()

	go logEvents(ctx, ctrl.Events())

	go func() {
		if _, err := ctrl.AutoConnect(ctx); err != nil {
			slog.Warn("[controller] auto-connect failed", "error", err)
		}
	}()

	if cfg.Hotkey.Enabled {
		listener := startHotkeys(ctx, cfg, ctrl)
		defer listener.Stop()
	}

	printBanner(cfg, store)

	err := daemon.NewServer(ctrl, cfg.SocketPath()).Serve(ctx)
	stop()
	<-runDone
	slog.Info("daemon stopped")
	return err
}

func startHotkeys(ctx context.Context, cfg *config.Config, ctrl *controller.Controller) *hotkey.Listener {
	bindings := make([]hotkey.Binding, len(cfg.Hotkey.Bindings))
	for i, b := range cfg.Hotkey.Bindings {
		bindings[i] = hotkey.Binding{Keys: b.Keys, Action: b.Action}
		slog.Info("[hotkey] bound", "keys", strings.Join(b.Keys, "+"), "action", b.Action)
	}

	listener := hotkey.NewListener(bindings)
	go listener.Start()
	go hotkey.Dispatch(ctx, listener.Events(), ctrl)
	return listener
}

func logEvents(ctx context.Context, events <-chan controller.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			switch ev.Kind {
			case controller.EventStatus:
				slog.Info("[BLE] state", "state", ev.Status.State, "address", ev.Status.Peer.Address, "error", ev.Err)
			case controller.EventScan:
				slog.Info("[BLE] scan", "peripherals", len(ev.Peripherals))
			case controller.EventError:
				slog.Debug("[controller] intent error", "id", ev.IntentID, "intent", ev.Intent, "error", ev.Err)
			}
		}
	}
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, store *settings.Store) {
	snap := store.Snapshot()
	fmt.Fprintln(os.Stderr, "=== bledob ===")
	fmt.Fprintf(os.Stderr, "  Socket:   %s\n", cfg.SocketPath())
	fmt.Fprintf(os.Stderr, "  Settings: %s\n", store.Path())
	fmt.Fprintf(os.Stderr, "  Scan:     %s (connect timeout %s)\n", cfg.BLE.ScanTimeout, cfg.BLE.ConnectTimeout)
	if snap.AutoConnect && snap.LastDevice != "" {
		fmt.Fprintf(os.Stderr, "  Auto:     %s\n", snap.LastDevice)
	}
	fmt.Fprintf(os.Stderr, "  Hotkeys:  %t\n", cfg.Hotkey.Enabled)
	fmt.Fprintln(os.Stderr, "==============")
}
