package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/bledob/internal/audio"
	"github.com/chaz8081/bledob/internal/ble"
	"github.com/chaz8081/bledob/internal/ble/bluez"
	"github.com/chaz8081/bledob/internal/ble/protocol"
	"github.com/chaz8081/bledob/internal/color"
	"github.com/chaz8081/bledob/internal/config"
	"github.com/chaz8081/bledob/internal/daemon"
	"github.com/chaz8081/bledob/internal/music"
	"github.com/chaz8081/bledob/internal/settings"
)

func runEffects() error {
	for _, name := range protocol.EffectNames() {
		id, _ := protocol.EffectID(name)
		fmt.Printf("0x%02X  %s\n", id, name)
	}
	return nil
}

func runFrame(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: bledob frame power|color|hsv|brightness|effect|speed [ARG]")
	}
	cmd, err := parseCommand(args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Println(protocol.Encode(cmd))
	return nil
}

// parseCommand builds a protocol command from a kind and its argument.
func parseCommand(kind, arg string) (protocol.Command, error) {
	switch kind {
	case "power":
		switch arg {
		case "on":
			return protocol.Power(true), nil
		case "off":
			return protocol.Power(false), nil
		}
		return nil, fmt.Errorf("power: want on or off, got %q", arg)
	case "color":
		return protocol.ParseColor(arg)
	case "hsv":
		c, err := color.ParseHSV(arg)
		if err != nil {
			return nil, err
		}
		return color.FromHSV(c), nil
	case "brightness":
		p, err := parsePercent(arg)
		if err != nil {
			return nil, err
		}
		return protocol.Brightness(p), nil
	case "speed":
		p, err := parsePercent(arg)
		if err != nil {
			return nil, err
		}
		return protocol.Speed(p), nil
	case "effect":
		if arg == "" {
			return nil, fmt.Errorf("effect: name required")
		}
		return protocol.Effect(arg), nil
	}
	return nil, fmt.Errorf("unknown command kind %q", kind)
}

// runMusic opens its own BLE session, so the daemon must not hold the link.
func runMusic(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("music", flag.ExitOnError)
	wavPath := fs.String("wav", "", "play brightness from a WAV file instead of the microphone")
	address := fs.String("address", "", "peripheral address (default: last used device)")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := *address
	if addr == "" {
		addr = settings.Open(cfg.SettingsPath()).Snapshot().LastDevice
	}
	if addr == "" {
		return fmt.Errorf("no device: pass --address or connect once with the daemon")
	}
	if err := checkDaemonIdle(ctx, cfg.SocketPath()); err != nil {
		return err
	}

	var src music.Source
	if *wavPath != "" {
		clip, err := audio.LoadWAV(*wavPath)
		if err != nil {
			return err
		}
		slog.Info("[music] playing file", "path", *wavPath, "seconds", len(clip.Mono())/max(clip.SampleRate, 1))
		src = music.NewClipSource(clip, cfg.Music.FPS)
	} else {
		rec, err := audio.NewRecorder(cfg.Music.SampleRate, cfg.Music.Channels)
		if err != nil {
			return fmt.Errorf("initializing audio recorder: %w", err)
		}
		defer rec.Close()
		if err := rec.Start(); err != nil {
			return err
		}
		src = music.NewMicSource(rec)
	}

	preflight(cfg)
	sess := ble.NewSession(ble.NewTinyGoAdapter(), sessionOptions(cfg))
	if _, err := sess.Scan(ctx, 0); err != nil {
		return err
	}
	p, ok := sess.Lookup(addr)
	if !ok {
		return fmt.Errorf("device %s not found", addr)
	}
	if err := sess.Connect(ctx, p); err != nil {
		return err
	}
	defer sess.Disconnect()

	fmt.Printf("Music mode on %s at %d fps. Ctrl+C to stop.\n", p.DisplayName(), cfg.Music.FPS)
	return music.Run(ctx, src, sess, music.Options{FPS: cfg.Music.FPS, Gain: cfg.Music.Gain})
}

// checkDaemonIdle fails when a daemon on socket holds a BLE link. An
// unreachable daemon counts as idle.
func checkDaemonIdle(ctx context.Context, socket string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, _ := daemon.Call(ctx, socket, daemon.Request{Command: "status"})
	switch resp.State {
	case ble.StateConnected.String(), ble.StateConnecting.String():
		return fmt.Errorf("daemon is %s to %s; run `bledob disconnect` first", resp.State, resp.Device)
	}
	return nil
}

func runDoctor(cfg *config.Config) error {
	ok := func(format string, a ...any) { fmt.Printf("  [ok]   "+format+"\n", a...) }
	bad := func(format string, a ...any) { fmt.Printf("  [fail] "+format+"\n", a...) }

	fmt.Println("bledob doctor")

	if path := config.DefaultConfigPath(); fileExists(path) {
		ok("config %s", path)
	} else {
		ok("config: built-in defaults (run bledob init-config to write %s)", path)
	}

	snap := settings.Open(cfg.SettingsPath()).Snapshot()
	ok("settings %s (last device %q, auto-connect %t)", cfg.SettingsPath(), snap.LastDevice, snap.AutoConnect)

	if runtime.GOOS == "linux" {
		doctorBluez(cfg, snap.LastDevice, ok, bad)
	} else {
		ok("platform %s: Bluetooth managed by the OS", runtime.GOOS)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := daemon.Call(ctx, cfg.SocketPath(), daemon.Request{Command: "status"})
	if err != nil {
		bad("daemon %s: %v", cfg.SocketPath(), err)
	} else {
		ok("daemon %s (state %s)", cfg.SocketPath(), resp.State)
	}
	return nil
}

func doctorBluez(cfg *config.Config, lastDevice string, ok, bad func(string, ...any)) {
	bz, err := bluez.Dial(cfg.BLE.Adapter)
	if err != nil {
		bad("bluez: %v", err)
		return
	}
	defer bz.Close()
	ok("bluez reachable on the system bus")

	powered, err := bz.Powered()
	switch {
	case err != nil:
		bad("adapter %s: %v", cfg.BLE.Adapter, err)
	case powered:
		ok("adapter %s powered", cfg.BLE.Adapter)
	default:
		bad("adapter %s is off (set ble.power_on or run bluetoothctl power on)", cfg.BLE.Adapter)
	}

	if lastDevice == "" {
		return
	}
	dev := bz.Device(lastDevice)
	switch {
	case !dev.Known:
		bad("device %s unknown to bluez (run bledob scan)", lastDevice)
	default:
		ok("device %s known (connected %t, paired %t)", lastDevice, dev.Connected, dev.Paired)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
