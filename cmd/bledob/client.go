package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/chaz8081/bledob/internal/ble/protocol"
	"github.com/chaz8081/bledob/internal/color"
	"github.com/chaz8081/bledob/internal/config"
	"github.com/chaz8081/bledob/internal/daemon"
	"github.com/chaz8081/bledob/internal/picker"
)

// call sends req to the daemon, allowing enough time for a scan plus a
// connect attempt.
func call(cfg *config.Config, req daemon.Request) (daemon.Response, error) {
	timeout := cfg.BLE.ScanTimeout + cfg.BLE.ConnectTimeout + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return daemon.Call(ctx, cfg.SocketPath(), req)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSimple(cfg *config.Config, command string) error {
	resp, err := call(cfg, daemon.Request{Command: command})
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func runScan(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	timeout := fs.Duration("timeout", cfg.BLE.ScanTimeout, "scan duration")
	fs.Parse(args)

	cfg.BLE.ScanTimeout = *timeout
	resp, err := call(cfg, daemon.Request{Command: "scan", TimeoutMS: timeout.Milliseconds()})
	if err != nil {
		return err
	}

	if len(resp.Peripherals) == 0 {
		fmt.Println("No devices found.")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tRSSI\tLED")
	for _, p := range resp.Peripherals {
		led := ""
		if len(p.Services) > 0 {
			led = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Address, p.Name, p.RSSI, led)
	}
	return tw.Flush()
}

func runConnect(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: bledob connect ADDRESS")
	}
	resp, err := call(cfg, daemon.Request{Command: "connect", Address: args[0]})
	if err != nil {
		return err
	}
	fmt.Printf("Connected: %s\n", resp.Device)
	return nil
}

func runPower(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: bledob power on|off|toggle")
	}
	req := daemon.Request{Command: "power"}
	switch args[0] {
	case "on":
		req.On = true
	case "off":
	case "toggle":
		req.Command = "toggle"
	default:
		return fmt.Errorf("power: want on, off or toggle, got %q", args[0])
	}
	return runRequest(cfg, req)
}

func runColor(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("color", flag.ExitOnError)
	hsv := fs.String("hsv", "", "hue,saturation,value (0-359,0-100,0-100)")
	pick := fs.Bool("pick", false, "use the screen color under the mouse cursor")
	delay := fs.Duration("delay", 3*time.Second, "time to move the cursor before --pick samples")
	fs.Parse(args)

	switch {
	case *hsv != "":
		c, err := color.ParseHSV(*hsv)
		if err != nil {
			return err
		}
		return runRequest(cfg, daemon.Request{Command: "hsv", HSV: &[3]int{c.H, c.S, c.V}})

	case *pick:
		fmt.Printf("Move the cursor to a color, sampling in %s...\n", *delay)
		c, err := picker.New().PickAfter(context.Background(), *delay)
		if err != nil {
			return err
		}
		fmt.Printf("Picked %s\n", c.Hex())
		return runRequest(cfg, daemon.Request{Command: "color", Color: c.Hex()})

	case fs.NArg() == 1:
		if _, err := protocol.ParseColor(fs.Arg(0)); err != nil {
			return err
		}
		return runRequest(cfg, daemon.Request{Command: "color", Color: fs.Arg(0)})
	}
	return fmt.Errorf("usage: bledob color HEX | --hsv H,S,V | --pick")
}

func runPercent(cfg *config.Config, command string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: bledob %s PERCENT", command)
	}
	p, err := parsePercent(args[0])
	if err != nil {
		return err
	}
	return runRequest(cfg, daemon.Request{Command: command, Percent: p})
}

func runEffect(cfg *config.Config, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: bledob effect NAME (see bledob effects)")
	}
	if _, ok := protocol.EffectID(args[0]); !ok {
		return fmt.Errorf("unknown effect %q (see bledob effects)", args[0])
	}
	return runRequest(cfg, daemon.Request{Command: "effect", Effect: args[0]})
}

func runAutoConnect(cfg *config.Config, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return fmt.Errorf("usage: bledob auto-connect on|off")
	}
	return runRequest(cfg, daemon.Request{Command: "auto-connect", On: args[0] == "on"})
}

func runRequest(cfg *config.Config, req daemon.Request) error {
	resp, err := call(cfg, req)
	if err != nil {
		return err
	}
	if resp.State != "connected" {
		fmt.Printf("Saved (not connected, state %s)\n", resp.State)
		return nil
	}
	fmt.Println("OK")
	return nil
}

func parsePercent(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("percent %q is not a number", s)
	}
	if p < 0 || p > 100 {
		return 0, fmt.Errorf("percent must be 0-100, got %d", p)
	}
	return p, nil
}
