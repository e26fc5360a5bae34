// Command bledob controls BLK-BLEDOB RGB LED strips over Bluetooth LE.
//
// Usage:
//
//	bledob [--config path] <command> [args]
//
// Run "bledob daemon" once to own the BLE connection; the other device
// commands talk to it over a unix socket.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/chaz8081/bledob/internal/config"
	"github.com/chaz8081/bledob/internal/logging"
)

const usage = `usage: bledob [--config path] [--log path] <command> [args]

daemon                        own the BLE connection and serve the control socket
scan [--timeout 5s]           discover peripherals
connect ADDRESS               connect to a peripheral
disconnect                    disconnect
status                        show connection state and saved settings
power on|off|toggle           switch the strip
color HEX | --hsv H,S,V | --pick
                              set a static color
brightness PERCENT            set brightness (0-100)
effect NAME                   run a built-in effect
speed PERCENT                 set effect speed (0-100)
auto-connect on|off           reconnect to the last device when the daemon starts
effects                       list effect names
frame KIND [ARG]              print the frame for a command without sending it
music [--wav FILE] [--address ADDR]
                              drive brightness from the microphone or a WAV file
doctor                        check the Bluetooth stack and daemon
init-config                   write the default config file
`

func main() {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/bledob/config.yaml)")
	logPath := flag.String("log", "stderr", "log output: stderr, stdout or a file path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := logging.Setup(cfg, *logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "bledob %s: %v\n", args[0], err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, cmd string, args []string) error {
	switch cmd {
	case "daemon":
		return runDaemon(cfg)
	case "scan":
		return runScan(cfg, args)
	case "connect":
		return runConnect(cfg, args)
	case "disconnect", "status":
		return runSimple(cfg, cmd)
	case "power":
		return runPower(cfg, args)
	case "color":
		return runColor(cfg, args)
	case "brightness", "speed":
		return runPercent(cfg, cmd, args)
	case "effect":
		return runEffect(cfg, args)
	case "auto-connect":
		return runAutoConnect(cfg, args)
	case "effects":
		return runEffects()
	case "frame":
		return runFrame(args)
	case "music":
		return runMusic(cfg, args)
	case "doctor":
		return runDoctor(cfg)
	case "init-config":
		return runInitConfig()
	}
	return fmt.Errorf("unknown command %q (see bledob --help)", cmd)
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

func runInitConfig() error {
	path, err := config.WriteDefault()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		return nil
	}
	slog.Info("default config written", "path", path)
	fmt.Printf("Wrote %s\n", path)
	return nil
}
