package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	BLE       BLEConfig      `yaml:"ble"`
	Daemon    DaemonConfig   `yaml:"daemon"`
	Settings  SettingsConfig `yaml:"settings"`
	Hotkey    HotkeyConfig   `yaml:"hotkey"`
	Music     MusicConfig    `yaml:"music"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"` // "text" or "json"
}

// BLEConfig holds discovery and connection settings.
type BLEConfig struct {
	ScanTimeout    time.Duration `yaml:"scan_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	FilterServices bool          `yaml:"filter_services"` // keep only peripherals advertising ffd0/fff0
	NamePrefix     string        `yaml:"name_prefix"`
	Adapter        string        `yaml:"adapter"`  // BlueZ adapter name (Linux)
	PowerOn        bool          `yaml:"power_on"` // power the BlueZ adapter on at startup
}

// DaemonConfig holds the control socket settings.
type DaemonConfig struct {
	Socket string `yaml:"socket"`
}

// SettingsConfig locates the persisted settings snapshot.
type SettingsConfig struct {
	Path string `yaml:"path"`
}

// HotkeyConfig holds global hotkey bindings.
type HotkeyConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Bindings []HotkeyBinding `yaml:"bindings"`
}

// HotkeyBinding maps a key combo to an action.
type HotkeyBinding struct {
	Keys   []string `yaml:"keys"`
	Action string   `yaml:"action"` // power_toggle, brightness_up, brightness_down, next_effect
}

// MusicConfig holds the audio-to-brightness settings.
type MusicConfig struct {
	SampleRate uint32  `yaml:"sample_rate"`
	Channels   uint32  `yaml:"channels"`
	FPS        int     `yaml:"fps"`
	Gain       float64 `yaml:"gain"`
}

// HotkeyActions lists the valid hotkey actions.
var HotkeyActions = []string{"power_toggle", "brightness_up", "brightness_down", "next_effect"}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "bledob")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultSettingsPath returns the default settings snapshot path.
func DefaultSettingsPath() string {
	return filepath.Join(DefaultConfigDir(), "settings.yaml")
}

// DefaultSocketPath returns the control socket path, preferring
// $XDG_RUNTIME_DIR.
func DefaultSocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "bledob.sock")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		BLE: BLEConfig{
			ScanTimeout:    5 * time.Second,
			ConnectTimeout: 15 * time.Second,
			Adapter:        "hci0",
			PowerOn:        true,
		},
		Hotkey: HotkeyConfig{
			Bindings: []HotkeyBinding{
				{Keys: []string{"ctrl", "alt", "l"}, Action: "power_toggle"},
				{Keys: []string{"ctrl", "alt", "up"}, Action: "brightness_up"},
				{Keys: []string{"ctrl", "alt", "down"}, Action: "brightness_down"},
				{Keys: []string{"ctrl", "alt", "e"}, Action: "next_effect"},
			},
		},
		Music: MusicConfig{
			SampleRate: 44100,
			Channels:   1,
			FPS:        20,
			Gain:       4.0,
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in paths is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Daemon.Socket = expandTilde(cfg.Daemon.Socket)
	cfg.Settings.Path = expandTilde(cfg.Settings.Path)

	return cfg, nil
}

// SocketPath returns the configured socket or the default one.
func (c *Config) SocketPath() string {
	if c.Daemon.Socket != "" {
		return c.Daemon.Socket
	}
	return DefaultSocketPath()
}

// SettingsPath returns the configured settings file or the default one.
func (c *Config) SettingsPath() string {
	if c.Settings.Path != "" {
		return c.Settings.Path
	}
	return DefaultSettingsPath()
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.BLE.ScanTimeout <= 0 {
		return fmt.Errorf("ble.scan_timeout must be > 0")
	}
	if c.BLE.ConnectTimeout < 0 {
		return fmt.Errorf("ble.connect_timeout must be >= 0")
	}

	for i, b := range c.Hotkey.Bindings {
		if len(b.Keys) == 0 {
			return fmt.Errorf("hotkey.bindings[%d].keys must not be empty", i)
		}
		if !validAction(b.Action) {
			return fmt.Errorf("hotkey.bindings[%d].action must be one of %s, got %q",
				i, strings.Join(HotkeyActions, ", "), b.Action)
		}
	}

	if c.Music.SampleRate == 0 {
		return fmt.Errorf("music.sample_rate must be > 0")
	}
	if c.Music.Channels == 0 {
		return fmt.Errorf("music.channels must be > 0")
	}
	if c.Music.FPS <= 0 || c.Music.FPS > 50 {
		return fmt.Errorf("music.fps must be between 1 and 50, got %d", c.Music.FPS)
	}
	if c.Music.Gain <= 0 {
		return fmt.Errorf("music.gain must be > 0")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be \"text\" or \"json\", got %q", c.LogFormat)
	}

	return nil
}

func validAction(action string) bool {
	for _, a := range HotkeyActions {
		if a == action {
			return true
		}
	}
	return false
}

// ParseLogLevel converts a log_level string to a slog.Level. Unknown values
// map to info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# bledob configuration
# Durations use Go syntax (5s, 1m). See README for all options.
`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there. It returns the written path, or "" when a config already exists.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
