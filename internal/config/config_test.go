package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.BLE.ScanTimeout != 5*time.Second {
		t.Errorf("BLE.ScanTimeout = %v, want 5s", cfg.BLE.ScanTimeout)
	}
	if cfg.BLE.ConnectTimeout != 15*time.Second {
		t.Errorf("BLE.ConnectTimeout = %v, want 15s", cfg.BLE.ConnectTimeout)
	}
	if cfg.BLE.Adapter != "hci0" {
		t.Errorf("BLE.Adapter = %q, want %q", cfg.BLE.Adapter, "hci0")
	}
	if cfg.Hotkey.Enabled {
		t.Error("Hotkey.Enabled should default to false")
	}
	if len(cfg.Hotkey.Bindings) != 4 {
		t.Errorf("Hotkey.Bindings length = %d, want 4", len(cfg.Hotkey.Bindings))
	}
	if cfg.Music.FPS != 20 {
		t.Errorf("Music.FPS = %d, want 20", cfg.Music.FPS)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "text")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	yamlContent := `
ble:
  scan_timeout: 10s
  connect_timeout: 30s
  filter_services: true
  name_prefix: BLEDOB
  adapter: hci1
daemon:
  socket: /tmp/test-bledob.sock
hotkey:
  enabled: true
  bindings:
    - keys: ["alt", "p"]
      action: power_toggle
music:
  fps: 10
log_level: debug
log_format: json
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BLE.ScanTimeout != 10*time.Second {
		t.Errorf("BLE.ScanTimeout = %v, want 10s", cfg.BLE.ScanTimeout)
	}
	if cfg.BLE.ConnectTimeout != 30*time.Second {
		t.Errorf("BLE.ConnectTimeout = %v, want 30s", cfg.BLE.ConnectTimeout)
	}
	if !cfg.BLE.FilterServices {
		t.Error("BLE.FilterServices = false, want true")
	}
	if cfg.BLE.NamePrefix != "BLEDOB" {
		t.Errorf("BLE.NamePrefix = %q, want %q", cfg.BLE.NamePrefix, "BLEDOB")
	}
	if cfg.BLE.Adapter != "hci1" {
		t.Errorf("BLE.Adapter = %q, want %q", cfg.BLE.Adapter, "hci1")
	}
	if !cfg.BLE.PowerOn {
		t.Error("BLE.PowerOn default should survive a partial ble section")
	}
	if cfg.SocketPath() != "/tmp/test-bledob.sock" {
		t.Errorf("SocketPath() = %q", cfg.SocketPath())
	}
	if !cfg.Hotkey.Enabled || len(cfg.Hotkey.Bindings) != 1 || cfg.Hotkey.Bindings[0].Keys[1] != "p" {
		t.Errorf("Hotkey = %+v", cfg.Hotkey)
	}
	if cfg.Music.FPS != 10 {
		t.Errorf("Music.FPS = %d, want 10", cfg.Music.FPS)
	}
	if cfg.Music.SampleRate != 44100 {
		t.Errorf("Music.SampleRate = %d, want default 44100", cfg.Music.SampleRate)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	yamlContent := `
settings:
  path: ~/bledob/settings.yaml
`
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	expected := filepath.Join(home, "bledob/settings.yaml")
	if cfg.SettingsPath() != expected {
		t.Errorf("SettingsPath() = %q, want %q", cfg.SettingsPath(), expected)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() should return error for nonexistent file")
	}
}

func TestLoadBadDuration(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("ble:\n  scan_timeout: soon\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("Load() should fail for an unparsable duration")
	}
}

func TestDefaultPathsFollowEnvironment(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	cfg := Default()
	if got := cfg.SettingsPath(); got != filepath.Join(tmpHome, ".config", "bledob", "settings.yaml") {
		t.Errorf("SettingsPath() = %q", got)
	}
	if got := cfg.SocketPath(); got != "/run/user/1000/bledob.sock" {
		t.Errorf("SocketPath() = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero scan timeout",
			modify:  func(c *Config) { c.BLE.ScanTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "negative connect timeout",
			modify:  func(c *Config) { c.BLE.ConnectTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero connect timeout disables the bound",
			modify:  func(c *Config) { c.BLE.ConnectTimeout = 0 },
			wantErr: false,
		},
		{
			name:    "hotkey binding without keys",
			modify:  func(c *Config) { c.Hotkey.Bindings[0].Keys = nil },
			wantErr: true,
		},
		{
			name:    "unknown hotkey action",
			modify:  func(c *Config) { c.Hotkey.Bindings[0].Action = "dance" },
			wantErr: true,
		},
		{
			name:    "zero sample rate",
			modify:  func(c *Config) { c.Music.SampleRate = 0 },
			wantErr: true,
		},
		{
			name:    "zero channels",
			modify:  func(c *Config) { c.Music.Channels = 0 },
			wantErr: true,
		},
		{
			name:    "fps too high",
			modify:  func(c *Config) { c.Music.FPS = 120 },
			wantErr: true,
		},
		{
			name:    "zero gain",
			modify:  func(c *Config) { c.Music.Gain = 0 },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.LogLevel = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWriteDefault_CreatesFile(t *testing.T) {
	// Use a temp dir as fake home to avoid touching real config
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	expectedPath := filepath.Join(tmpHome, ".config", "bledob", "config.yaml")
	if path != expectedPath {
		t.Errorf("WriteDefault() path = %q, want %q", path, expectedPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}

	if !strings.HasPrefix(string(data), "# bledob") {
		t.Error("written config should start with header comment")
	}

	// Should round-trip through Load with the default values.
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.BLE.ScanTimeout != 5*time.Second {
		t.Errorf("written config BLE.ScanTimeout = %v, want 5s", cfg.BLE.ScanTimeout)
	}
	if cfg.Music.SampleRate != 44100 {
		t.Errorf("written config Music.SampleRate = %d, want 44100", cfg.Music.SampleRate)
	}
}

func TestWriteDefault_NoOpIfExists(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	configDir := filepath.Join(tmpHome, ".config", "bledob")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	existingContent := []byte("log_level: debug\n")
	configPath := filepath.Join(configDir, "config.yaml")
	if err := os.WriteFile(configPath, existingContent, 0644); err != nil {
		t.Fatalf("failed to write existing config: %v", err)
	}

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if path != "" {
		t.Errorf("WriteDefault() path = %q, want empty string for existing file", path)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if string(data) != string(existingContent) {
		t.Error("WriteDefault() should not overwrite existing config file")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
