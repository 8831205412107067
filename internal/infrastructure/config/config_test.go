package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
space:
  container_width: 800
  container_height: 600
  resize_debounce_ms: 75
database:
  path: "/tmp/test.db"
  wal_mode: true
mqtt:
  broker:
    host: "broker.local"
    port: 1883
  qos: 1
api:
  port: 9090
remote:
  command: "vagrant"
  args: ["ssh", "-c", "./compiled"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Space.ContainerWidth != 800 || cfg.Space.ContainerHeight != 600 {
		t.Errorf("Space container = %dx%d, want 800x600", cfg.Space.ContainerWidth, cfg.Space.ContainerHeight)
	}
	if cfg.ResizeDebounce() != 75*time.Millisecond {
		t.Errorf("ResizeDebounce() = %v, want 75ms", cfg.ResizeDebounce())
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if got := strings.Join(cfg.Remote.Args, " "); got != "ssh -c ./compiled" {
		t.Errorf("Remote.Args = %q, want %q", got, "ssh -c ./compiled")
	}
	// Untouched sections keep their defaults.
	if cfg.WebSocket.Path != "/ws" {
		t.Errorf("WebSocket.Path = %q, want /ws", cfg.WebSocket.Path)
	}
	if cfg.Remote.Topic != "devspace/remote/output" {
		t.Errorf("Remote.Topic = %q, want default", cfg.Remote.Topic)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
site:
  id: ""
`)

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "/tmp/file.db"
`)
	t.Setenv("DEVSPACE_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("DEVSPACE_API_PORT", "7070")
	t.Setenv("DEVSPACE_MQTT_ENABLED", "true")
	t.Setenv("DEVSPACE_REMOTE_COMMAND", "./compiled")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want /tmp/env.db", cfg.Database.Path)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("API.Port = %d, want 7070", cfg.API.Port)
	}
	if !cfg.MQTT.Enabled {
		t.Error("MQTT.Enabled = false, want true")
	}
	if cfg.Remote.Command != "./compiled" {
		t.Errorf("Remote.Command = %q, want ./compiled", cfg.Remote.Command)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Space.ResizeDebounceMS != 50 {
		t.Errorf("Space.ResizeDebounceMS = %d, want 50", cfg.Space.ResizeDebounceMS)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing site ID", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: "site.id"},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: "database.path"},
		{name: "invalid QoS", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "port zero", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: "api.port"},
		{name: "negative container", mutate: func(c *Config) { c.Space.ContainerWidth = -1 }, wantErr: "container"},
		{name: "negative debounce", mutate: func(c *Config) { c.Space.ResizeDebounceMS = -5 }, wantErr: "resize_debounce_ms"},
		{name: "negative retention", mutate: func(c *Config) { c.Database.HistoryRetentionDays = -1 }, wantErr: "history_retention_days"},
		{
			name:    "influx without url",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name:    "remote args without command",
			mutate:  func(c *Config) { c.Remote.Args = []string{"-c"} },
			wantErr: "remote.args",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := &Config{API: APIConfig{Timeouts: APITimeoutConfig{Read: 10, Write: 20, Idle: 30}}}

	if cfg.GetReadTimeout() != 10*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 10s", cfg.GetReadTimeout())
	}
	if cfg.GetWriteTimeout() != 20*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 20s", cfg.GetWriteTimeout())
	}
	if cfg.GetIdleTimeout() != 30*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 30s", cfg.GetIdleTimeout())
	}

	cfg.Database.HistoryRetentionDays = 2
	if cfg.HistoryRetention() != 48*time.Hour {
		t.Errorf("HistoryRetention() = %v, want 48h", cfg.HistoryRetention())
	}
}
