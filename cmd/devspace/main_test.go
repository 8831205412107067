package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testAPIPort = 18931

func writeTestConfig(t *testing.T, dbPath string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	configContent := fmt.Sprintf(`
site:
  id: test-site

space:
  container_width: 800
  container_height: 600
  resize_debounce_ms: 10
  seed_hub: true
  event_buffer: 16

database:
  path: %q
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: warn
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: %d
  timeouts:
    read: 5
    write: 5
    idle: 10

remote:
  topic: ""
`, dbPath, testAPIPort)

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

// startRun runs the service in the background and waits until the API
// answers. The returned stop function cancels it and returns run's error.
func startRun(t *testing.T) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(apiURL("/health"))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		select {
		case err := <-errCh:
			cancel()
			t.Fatalf("run() exited during startup: %v", err)
		default:
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("API did not become ready")
		}
		time.Sleep(20 * time.Millisecond)
	}

	return func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(15 * time.Second):
			t.Fatal("run() did not return after cancel")
			return nil
		}
	}
}

func apiURL(path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d/api/v1%s", testAPIPort, path)
}

func getJSON(t *testing.T, path string, v any) {
	t.Helper()
	resp, err := http.Get(apiURL(path))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
}

type deviceList struct {
	Devices []struct {
		ID   string `json:"id"`
		Kind string `json:"kind"`
	} `json:"devices"`
	Count int `json:"count"`
}

type accessoryList struct {
	Accessories []struct {
		AccessoryID string `json:"accessory_id"`
		Kind        string `json:"kind"`
		Pin         int    `json:"pin"`
	} `json:"accessories"`
	Count int `json:"count"`
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("DEVSPACE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	t.Setenv("DEVSPACE_CONFIG", writeTestConfig(t, ""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("DEVSPACE_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("DEVSPACE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestLoadConfig_DefaultsWhenMissing verifies built-in defaults are used
// when the default config file does not exist.
func TestLoadConfig_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("DEVSPACE_CONFIG", "")
	t.Chdir(t.TempDir())

	cfg, path, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if path != "(defaults)" {
		t.Errorf("path = %q, want (defaults)", path)
	}
	if !cfg.Space.SeedHub {
		t.Error("default config should seed a hub")
	}
}

// TestRun_StartupAndShutdown starts the service with MQTT and InfluxDB
// disabled, checks the seeded hub, and shuts down cleanly.
func TestRun_StartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv("DEVSPACE_CONFIG", writeTestConfig(t, dbPath))

	stop := startRun(t)

	var devices deviceList
	getJSON(t, "/space/devices", &devices)
	if devices.Count != 1 {
		t.Fatalf("device count = %d, want 1", devices.Count)
	}
	if devices.Devices[0].ID != "RPI1" || devices.Devices[0].Kind != "RPI" {
		t.Errorf("seeded device = %+v, want RPI1", devices.Devices[0])
	}

	if err := stop(); err != nil {
		t.Fatalf("run() error = %v", err)
	}
}

// TestRun_RestoresAccessories verifies accessories provisioned in one run
// are wired up again on the next.
func TestRun_RestoresAccessories(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	t.Setenv("DEVSPACE_CONFIG", writeTestConfig(t, dbPath))

	stop := startRun(t)
	body := bytes.NewBufferString(`{"kind":"LED","pin":7}`)
	resp, err := http.Post(apiURL("/accessories"), "application/json", body)
	if err != nil {
		t.Fatalf("POST /accessories: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("provision status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	if err := stop(); err != nil {
		t.Fatalf("first run error = %v", err)
	}

	stop = startRun(t)
	defer func() {
		if err := stop(); err != nil {
			t.Errorf("second run error = %v", err)
		}
	}()

	var accessories accessoryList
	getJSON(t, "/accessories", &accessories)
	if accessories.Count != 1 {
		t.Fatalf("accessory count = %d, want 1", accessories.Count)
	}
	if a := accessories.Accessories[0]; a.Kind != "LED" || a.Pin != 7 || a.AccessoryID != "LED1" {
		t.Errorf("restored accessory = %+v", a)
	}

	var devices deviceList
	getJSON(t, "/space/devices", &devices)
	if devices.Count != 2 {
		t.Errorf("device count = %d, want 2 (hub and LED)", devices.Count)
	}
}
