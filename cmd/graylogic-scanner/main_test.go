package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/logging"
)

// writeConfig writes a config file and points GRAYLOGIC_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want a config load failure", err)
	}
}

// TestRun_UnsupportedBaud verifies run rejects a baud rate the scanner lacks.
func TestRun_UnsupportedBaud(t *testing.T) {
	writeConfig(t, `
scanner:
  id: test-scanner
  port: /dev/ttyUSB0
  baud: 4800

logging:
  level: error
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with an unsupported baud rate")
	}
	if !strings.Contains(err.Error(), "scanner.baud") {
		t.Errorf("error = %v, want a scanner.baud validation failure", err)
	}
}

// TestRun_MissingSerialPort verifies run fails before connecting to MQTT
// when the serial port does not exist.
func TestRun_MissingSerialPort(t *testing.T) {
	writeConfig(t, `
scanner:
  id: test-scanner
  port: /dev/graylogic-nonexistent-tty
  baud: 57600

mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    client_id: "test-client"

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the serial port is missing")
	}
	if !strings.Contains(err.Error(), "opening scanner") {
		t.Errorf("error = %v, want a scanner open failure", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestScannerWill verifies the LWT is a retained offline health message.
func TestScannerWill(t *testing.T) {
	will, err := scannerWill("scanner-1")
	if err != nil {
		t.Fatalf("scannerWill() error = %v", err)
	}

	if will.Topic != uniden.HealthTopic() {
		t.Errorf("Topic = %q, want %q", will.Topic, uniden.HealthTopic())
	}
	if will.QoS != 1 || !will.Retained {
		t.Errorf("QoS = %d, Retained = %v, want 1 and true", will.QoS, will.Retained)
	}

	var msg uniden.HealthMessage
	if err := json.Unmarshal(will.Payload, &msg); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if msg.Bridge != "scanner-1" {
		t.Errorf("Bridge = %q, want scanner-1", msg.Bridge)
	}
	if msg.Status != uniden.HealthOffline {
		t.Errorf("Status = %q, want %q", msg.Status, uniden.HealthOffline)
	}
}

// TestOpenScanner_Missing verifies a missing port returns a connection error.
func TestOpenScanner_Missing(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	_, err := openScanner(config.ScannerConfig{
		Port:         "/dev/graylogic-nonexistent-tty",
		Baud:         57600,
		ReadTimeout:  100 * time.Millisecond,
		ClearTimeout: time.Second,
	}, log)
	if !errors.Is(err, uniden.ErrConnectionFailed) {
		t.Fatalf("openScanner() error = %v, want ErrConnectionFailed", err)
	}
}
