package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
)

func TestNewWithWriter_Format(t *testing.T) {
	tests := []struct {
		format string
		json   bool
	}{
		{"json", true},
		{"text", false},
		{"TEXT", false},
		{"", true},
		{"yaml", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			newWithWriter(&buf, config.LoggingConfig{Format: tt.format}, "1.0.0").Info("hello")

			isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
			if isJSON != tt.json {
				t.Errorf("format %q wrote %q, want JSON = %v", tt.format, buf.String(), tt.json)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogger_WithSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := newWithWriter(&buf, config.LoggingConfig{Format: "json"}, "1.0.0")
	child := parent.With("component", "mqtt")

	if child == parent {
		t.Fatal("With() returned the parent")
	}
	child.Info("connected")
	parent.Info("started")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"component":"mqtt"`) {
		t.Errorf("child line = %q, want component attribute", lines[0])
	}
	if strings.Contains(lines[1], "component") {
		t.Errorf("parent line = %q, want no component attribute", lines[1])
	}
}

func TestLogger_OutputContainsDefaultFields(t *testing.T) {
	var buf bytes.Buffer

	logger := newWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "test")
	logger.Info("test message", "key", "value")

	output := buf.String()

	if !strings.Contains(output, "graylogic-scanner") {
		t.Error("expected output to contain service field")
	}

	if !strings.Contains(output, `"version":"test"`) {
		t.Error("expected output to contain version field")
	}

	var logEntry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("expected msg='test message', got %v", logEntry["msg"])
	}

	if logEntry["key"] != "value" {
		t.Errorf("expected key='value', got %v", logEntry["key"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "text"}, "test")

	logger.Info("hidden")
	logger.Warn("shown", "command", "STS")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("info message written at warn level")
	}
	if !strings.Contains(output, "shown") || !strings.Contains(output, "command=STS") {
		t.Errorf("output = %q, want warn message in text format", output)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scanner.log")
	logger := New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "file",
		File:   config.FileLoggingConfig{Path: path, MaxSize: 1, MaxBackups: 1},
	}, "1.0.0")

	logger.With("component", "serial").Info("port opened", "port", "/dev/ttyUSB0")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"component":"serial"`) {
		t.Errorf("log file = %q, want component field", data)
	}
}

func TestNew_FileOutputCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "scanner.log")
	logger := New(config.LoggingConfig{Output: "file", File: config.FileLoggingConfig{Path: path, MaxSize: 1}}, "1.0.0")

	logger.Info("port opened")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestNew_FileOutputFallsBack(t *testing.T) {
	// A regular file where the log directory should be.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	logger := New(config.LoggingConfig{Output: "file", File: config.FileLoggingConfig{Path: filepath.Join(blocker, "scanner.log")}}, "1.0.0")

	if logger.closer != nil {
		t.Error("fallback logger holds a file closer")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on fallback logger = %v, want nil", err)
	}
}

func TestLogger_CloseWithoutFile(t *testing.T) {
	if err := Default().Close(); err != nil {
		t.Errorf("Close() on stdout logger = %v, want nil", err)
	}
}
