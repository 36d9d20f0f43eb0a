package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nerrad567/gray-logic-scanner/internal/infrastructure/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

const serviceName = "graylogic-scanner"

// Logger is a slog.Logger that owns its output. Safe for concurrent use.
type Logger struct {
	*slog.Logger

	// closer is the rotating file writer, nil for stdout/stderr output.
	closer io.Closer
}

// New builds a logger from cfg. Every record carries the service name and
// version.
//
// If file output is requested but the log directory cannot be created, the
// logger writes to stderr instead and says so in its first record.
func New(cfg config.LoggingConfig, version string) *Logger {
	output, closer, err := destination(cfg)
	if err != nil {
		output, closer = os.Stderr, nil
	}

	l := newWithWriter(output, cfg, version)
	l.closer = closer
	if err != nil {
		l.Warn("file logging unavailable, using stderr", "path", cfg.File.Path, "error", err)
	}
	return l
}

// destination resolves cfg.Output to a writer. The closer is non-nil only
// for file output.
func destination(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.File.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		rotator := newRotator(cfg.File)
		return rotator, rotator, nil
	default:
		return os.Stdout, nil, nil
	}
}

// newRotator returns a lumberjack writer. MaxSize is in megabytes and
// MaxAge in days.
func newRotator(cfg config.FileLoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

func newWithWriter(output io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// parseLevel maps debug, info, warn (or warning) and error to slog levels.
// Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger with extra attributes. The child shares the
// parent's output, so only the parent should be closed.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		closer: l.closer,
	}
}

// Close closes the log file. It is a no-op for stdout and stderr.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Default is the startup logger used until configuration is loaded: JSON
// on stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
