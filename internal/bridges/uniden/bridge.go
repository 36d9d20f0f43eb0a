package uniden

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Bridge operation constants.
const (
	// defaultPollInterval is how often the display is read when unset.
	defaultPollInterval = time.Second

	// defaultKeyMode is used when a key command omits its mode.
	defaultKeyMode = KeyPress
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// ActivityRecorder stores time-series points.
// It is satisfied by *influxdb.Client and is optional.
type ActivityRecorder interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]any)
}

// Measurement names written through the ActivityRecorder.
const (
	MeasurementStatus    = "scanner_status"
	MeasurementTalkgroup = "talkgroup_activity"
)

// Bridge connects one scanner session to MQTT.
// It handles:
//   - Polling the display and publishing retained state on change
//   - Recording status and talkgroup activity to a time-series store
//   - Executing commands received over MQTT and acknowledging them
//   - Health reporting and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	scannerID    string
	pollInterval time.Duration
	mqtt         MQTTClient
	scanner      Scanner
	recorder     ActivityRecorder
	health       *HealthReporter

	// Last published state for change detection
	lastStatus    *Status
	lastTalkgroup *Talkgroup
	lastProgram   bool
	published     bool
	stateMu       sync.Mutex

	// Shutdown coordination
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	// Logger
	logger   Logger
	loggerMu sync.RWMutex
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// ScannerID identifies the scanner in topics and messages.
	ScannerID string

	// Version is reported in health messages.
	Version string

	// Port is reported in health messages.
	Port string

	// PollInterval is how often the display is read.
	// Default: 1 second.
	PollInterval time.Duration

	// HealthInterval is how often health is published.
	// Default: 30 seconds.
	HealthInterval time.Duration

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Scanner is the device session.
	Scanner Scanner

	// Recorder is optional. If nil no time-series points are written.
	Recorder ActivityRecorder

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.ScannerID == "" {
		return nil, fmt.Errorf("scanner ID is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	b := &Bridge{
		scannerID:    opts.ScannerID,
		pollInterval: interval,
		mqtt:         opts.MQTTClient,
		scanner:      opts.Scanner,
		recorder:     opts.Recorder,
		done:         make(chan struct{}),
		logger:       opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.ScannerID,
		Version:   opts.Version,
		Port:      opts.Port,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Scanner:   opts.Scanner,
		Logger:    opts.Logger,
	})

	return b, nil
}

// Health returns the bridge's health reporter.
func (b *Bridge) Health() *HealthReporter {
	return b.health
}

// Start subscribes to the command topic, starts health reporting and
// starts the display poller.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	topic := CommandTopic(b.scannerID)
	if err := b.mqtt.Subscribe(topic, 1, b.handleCommand); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", topic)

	b.health.Start(ctx)

	b.wg.Add(1)
	go b.pollLoop(ctx)

	b.logInfo("bridge started",
		"scanner_id", b.scannerID,
		"poll_interval", b.pollInterval)

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

func (b *Bridge) pollLoop(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case <-ticker.C:
			_ = b.Poll()
		}
	}
}

// Poll reads the display once and publishes state if it changed.
//
// Display commands are skipped in program mode and after power off.
// It returns the poll error, which is also reported through health.
func (b *Bridge) Poll() error {
	if b.scanner.Stats().PoweredOff {
		return nil
	}

	program := b.scanner.Program()
	if program {
		b.publishIfChanged(program, nil, nil)
		return nil
	}

	status, err := b.scanner.Status()
	if err != nil {
		b.health.SetPollError(err)
		b.logDebug("status poll failed", "error", err)
		return err
	}

	// GID answers NG or empty fields outside trunked reception. Other GID
	// failures degrade health but still publish the display.
	var tg *Talkgroup
	var pollErr error
	t, tgErr := b.scanner.Talkgroup()
	switch {
	case tgErr == nil:
		if t.Active() {
			tg = &t
		}
	case errors.Is(tgErr, ErrCommandUnavailable):
		b.logDebug("talkgroup unavailable", "error", tgErr)
	default:
		b.logDebug("talkgroup poll failed", "error", tgErr)
		pollErr = tgErr
	}
	b.health.SetPollError(pollErr)

	if b.publishIfChanged(program, &status, tg) {
		b.record(status, tg)
	}
	return nil
}

// publishIfChanged publishes retained state when it differs from the last
// published state. It reports whether anything was published.
func (b *Bridge) publishIfChanged(program bool, status *Status, tg *Talkgroup) bool {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	if status == nil {
		// Keep the last display content while in program mode.
		status = b.lastStatus
	}
	if b.published && program == b.lastProgram &&
		equalPtr(b.lastStatus, status) && equalPtr(b.lastTalkgroup, tg) {
		return false
	}

	var s Status
	if status != nil {
		s = *status
	}
	msg := NewStateMessage(b.scannerID, program, s, tg)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state", err)
		return false
	}
	if err := b.mqtt.Publish(StateTopic(b.scannerID), payload, 1, true); err != nil {
		b.logError("failed to publish state", err)
		return false
	}

	b.lastStatus = &s
	b.lastTalkgroup = tg
	b.lastProgram = program
	b.published = true
	return true
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// record writes status and talkgroup activity points.
func (b *Bridge) record(status Status, tg *Talkgroup) {
	if b.recorder == nil {
		return
	}

	b.recorder.WritePoint(MeasurementStatus,
		map[string]string{"scanner_id": b.scannerID},
		map[string]any{
			"line1":         status.Line1,
			"line2":         status.Line2,
			"squelch":       status.Squelch,
			"mute":          status.Mute,
			"battery_low":   status.Battery,
			"weather_alert": status.Weather,
		})

	if tg == nil || !status.Squelch {
		return
	}
	b.recorder.WritePoint(MeasurementTalkgroup,
		map[string]string{
			"scanner_id": b.scannerID,
			"sys_type":   string(tg.SystemType),
			"tgid":       tg.TGID,
		},
		map[string]any{
			"name1": tg.Name1,
			"name2": tg.Name2,
			"name3": tg.Name3,
		})
}

// handleCommand processes a command message received over MQTT.
func (b *Bridge) handleCommand(_ string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"command", cmd.Command)

	if err := b.executeCommand(cmd); err != nil {
		code := ErrorCode(err)
		var invalid *invalidCommandError
		if errors.As(err, &invalid) {
			code = ErrCodeInvalidCommand
		}
		b.publishAck(NewAckError(cmd, code, err.Error()))
		b.logError("command failed", err)
		return
	}

	b.publishAck(NewAckMessage(cmd, AckAccepted))
}

type invalidCommandError struct{ name string }

func (e *invalidCommandError) Error() string {
	return fmt.Sprintf("unknown command: %s", e.name)
}

// executeCommand translates a bridge command into scanner operations.
func (b *Bridge) executeCommand(cmd CommandMessage) error {
	switch cmd.Command {
	case CommandKey:
		code, _ := cmd.Parameters["code"].(string)
		mode, _ := cmd.Parameters["mode"].(string)
		if mode == "" {
			mode = string(defaultKeyMode)
		}
		return b.scanner.Key(KeyCode(code), KeyMode(mode))

	case CommandHold:
		return b.scanner.Key(KeyHold, KeyPress)

	case CommandQuickSearch:
		var qs QuickSearch
		if err := decodeParameters(cmd.Parameters, &qs); err != nil {
			return err
		}
		return b.scanner.QuickSearch(qs)

	case CommandProgram:
		enabled, ok := cmd.Parameters["enabled"].(bool)
		if !ok {
			return fmt.Errorf("%w: enabled must be a boolean", ErrInvalidArgument)
		}
		return b.scanner.SetProgram(enabled)

	case CommandPowerOff:
		return b.scanner.PowerOff()

	default:
		return &invalidCommandError{name: cmd.Command}
	}
}

// decodeParameters converts loosely typed parameters into dst.
func decodeParameters(params map[string]any, dst any) error {
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(AckTopic(b.scannerID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// SetLogger sets the logger for the bridge and its health reporter.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
	b.health.SetLogger(logger)
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
