package uniden

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	defaultHealthInterval = 30 * time.Second
	healthQoS             = 1
)

// HealthPublisher publishes retained health messages. The MQTT client
// satisfies it.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// HealthReporterConfig configures a HealthReporter. Only BridgeID is
// required; a nil Publisher turns every publish into a no-op.
type HealthReporterConfig struct {
	BridgeID string
	Version  string

	// Port is the serial port reported in the session block.
	Port string

	// Interval between periodic reports. Default: 30 seconds.
	Interval time.Duration

	Publisher HealthPublisher

	// Scanner provides session statistics.
	Scanner Scanner

	Logger Logger
}

// HealthReporter publishes the bridge's retained health message on
// HealthTopic: periodically while running, and immediately whenever a poll
// result changes the reported status.
type HealthReporter struct {
	bridgeID  string
	version   string
	port      string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	scanner   Scanner

	mu      sync.Mutex
	pollErr error
	cancel  context.CancelFunc
	stopped bool
	logger  Logger

	wg sync.WaitGroup
}

// NewHealthReporter returns a reporter that is idle until Start.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		port:      cfg.Port,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		scanner:   cfg.Scanner,
		logger:    cfg.Logger,
	}
}

// Start publishes the current status and then reports every interval until
// ctx is cancelled or Stop is called. Start after Stop does nothing.
func (h *HealthReporter) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped || h.cancel != nil {
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)

	h.wg.Add(1)
	go h.run(ctx)
}

// Stop ends periodic reporting and publishes a final "stopping" status.
// Later calls do nothing.
func (h *HealthReporter) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()

	if err := h.publishStatus(HealthStopping, ""); err != nil {
		h.logError("failed to publish stopping status", err)
	}
}

// SetLogger replaces the reporter's logger.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.mu.Lock()
	h.logger = logger
	h.mu.Unlock()
}

// SetPollError records the outcome of the latest poll. When the outcome
// flips between success and failure, or the failure text changes, the new
// status is published without waiting for the next interval.
func (h *HealthReporter) SetPollError(err error) {
	h.mu.Lock()
	changed := pollReason(h.pollErr) != pollReason(err)
	h.pollErr = err
	h.mu.Unlock()

	if changed {
		if pubErr := h.PublishNow(); pubErr != nil {
			h.logError("failed to publish health change", pubErr)
		}
	}
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current status.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

// LWTPayload is the "offline" message registered as the MQTT will.
func (h *HealthReporter) LWTPayload() ([]byte, error) {
	return json.Marshal(NewLWTMessage(h.bridgeID))
}

// LWTTopic is the topic the will is published on.
func (h *HealthReporter) LWTTopic() string {
	return HealthTopic()
}

func (h *HealthReporter) run(ctx context.Context) {
	defer h.wg.Done()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus ranks the failure modes: no broker, then a powered-off
// scanner, then a failing poll.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	switch {
	case h.publisher == nil || !h.publisher.IsConnected():
		return HealthDegraded, "MQTT disconnected"
	case h.scanner != nil && h.scanner.Stats().PoweredOff:
		return HealthUnhealthy, "scanner powered off"
	}

	h.mu.Lock()
	reason := pollReason(h.pollErr)
	h.mu.Unlock()
	if reason != "" {
		return HealthDegraded, reason
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	var stats DeviceStats
	if h.scanner != nil {
		stats = h.scanner.Stats()
	}
	msg := NewHealthMessage(h.bridgeID, h.version, h.port, status, stats, h.startTime)
	msg.Reason = reason

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(HealthTopic(), payload, healthQoS, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.mu.Lock()
	logger := h.logger
	h.mu.Unlock()
	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

func pollReason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
