package uniden

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MQTT message types exchanged between Gray Logic Core and the scanner bridge.

// Protocol is the protocol identifier carried in bridge messages.
const Protocol = "uniden"

// CommandMessage is sent from Core to the bridge to operate the scanner.
// Topic: graylogic/command/uniden/{scanner_id}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with acknowledgments.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC, ISO8601).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the scanner identifier.
	DeviceID string `json:"device_id"`

	// Command is the command name ("key", "hold", "quick_search",
	// "program", "poweroff").
	Command string `json:"command"`

	// Parameters contains command-specific values.
	// Examples:
	//   {"code": "S", "mode": "P"} for key
	//   {"frequency": 1625500, "modulation": "FM"} for quick_search
	//   {"enabled": true} for program
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source indicates where the command originated.
	Source string `json:"source"`
}

// Bridge command names.
const (
	CommandKey         = "key"
	CommandHold        = "hold"
	CommandQuickSearch = "quick_search"
	CommandProgram     = "program"
	CommandPowerOff    = "poweroff"
)

// AckStatus represents the acknowledgment status of a command.
type AckStatus string

const (
	// AckAccepted indicates the scanner accepted the command.
	AckAccepted AckStatus = "accepted"

	// AckFailed indicates the command could not be executed.
	AckFailed AckStatus = "failed"

	// AckTimeout indicates the scanner did not reply in time.
	AckTimeout AckStatus = "timeout"
)

// AckMessage is sent from the bridge to Core to acknowledge a command.
// Topic: graylogic/ack/uniden/{scanner_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`

	// Error contains details if status is "failed" or "timeout".
	Error *AckError `json:"error,omitempty"`
}

// AckError contains error details for failed commands.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for command failures.
const (
	ErrCodeInvalidCommand     = "INVALID_COMMAND"
	ErrCodeInvalidParameters  = "INVALID_PARAMETERS"
	ErrCodeCommandUnavailable = "COMMAND_UNAVAILABLE"
	ErrCodeDeviceError        = "DEVICE_ERROR"
	ErrCodeProtocolError      = "PROTOCOL_ERROR"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodePoweredOff         = "POWERED_OFF"
	ErrCodeDeviceUnreachable  = "DEVICE_UNREACHABLE"
	ErrCodeBridgeError        = "BRIDGE_ERROR"
)

// ErrorCode maps a device error to an acknowledgment error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return ErrCodeInvalidParameters
	case errors.Is(err, ErrCommandUnavailable):
		return ErrCodeCommandUnavailable
	case errors.Is(err, ErrDeviceError):
		return ErrCodeDeviceError
	case errors.Is(err, ErrNoResponse):
		return ErrCodeTimeout
	case errors.Is(err, ErrPoweredOff), errors.Is(err, ErrClosed):
		return ErrCodePoweredOff
	case errors.Is(err, ErrConnectionFailed):
		return ErrCodeDeviceUnreachable
	case errors.Is(err, ErrFramingError), errors.Is(err, ErrOverrunError), errors.Is(err, ErrUnexpectedReply):
		return ErrCodeProtocolError
	default:
		return ErrCodeBridgeError
	}
}

// StateMessage is sent from the bridge when the scanner display changes.
// Topic: graylogic/state/uniden/{scanner_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	DeviceID  string     `json:"device_id"`
	Timestamp time.Time  `json:"timestamp"`
	Protocol  string     `json:"protocol"`
	Program   bool       `json:"program"`
	Status    Status     `json:"status"`
	Talkgroup *Talkgroup `json:"talkgroup,omitempty"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates the scanner is answering.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates recent exchanges are failing.
	HealthDegraded HealthStatus = "degraded"

	// HealthUnhealthy indicates the scanner is powered off or the port is closed.
	HealthUnhealthy HealthStatus = "unhealthy"

	// HealthOffline indicates the bridge is not connected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is starting up.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/uniden
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge        string            `json:"bridge"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        HealthStatus      `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Session       *SessionStatus    `json:"session,omitempty"`
	Statistics    *BridgeStatistics `json:"statistics,omitempty"`

	// Reason explains the status (especially for offline/degraded).
	Reason string `json:"reason,omitempty"`
}

// SessionStatus describes the serial session.
type SessionStatus struct {
	Port         string     `json:"port"`
	Program      bool       `json:"program"`
	PoweredOff   bool       `json:"powered_off"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
}

// BridgeStatistics contains operational metrics.
type BridgeStatistics struct {
	Commands uint64 `json:"commands"`
	Errors   uint64 `json:"errors"`
	Timeouts uint64 `json:"timeouts"`
}

// UnmarshalJSON unmarshals a CommandMessage, accepting an empty timestamp.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		*Alias
		Timestamp string `json:"timestamp"`
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// NewAckMessage creates an acknowledgment message for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  Protocol,
	}
}

// NewAckError creates an acknowledgment with error details.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed)
	if code == ErrCodeTimeout {
		ack.Status = AckTimeout
	}
	ack.Error = &AckError{Code: code, Message: message}
	return ack
}

// NewStateMessage creates a state message for the scanner.
func NewStateMessage(deviceID string, program bool, status Status, tg *Talkgroup) StateMessage {
	return StateMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Protocol:  Protocol,
		Program:   program,
		Status:    status,
		Talkgroup: tg,
	}
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, version, port string, status HealthStatus, stats DeviceStats, startTime time.Time) HealthMessage {
	msg := HealthMessage{
		Bridge:        bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		Session: &SessionStatus{
			Port:       port,
			Program:    stats.Program,
			PoweredOff: stats.PoweredOff,
		},
		Statistics: &BridgeStatistics{
			Commands: stats.CommandsTotal,
			Errors:   stats.ErrorsTotal,
			Timeouts: stats.TimeoutsTotal,
		},
	}
	if !stats.LastActivity.IsZero() && stats.LastActivity.Unix() > 0 {
		last := stats.LastActivity.UTC()
		msg.Session.LastActivity = &last
	}
	return msg
}

// NewLWTMessage creates a Last Will and Testament message for MQTT.
// The broker publishes it if the bridge disconnects unexpectedly.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}
