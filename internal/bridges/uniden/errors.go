package uniden

import (
	"errors"
	"fmt"
)

// Domain errors for the scanner protocol package.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoResponse is returned when the scanner sent nothing before the
	// read deadline.
	ErrNoResponse = errors.New("uniden: no response from device")

	// ErrDeviceError is returned when the scanner replies ERR
	// (command format error or value error).
	ErrDeviceError = errors.New("uniden: command format or value error")

	// ErrCommandUnavailable is returned when the scanner replies ...,NG
	// (the command is invalid at this time, e.g. outside program mode).
	ErrCommandUnavailable = errors.New("uniden: command invalid at this time")

	// ErrFramingError is returned when the scanner replies FER.
	ErrFramingError = errors.New("uniden: framing error")

	// ErrOverrunError is returned when the scanner replies ORER.
	ErrOverrunError = errors.New("uniden: overrun error")

	// ErrReadTimeout is returned by a Transport when no bytes arrive
	// before the read deadline.
	ErrReadTimeout = errors.New("uniden: read timed out")

	// ErrConnectionFailed is returned when the serial port cannot be opened.
	ErrConnectionFailed = errors.New("uniden: connection failed")

	// ErrPoweredOff is returned for any command issued after PowerOff.
	ErrPoweredOff = errors.New("uniden: device powered off")

	// ErrNoFreeSlot is returned when the scanner cannot allocate a new system.
	ErrNoFreeSlot = errors.New("uniden: no free system slot")

	// ErrUnboundSystem is returned when an operation needs a device-assigned
	// system index but the record has none.
	ErrUnboundSystem = errors.New("uniden: system has no index")

	// ErrUnexpectedReply is returned when a reply decodes cleanly but its
	// payload cannot be interpreted (wrong field count, non-numeric value).
	ErrUnexpectedReply = errors.New("uniden: unexpected reply")

	// ErrInvalidArgument is returned before any exchange when an argument
	// is outside the values the scanner accepts.
	ErrInvalidArgument = errors.New("uniden: invalid argument")

	// ErrClosed is returned for any command issued after Close.
	ErrClosed = errors.New("uniden: device closed")
)

// ProtocolError describes a failed exchange.
// Err is one of the sentinel errors above.
type ProtocolError struct {
	Command  string // Command name, e.g. "PRG"
	Response string // Raw reply line (trimmed), empty on timeout
	Err      error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Response == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v (reply %q)", e.Command, e.Err, e.Response)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ConnectionError represents a failure to open or use the serial port.
type ConnectionError struct {
	Port  string
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", ErrConnectionFailed, e.Port, e.Cause)
	}
	return fmt.Sprintf("%v: %s", ErrConnectionFailed, e.Port)
}

// Unwrap returns ErrConnectionFailed and the underlying cause.
func (e *ConnectionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConnectionFailed}
	}
	return []error{ErrConnectionFailed, e.Cause}
}
