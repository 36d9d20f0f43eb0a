package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeForbidden          = "forbidden"
	ErrCodeConflict           = "conflict"
	ErrCodeInternal           = "internal_error"
	ErrCodeValidation         = "validation_error"
	ErrCodeCommandUnavailable = "command_unavailable"
	ErrCodeDeviceTimeout      = "device_timeout"
	ErrCodeDeviceError        = "device_error"
	ErrCodeUnavailable        = "scanner_unavailable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// scannerErrorStatus maps a scanner error to an HTTP status and error code.
//
//   - invalid argument: 400
//   - NG (not in program mode, or wrong mode): 409
//   - no reply: 504
//   - powered off or closed: 503
//   - ERR, framing, overrun, unreadable reply, port failure: 502
func scannerErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, uniden.ErrInvalidArgument):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, uniden.ErrCommandUnavailable):
		return http.StatusConflict, ErrCodeCommandUnavailable
	case errors.Is(err, uniden.ErrNoResponse):
		return http.StatusGatewayTimeout, ErrCodeDeviceTimeout
	case errors.Is(err, uniden.ErrPoweredOff), errors.Is(err, uniden.ErrClosed):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	case errors.Is(err, uniden.ErrNoFreeSlot):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, uniden.ErrUnboundSystem):
		return http.StatusNotFound, ErrCodeNotFound
	default:
		return http.StatusBadGateway, ErrCodeDeviceError
	}
}

// writeScannerError writes the response for a failed scanner operation.
func writeScannerError(w http.ResponseWriter, err error) {
	status, code := scannerErrorStatus(err)
	writeError(w, status, code, err.Error())
}
