package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
)

// clearConfirmation must be sent verbatim to erase the scanner memory.
const clearConfirmation = "CLEAR MEMORY"

// SettingsUpdate is the body of PUT /scanner/settings.
// Only the fields present are written; the scanner must be in program mode.
type SettingsUpdate struct {
	Backlight      *uniden.Backlight      `json:"backlight,omitempty"`
	BatterySave    *uniden.Toggle         `json:"battery_save,omitempty"`
	KeyBeep        *uniden.Toggle         `json:"key_beep,omitempty"`
	OpeningMessage *uniden.OpeningMessage `json:"opening_message,omitempty"`
	PriorityMode   *uniden.PriorityMode   `json:"priority_mode,omitempty"`
}

func (u SettingsUpdate) empty() bool {
	return u.Backlight == nil && u.BatterySave == nil && u.KeyBeep == nil &&
		u.OpeningMessage == nil && u.PriorityMode == nil
}

// ClearRequest is the body of POST /scanner/settings/clear.
type ClearRequest struct {
	Confirm string `json:"confirm"`
}

// handleGetSettings returns every global setting.
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	snap, err := s.scanner.Settings().Snapshot()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleUpdateSettings writes the supplied settings in a fixed order and
// returns the resulting snapshot. It stops at the first failure; settings
// written before it stay written.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.empty() {
		writeBadRequest(w, "at least one setting is required")
		return
	}

	settings := s.scanner.Settings()

	var steps []func() error
	if req.Backlight != nil {
		steps = append(steps, func() error { return settings.SetBacklight(*req.Backlight) })
	}
	if req.BatterySave != nil {
		steps = append(steps, func() error { return settings.SetBatterySave(*req.BatterySave) })
	}
	if req.KeyBeep != nil {
		steps = append(steps, func() error { return settings.SetKeyBeep(*req.KeyBeep) })
	}
	if req.OpeningMessage != nil {
		steps = append(steps, func() error { return settings.SetOpeningMessage(*req.OpeningMessage) })
	}
	if req.PriorityMode != nil {
		steps = append(steps, func() error { return settings.SetPriorityMode(*req.PriorityMode) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			writeScannerError(w, err)
			return
		}
	}

	snap, err := settings.Snapshot()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleClearMemory erases every stored system and setting.
//
// The request must include an exact confirmation string as a safety guard.
func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	var req ClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Confirm != clearConfirmation {
		writeBadRequest(w, `confirm field must be exactly "`+clearConfirmation+`"`)
		return
	}

	if err := s.scanner.Settings().Clear(); err != nil {
		writeScannerError(w, err)
		return
	}
	s.logger.Warn("scanner memory cleared via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
