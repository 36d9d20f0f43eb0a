package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
)

// ScannerInfo is the response for GET /scanner.
type ScannerInfo struct {
	Port     string       `json:"port"`
	Model    string       `json:"model"`
	Firmware string       `json:"firmware"`
	Program  bool         `json:"program"`
	Stats    SessionStats `json:"stats"`
}

// SessionStats is the JSON form of uniden.DeviceStats.
type SessionStats struct {
	Commands     uint64     `json:"commands"`
	Errors       uint64     `json:"errors"`
	Timeouts     uint64     `json:"timeouts"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	PoweredOff   bool       `json:"powered_off"`
}

// ProgramRequest is the body of PUT /scanner/program.
type ProgramRequest struct {
	Enabled *bool `json:"enabled"`
}

// KeyRequest is the body of POST /scanner/key.
type KeyRequest struct {
	Code uniden.KeyCode `json:"code"`
	Mode uniden.KeyMode `json:"mode,omitempty"`
}

func sessionStats(st uniden.DeviceStats) SessionStats {
	out := SessionStats{
		Commands:   st.CommandsTotal,
		Errors:     st.ErrorsTotal,
		Timeouts:   st.TimeoutsTotal,
		PoweredOff: st.PoweredOff,
	}
	if !st.LastActivity.IsZero() {
		t := st.LastActivity.UTC()
		out.LastActivity = &t
	}
	return out
}

// handleGetScanner returns the scanner identity and session state.
func (s *Server) handleGetScanner(w http.ResponseWriter, _ *http.Request) {
	model, err := s.scanner.Model()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	firmware, err := s.scanner.Firmware()
	if err != nil {
		writeScannerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ScannerInfo{
		Port:     s.scanner.Port(),
		Model:    model,
		Firmware: firmware,
		Program:  s.scanner.Program(),
		Stats:    sessionStats(s.scanner.Stats()),
	})
}

// handleGetStatus returns the current display state.
func (s *Server) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	status, err := s.scanner.Status()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// handleGetTalkgroup returns the talkgroup being received.
func (s *Server) handleGetTalkgroup(w http.ResponseWriter, _ *http.Request) {
	tg, err := s.scanner.Talkgroup()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":    tg.Active(),
		"talkgroup": tg,
	})
}

// handleSetProgram enters or leaves program mode.
func (s *Server) handleSetProgram(w http.ResponseWriter, r *http.Request) {
	var req ProgramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	if err := s.scanner.SetProgram(*req.Enabled); err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"program": s.scanner.Program()})
}

// handlePressKey sends a key press or release.
func (s *Server) handlePressKey(w http.ResponseWriter, r *http.Request) {
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Mode == "" {
		req.Mode = uniden.KeyPress
	}

	if err := s.scanner.Key(req.Code, req.Mode); err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleQuickSearch tunes a frequency in quick search hold mode.
func (s *Server) handleQuickSearch(w http.ResponseWriter, r *http.Request) {
	var req uniden.QuickSearch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.scanner.QuickSearch(req); err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePowerOff turns the scanner off. Later scanner requests fail with 503.
func (s *Server) handlePowerOff(w http.ResponseWriter, _ *http.Request) {
	if err := s.scanner.PowerOff(); err != nil {
		writeScannerError(w, err)
		return
	}
	s.logger.Info("scanner powered off via API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "powered_off"})
}
