package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-scanner/internal/bridges/uniden"
)

// CreateSystemRequest is the body of POST /systems.
type CreateSystemRequest struct {
	Type uniden.SystemType `json:"type"`
}

// LockoutRequest is the body of the lockout PUT endpoints.
type LockoutRequest struct {
	Mask uniden.Bitmask `json:"mask"`
}

// systemIndex parses the {index} URL parameter.
func systemIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index <= 0 {
		writeBadRequest(w, "system index must be a positive integer")
		return 0, false
	}
	return index, true
}

// handleListSystems returns every stored system in scanner order.
func (s *Server) handleListSystems(w http.ResponseWriter, _ *http.Request) {
	systems, err := s.scanner.Systems().List()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	if systems == nil {
		systems = []*uniden.System{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"systems": systems,
		"count":   len(systems),
	})
}

// handleCreateSystem appends a system of the requested type.
func (s *Server) handleCreateSystem(w http.ResponseWriter, r *http.Request) {
	var req CreateSystemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	systems := s.scanner.Systems()
	sys := uniden.NewSystem(req.Type)
	if err := systems.Append(sys); err != nil {
		// A bound system was created; only the read-back failed.
		if !sys.Bound() {
			writeScannerError(w, err)
			return
		}
		s.logger.Warn("failed to read back new system", "index", sys.Index, "error", err)
	}

	w.Header().Set("Location", "/api/v1/systems/"+strconv.Itoa(sys.Index))
	writeJSON(w, http.StatusCreated, sys)
}

// handleGetSystem returns one stored system.
func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	index, ok := systemIndex(w, r)
	if !ok {
		return
	}

	sys, err := s.scanner.Systems().Get(index)
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

// handleDeleteSystem removes one stored system.
func (s *Server) handleDeleteSystem(w http.ResponseWriter, r *http.Request) {
	index, ok := systemIndex(w, r)
	if !ok {
		return
	}

	if err := s.scanner.Systems().Remove(index); err != nil {
		writeScannerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetQuickLockout returns the system quick key lockout mask.
func (s *Server) handleGetQuickLockout(w http.ResponseWriter, _ *http.Request) {
	mask, err := s.scanner.Systems().QuickLockout()
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LockoutRequest{Mask: mask})
}

// handleSetQuickLockout writes the system quick key lockout mask.
func (s *Server) handleSetQuickLockout(w http.ResponseWriter, r *http.Request) {
	var req LockoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.scanner.Systems().SetQuickLockout(req.Mask); err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// handleGetGroupLockout returns a system's group quick key lockout mask.
func (s *Server) handleGetGroupLockout(w http.ResponseWriter, r *http.Request) {
	index, ok := systemIndex(w, r)
	if !ok {
		return
	}

	mask, err := s.scanner.Systems().GroupQuickLockout(index)
	if err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LockoutRequest{Mask: mask})
}

// handleSetGroupLockout writes a system's group quick key lockout mask.
func (s *Server) handleSetGroupLockout(w http.ResponseWriter, r *http.Request) {
	index, ok := systemIndex(w, r)
	if !ok {
		return
	}

	var req LockoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.scanner.Systems().SetGroupQuickLockout(index, req.Mask); err != nil {
		writeScannerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
