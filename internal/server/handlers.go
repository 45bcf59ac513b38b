package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/tourfit/internal/errors"
)

// maxBodyBytes bounds request bodies; instances are sent inline.
const maxBodyBytes = 32 << 20

// handleStart handles POST /api/v1/runs
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	status, err := s.startRun(req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, status)
}

// handleList handles GET /api/v1/runs
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.listRuns(r.Context(), limit)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// handleStatus handles GET /api/v1/runs/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.runStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

// handleCancel handles DELETE /api/v1/runs/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.cancelRun(chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cancellation requested"})
}

// handleEvaluate handles POST /api/v1/evaluate
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, map[string]interface{}{"error": fmt.Sprintf("Invalid request body: %v", err)})
		return
	}

	res, err := s.evaluate(req)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) respondErr(w http.ResponseWriter, err error) {
	s.respondJSON(w, errors.StatusFor(err), map[string]interface{}{"error": err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("Encoding response failed", map[string]interface{}{"error": err.Error()})
	}
}
