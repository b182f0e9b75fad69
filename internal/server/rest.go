package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/copyleftdev/simplexopt/internal/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleOptimize handles POST /api/v1/optimize
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteJSON(w, apierrors.Wrap(err, apierrors.KindInvalidInput, "invalid request body"))
		return
	}

	resp, err := s.startOptimization(req)
	if err != nil {
		apierrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleStatus handles GET /api/v1/status/{id}
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.status(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCancel handles DELETE /api/v1/optimization/{id}
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.cancelOptimization(id); err != nil {
		apierrors.WriteJSON(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"optimization_id": id,
		"status":          StatusCancelled,
	})
}

// handleProblems handles GET /api/v1/problems
func (s *Server) handleProblems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.listProblems())
}
