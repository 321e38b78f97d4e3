package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushive/hivelab/internal/hivelab"
)

// getState returns a deployment's shared tool state.
// GET /api/deployments/{deploymentID}/state
func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	state, err := s.stateSvc.Get(r.Context(), deploymentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// patchState deep-merges a patch into the deployment's state and reports
// any threshold automations the transition fired.
// PATCH /api/deployments/{deploymentID}/state
func (s *Server) patchState(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	var req struct {
		Patch  map[string]any `json:"patch"`
		UserID string         `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Patch) == 0 {
		http.Error(w, "patch is required", http.StatusBadRequest)
		return
	}

	rc := hivelab.RunContext{TriggeringUserID: req.UserID}
	state, results, err := s.stateSvc.Patch(r.Context(), deploymentID, req.Patch, rc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []hivelab.ExecutionResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":      state,
		"automation": results,
	})
}
