package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushive/hivelab/internal/hivelab"
)

// emitEvent reports an element interaction and runs the automations bound
// to it, returning their per-rule results.
// POST /api/deployments/{deploymentID}/events
func (s *Server) emitEvent(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	var req struct {
		ElementID string         `json:"element_id"`
		Event     string         `json:"event"`
		UserID    string         `json:"user_id"`
		SpaceID   string         `json:"space_id"`
		Data      map[string]any `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ElementID == "" || req.Event == "" {
		http.Error(w, "element_id and event are required", http.StatusBadRequest)
		return
	}

	rc := hivelab.RunContext{
		TriggeringUserID: req.UserID,
		SpaceID:          req.SpaceID,
		Data:             req.Data,
	}
	results, err := s.eventSvc.Emit(r.Context(), deploymentID, req.ElementID, req.Event, rc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []hivelab.ExecutionResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// previewCondition evaluates a single condition or group against a
// caller-supplied context, for the rule-authoring UI. No side effects.
// POST /api/conditions/preview
func (s *Server) previewCondition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Condition json.RawMessage `json:"condition"`
		Context   map[string]any  `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Condition) == 0 {
		http.Error(w, "condition is required", http.StatusBadRequest)
		return
	}

	var node hivelab.ConditionNode
	if err := json.Unmarshal(req.Condition, &node); err != nil {
		http.Error(w, "invalid condition", http.StatusBadRequest)
		return
	}

	result := s.automationSvc.PreviewCondition(node, req.Context)
	writeJSON(w, http.StatusOK, map[string]bool{"result": result})
}
