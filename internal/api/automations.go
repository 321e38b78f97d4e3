package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

// createAutomation creates a new automation rule for a deployment.
// POST /api/deployments/{deploymentID}/automations
func (s *Server) createAutomation(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	var rule hivelab.AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rule.DeploymentID = deploymentID

	if err := s.automationSvc.Create(r.Context(), &rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

// listAutomations returns a deployment's rules.
// GET /api/deployments/{deploymentID}/automations
func (s *Server) listAutomations(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")

	rules, err := s.automationSvc.List(r.Context(), deploymentID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []*hivelab.AutomationRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// getAutomation returns one rule.
// GET /api/deployments/{deploymentID}/automations/{id}
func (s *Server) getAutomation(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	id := chi.URLParam(r, "id")

	rule, err := s.automationSvc.Get(r.Context(), deploymentID, id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "automation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// updateAutomation replaces a rule's definition.
// PUT /api/deployments/{deploymentID}/automations/{id}
func (s *Server) updateAutomation(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	id := chi.URLParam(r, "id")

	var rule hivelab.AutomationRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rule.ID = id
	rule.DeploymentID = deploymentID

	err := s.automationSvc.Update(r.Context(), &rule)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "automation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// deleteAutomation removes a rule.
// DELETE /api/deployments/{deploymentID}/automations/{id}
func (s *Server) deleteAutomation(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	id := chi.URLParam(r, "id")

	err := s.automationSvc.Delete(r.Context(), deploymentID, id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "automation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// enableAutomation turns a rule on.
// POST /api/deployments/{deploymentID}/automations/{id}/enable
func (s *Server) enableAutomation(w http.ResponseWriter, r *http.Request) {
	s.setAutomationEnabled(w, r, true)
}

// disableAutomation turns a rule off.
// POST /api/deployments/{deploymentID}/automations/{id}/disable
func (s *Server) disableAutomation(w http.ResponseWriter, r *http.Request) {
	s.setAutomationEnabled(w, r, false)
}

func (s *Server) setAutomationEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	deploymentID := chi.URLParam(r, "deploymentID")
	id := chi.URLParam(r, "id")

	err := s.automationSvc.SetEnabled(r.Context(), deploymentID, id, enabled)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "automation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAutomationRuns returns one rule's run history.
// GET /api/deployments/{deploymentID}/automations/{id}/runs
func (s *Server) listAutomationRuns(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	id := chi.URLParam(r, "id")
	limit, offset := pagination(r)

	runs, total, err := s.runRepo.ListByAutomation(r.Context(), deploymentID, id, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRunPage(w, runs, total, limit, offset)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
