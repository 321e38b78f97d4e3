package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

type runPage struct {
	Runs   []*hivelab.AutomationRun `json:"runs"`
	Total  int                      `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

func writeRunPage(w http.ResponseWriter, runs []*hivelab.AutomationRun, total, limit, offset int) {
	if runs == nil {
		runs = []*hivelab.AutomationRun{}
	}
	writeJSON(w, http.StatusOK, runPage{Runs: runs, Total: total, Limit: limit, Offset: offset})
}

// listRuns returns a deployment's run history, newest first.
// GET /api/deployments/{deploymentID}/runs
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	limit, offset := pagination(r)

	runs, total, err := s.runRepo.ListByDeployment(r.Context(), deploymentID, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRunPage(w, runs, total, limit, offset)
}

// getRun returns one run record.
// GET /api/deployments/{deploymentID}/runs/{id}
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	deploymentID := chi.URLParam(r, "deploymentID")
	id := chi.URLParam(r, "id")

	run, err := s.runRepo.Get(r.Context(), deploymentID, id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
