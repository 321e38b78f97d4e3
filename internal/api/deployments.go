package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

// createDeployment registers a tool deployment with the engine.
// POST /api/deployments
func (s *Server) createDeployment(w http.ResponseWriter, r *http.Request) {
	var dep hivelab.Deployment
	if err := json.NewDecoder(r.Body).Decode(&dep); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if dep.SpaceID == "" || dep.ToolID == "" {
		http.Error(w, "space_id and tool_id are required", http.StatusBadRequest)
		return
	}
	if dep.ID == "" {
		dep.ID = hivelab.GenerateID("dep")
	}
	dep.CreatedAt = time.Now()

	if err := s.deployRepo.Create(r.Context(), &dep); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

// listDeployments returns all registered deployments.
// GET /api/deployments
func (s *Server) listDeployments(w http.ResponseWriter, r *http.Request) {
	deps, err := s.deployRepo.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if deps == nil {
		deps = []*hivelab.Deployment{}
	}
	writeJSON(w, http.StatusOK, deps)
}

// getDeployment returns one deployment.
// GET /api/deployments/{deploymentID}
func (s *Server) getDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deploymentID")

	dep, err := s.deployRepo.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "deployment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

// deleteDeployment removes a deployment registration.
// DELETE /api/deployments/{deploymentID}
func (s *Server) deleteDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deploymentID")

	err := s.deployRepo.Delete(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "deployment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listMembers returns the space members visible to a deployment.
// GET /api/deployments/{deploymentID}/members
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deploymentID")

	members, err := s.memberRepo.Members(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if members == nil {
		members = []hivelab.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

// setMembers replaces a deployment's member roster (synced from the host).
// PUT /api/deployments/{deploymentID}/members
func (s *Server) setMembers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "deploymentID")

	var members []hivelab.Member
	if err := json.NewDecoder(r.Body).Decode(&members); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.memberRepo.SetMembers(r.Context(), id, members); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
