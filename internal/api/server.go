package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/campushive/hivelab/internal/repository"
	"github.com/campushive/hivelab/internal/services"
)

// Server exposes the automation engine over HTTP to the host platform.
type Server struct {
	automationSvc *services.AutomationService
	eventSvc      *services.EventService
	stateSvc      *services.StateService
	schedulerSvc  *services.SchedulerService
	runRepo       repository.RunRepository
	deployRepo    repository.DeploymentRepository
	memberRepo    repository.MembershipRepository
}

func NewServer(
	automationSvc *services.AutomationService,
	eventSvc *services.EventService,
	stateSvc *services.StateService,
	runRepo repository.RunRepository,
	deployRepo repository.DeploymentRepository,
	memberRepo repository.MembershipRepository,
) *Server {
	return &Server{
		automationSvc: automationSvc,
		eventSvc:      eventSvc,
		stateSvc:      stateSvc,
		runRepo:       runRepo,
		deployRepo:    deployRepo,
		memberRepo:    memberRepo,
	}
}

// SetSchedulerService configures the scheduler service for the stats endpoint.
func (s *Server) SetSchedulerService(svc *services.SchedulerService) {
	s.schedulerSvc = svc
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}))
	r.Route("/api", func(r chi.Router) {
		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", s.createDeployment)
			r.Get("/", s.listDeployments)
			r.Route("/{deploymentID}", func(r chi.Router) {
				r.Get("/", s.getDeployment)
				r.Delete("/", s.deleteDeployment)
				r.Get("/members", s.listMembers)
				r.Put("/members", s.setMembers)

				r.Route("/automations", func(r chi.Router) {
					r.Post("/", s.createAutomation)
					r.Get("/", s.listAutomations)
					r.Get("/{id}", s.getAutomation)
					r.Put("/{id}", s.updateAutomation)
					r.Delete("/{id}", s.deleteAutomation)
					r.Post("/{id}/enable", s.enableAutomation)
					r.Post("/{id}/disable", s.disableAutomation)
					r.Get("/{id}/runs", s.listAutomationRuns)
				})
				r.Route("/runs", func(r chi.Router) {
					r.Get("/", s.listRuns)
					r.Get("/{id}", s.getRun)
				})
				r.Get("/state", s.getState)
				r.Patch("/state", s.patchState)
				r.Post("/events", s.emitEvent)
			})
		})
		r.Post("/conditions/preview", s.previewCondition)
		r.Get("/scheduler/stats", s.getSchedulerStats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// getSchedulerStats returns scheduler tick counters.
// GET /api/scheduler/stats
func (s *Server) getSchedulerStats(w http.ResponseWriter, r *http.Request) {
	if s.schedulerSvc == nil {
		http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.schedulerSvc.Stats())
}
