package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/hivelab"
	"github.com/campushive/hivelab/internal/repository"
)

// SchedulerService drives schedule-triggered automations. A minute-level
// cron tick lists the deployments owning schedule rules and fans
// ProcessScheduledTriggers out across them; rules within one deployment stay
// strictly sequential inside the runner.
type SchedulerService struct {
	cron        *cron.Cron
	runner      *engine.Runner
	automations repository.AutomationRepository
	maxParallel int

	mu            sync.Mutex
	entryID       cron.EntryID
	ticks         int64
	lastTick      time.Time
	runsProcessed int64
}

// SchedulerStats is a snapshot of the scheduler's counters for the API.
type SchedulerStats struct {
	Ticks         int64     `json:"ticks"`
	LastTick      time.Time `json:"last_tick"`
	RunsProcessed int64     `json:"runs_processed"`
}

func NewSchedulerService(runner *engine.Runner, automations repository.AutomationRepository, maxParallel int) *SchedulerService {
	if maxParallel <= 0 {
		maxParallel = 4
	}
	return &SchedulerService{
		cron:        cron.New(),
		runner:      runner,
		automations: automations,
		maxParallel: maxParallel,
	}
}

// Start registers the minute tick and begins the cron loop.
func (s *SchedulerService) Start() error {
	entryID, err := s.cron.AddFunc("* * * * *", s.tick)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entryID = entryID
	s.mu.Unlock()

	s.cron.Start()
	slog.Info("scheduler: started", "max_parallel", s.maxParallel)
	return nil
}

// Stop gracefully stops the cron loop, waiting for a running tick.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler: stopped")
}

// Stats returns a snapshot of the scheduler's counters.
func (s *SchedulerService) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SchedulerStats{
		Ticks:         s.ticks,
		LastTick:      s.lastTick,
		RunsProcessed: s.runsProcessed,
	}
}

// TickNow runs one tick synchronously, outside the cron loop.
func (s *SchedulerService) TickNow() {
	s.tick()
}

func (s *SchedulerService) tick() {
	ctx := context.Background()

	deployments, err := s.automations.DeploymentsWithTrigger(ctx, hivelab.TriggerSchedule)
	if err != nil {
		slog.Warn("scheduler: failed to list deployments", "err", err)
		return
	}

	var processed int64
	if len(deployments) > 0 {
		var mu sync.Mutex
		g := new(errgroup.Group)
		g.SetLimit(s.maxParallel)
		for _, deploymentID := range deployments {
			deploymentID := deploymentID
			g.Go(func() error {
				results, err := s.runner.ProcessScheduledTriggers(ctx, deploymentID, hivelab.RunContext{})
				if err != nil {
					slog.Warn("scheduler: deployment tick failed", "deployment", deploymentID, "err", err)
					return nil // one deployment never blocks the rest
				}
				mu.Lock()
				processed += int64(len(results))
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	s.mu.Lock()
	s.ticks++
	s.lastTick = time.Now()
	s.runsProcessed += processed
	s.mu.Unlock()

	if processed > 0 {
		slog.Info("scheduler: tick complete", "deployments", len(deployments), "runs", processed)
	}
}
