package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/campushive/hivelab/internal/api"
	"github.com/campushive/hivelab/internal/config"
	"github.com/campushive/hivelab/internal/db"
	"github.com/campushive/hivelab/internal/engine"
	"github.com/campushive/hivelab/internal/notify"
	"github.com/campushive/hivelab/internal/repository"
	"github.com/campushive/hivelab/internal/services"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		serve()
		return
	}
	fmt.Println("hivelab v0.1.0")
	fmt.Println("Usage: hivelab serve")
}

func serve() {
	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// In-memory stores are always present; PostgreSQL layers on top when
	// configured.
	memAutomations := repository.NewMemoryAutomationRepository()
	memRuns := repository.NewMemoryRunRepository()
	memState := repository.NewMemoryStateRepository()
	deployments := repository.NewMemoryDeploymentRepository()
	members := repository.NewMemoryMembershipRepository()

	var (
		automations repository.AutomationRepository = memAutomations
		runs        repository.RunRepository        = memRuns
		state       repository.StateRepository      = memState
	)
	if cfg.Database.URL != "" {
		database, err := db.New(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		if err := database.Migrate(ctx); err != nil {
			slog.Error("database migration failed", "err", err)
			os.Exit(1)
		}
		persistentAutomations := repository.NewPersistentAutomationRepository(memAutomations, database)
		warmed, err := persistentAutomations.WarmUp(ctx)
		if err != nil {
			slog.Error("automation warm-up failed", "err", err)
			os.Exit(1)
		}
		automations = persistentAutomations
		runs = repository.NewPersistentRunRepository(memRuns, database)
		state = repository.NewPersistentStateRepository(memState, database)
		slog.Info("database connected", "automations_loaded", warmed)
	} else {
		slog.Info("no database configured, running in-memory only")
	}

	resolver := services.NewMembershipResolver(members)
	emailSender := notify.NewSMTPEmailSender(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Password: cfg.SMTP.Password,
	}, resolver)

	// Push delivery is an optional capability; leave the executor nil when
	// no gateway is configured so push actions fail without being attempted.
	var pushSender engine.PushSender
	if cfg.Push.WebhookURL != "" {
		pushSender = notify.NewWebhookPushSender(cfg.Push.WebhookURL)
	}

	stateSvc := services.NewStateService(state)
	dispatcher := services.NewToolTriggerDispatcher()
	runner := engine.NewRunner(
		repository.NewEngineStore(automations, runs, state),
		engine.Executors{
			Email:      emailSender,
			Push:       pushSender,
			Mutator:    stateSvc,
			Tools:      dispatcher,
			Recipients: resolver,
		},
	)
	stateSvc.SetRunner(runner)

	eventSvc := services.NewEventService(runner)
	dispatcher.SetEventService(eventSvc)
	automationSvc := services.NewAutomationService(automations)

	schedulerSvc := services.NewSchedulerService(runner, automations, cfg.Scheduler.MaxParallel)
	if err := schedulerSvc.Start(); err != nil {
		slog.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}

	srv := api.NewServer(automationSvc, eventSvc, stateSvc, runs, deployments, members)
	srv.SetSchedulerService(schedulerSvc)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	go func() {
		slog.Info("starting hivelab server", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	schedulerSvc.Stop()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}
