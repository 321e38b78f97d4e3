package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/campushive/hivelab/internal/hivelab"
)

func newRun(id, deploymentID, automationID string, ts time.Time) *hivelab.AutomationRun {
	return &hivelab.AutomationRun{
		ID:           id,
		AutomationID: automationID,
		DeploymentID: deploymentID,
		Timestamp:    ts,
		Status:       hivelab.RunSuccess,
		TriggerType:  hivelab.TriggerEvent,
	}
}

func TestMemoryRunRepo_CreateAndGet(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()

	ts := time.Now().Truncate(time.Second)
	run := newRun("run-001", "dep-1", "auto-1", ts)
	run.Error = "boom"
	run.DurationMS = 42

	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}

	got, err := repo.Get(ctx, "dep-1", "run-001")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}
	if got.AutomationID != "auto-1" {
		t.Errorf("AutomationID = %q, want %q", got.AutomationID, "auto-1")
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.Error != "boom" {
		t.Errorf("Error = %q, want %q", got.Error, "boom")
	}
	if got.DurationMS != 42 {
		t.Errorf("DurationMS = %d, want 42", got.DurationMS)
	}

	_, err = repo.Get(ctx, "dep-other", "run-001")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get with wrong deployment error = %v, want ErrNotFound", err)
	}
}

func TestMemoryRunRepo_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		run := newRun(fmt.Sprintf("run-%d", i), "dep-1", "auto-1", base.Add(time.Duration(i)*time.Minute))
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create returned unexpected error: %v", err)
		}
	}

	runs, total, err := repo.ListByDeployment(ctx, "dep-1", 3, 0)
	if err != nil {
		t.Fatalf("ListByDeployment returned unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(runs) != 3 {
		t.Fatalf("ListByDeployment returned %d runs, want 3", len(runs))
	}
	if runs[0].ID != "run-4" || runs[1].ID != "run-3" || runs[2].ID != "run-2" {
		t.Errorf("runs not newest first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	// Offset past the end yields an empty page with the correct total.
	runs, total, err = repo.ListByDeployment(ctx, "dep-1", 3, 10)
	if err != nil {
		t.Fatalf("ListByDeployment returned unexpected error: %v", err)
	}
	if total != 5 || len(runs) != 0 {
		t.Errorf("offset page: got %d runs, total %d; want 0 runs, total 5", len(runs), total)
	}
}

func TestMemoryRunRepo_ListByAutomation(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		if err := repo.Create(ctx, newRun(fmt.Sprintf("run-a-%d", i), "dep-1", "auto-a", base)); err != nil {
			t.Fatalf("Create returned unexpected error: %v", err)
		}
	}
	if err := repo.Create(ctx, newRun("run-b-0", "dep-1", "auto-b", base)); err != nil {
		t.Fatalf("Create returned unexpected error: %v", err)
	}

	runs, total, err := repo.ListByAutomation(ctx, "dep-1", "auto-a", 10, 0)
	if err != nil {
		t.Fatalf("ListByAutomation returned unexpected error: %v", err)
	}
	if total != 3 || len(runs) != 3 {
		t.Errorf("ListByAutomation returned %d runs (total %d), want 3", len(runs), total)
	}
	for _, run := range runs {
		if run.AutomationID != "auto-a" {
			t.Errorf("ListByAutomation returned run for %q", run.AutomationID)
		}
	}
}

func TestMemoryRunRepo_CountSince(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	times := []time.Time{
		base.Add(-36 * time.Hour), // yesterday
		base.Add(-2 * time.Hour),
		base.Add(-time.Minute),
	}
	for i, ts := range times {
		if err := repo.Create(ctx, newRun(fmt.Sprintf("run-%d", i), "dep-1", "auto-1", ts)); err != nil {
			t.Fatalf("Create returned unexpected error: %v", err)
		}
	}

	midnight := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	count, err := repo.CountSince(ctx, "dep-1", "auto-1", midnight)
	if err != nil {
		t.Fatalf("CountSince returned unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("CountSince = %d, want 2", count)
	}
}

func TestMemoryRunRepo_Prune(t *testing.T) {
	repo := NewMemoryRunRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 60; i++ {
		run := newRun(fmt.Sprintf("run-%03d", i), "dep-1", "auto-1", base.Add(time.Duration(i)*time.Second))
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create returned unexpected error: %v", err)
		}
	}

	if err := repo.Prune(ctx, "dep-1", hivelab.MaxRunsHistory); err != nil {
		t.Fatalf("Prune returned unexpected error: %v", err)
	}

	runs, total, err := repo.ListByDeployment(ctx, "dep-1", 100, 0)
	if err != nil {
		t.Fatalf("ListByDeployment returned unexpected error: %v", err)
	}
	if total != hivelab.MaxRunsHistory {
		t.Errorf("total after prune = %d, want %d", total, hivelab.MaxRunsHistory)
	}
	// Newest survive, oldest go.
	if runs[0].ID != "run-059" {
		t.Errorf("newest run = %q, want run-059", runs[0].ID)
	}
	if _, err := repo.Get(ctx, "dep-1", "run-000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("oldest run still present after prune, err = %v", err)
	}

	// Pruning an under-capacity deployment is a no-op.
	if err := repo.Prune(ctx, "dep-1", hivelab.MaxRunsHistory); err != nil {
		t.Fatalf("second Prune returned unexpected error: %v", err)
	}
	_, total, _ = repo.ListByDeployment(ctx, "dep-1", 100, 0)
	if total != hivelab.MaxRunsHistory {
		t.Errorf("total after second prune = %d, want %d", total, hivelab.MaxRunsHistory)
	}
}
