package stores

import (
	"context"
	"testing"
	"time"

	"github.com/fabricward/fabricward/pkg/engine"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	return store
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	run := &Run{
		ID:           "run-1",
		PlaybookPath: "playbooks/fabric.yml",
		State:        engine.StateMerged,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != RunStatusRunning || got.PlaybookPath != "playbooks/fabric.yml" {
		t.Errorf("run = %+v", got)
	}

	result := engine.RunResult{
		Changed: true,
		Msg:     "create_site: Global/USA/SJ",
		Response: map[string][]string{
			"create_site": {"Global/USA/SJ"},
		},
	}
	if err := store.FinishRun(ctx, "run-1", result, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun after finish: %v", err)
	}
	if got.Status != RunStatusCompleted || !got.Changed || got.Failed {
		t.Errorf("finished run = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("completed_at not set")
	}
}

func TestFinishRunFailure(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "run-2", State: engine.StateDeleted}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	result := engine.RunResult{Failed: true, Msg: "failed_site: Global/USA"}
	if err := store.FinishRun(ctx, "run-2", result, nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := store.GetRun(ctx, "run-2")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != RunStatusFailed || !got.Failed {
		t.Errorf("failed run = %+v", got)
	}

	if err := store.FinishRun(ctx, "missing", result, nil); err == nil {
		t.Error("finishing an unknown run should fail")
	}
}

func TestRecordAndListActions(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "run-3", State: engine.StateMerged}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	results := []engine.ActionResult{
		{Kind: engine.KindFabricSite, NaturalKey: "Global/USA/SJ",
			Outcome: engine.OutcomeCreated, TaskID: "task-1"},
		{Kind: engine.KindFabricZone, NaturalKey: "Global/USA/SJ/BLD1",
			Outcome: engine.OutcomeFailed, Message: "[task.failed] rejected"},
	}
	if err := store.RecordActions(ctx, "run-3", results); err != nil {
		t.Fatalf("RecordActions: %v", err)
	}

	records, err := store.ListActions(ctx, "run-3")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].Position != 0 || records[0].Kind != "fabric_site" || records[0].TaskID != "task-1" {
		t.Errorf("first record = %+v", records[0])
	}
	if records[1].Outcome != "failed" || records[1].Message == "" {
		t.Errorf("second record = %+v", records[1])
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	if err := store.CreateRun(ctx, &Run{ID: "run-old", State: engine.StateMerged, StartedAt: old}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.CreateRun(ctx, &Run{ID: "run-new", State: engine.StateMerged}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-new" {
		t.Errorf("runs = %v, %v", runs[0].ID, runs[1].ID)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateRun(ctx, &Run{ID: "run-4", State: engine.StateMerged}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := store.RecordActions(ctx, "run-4", []engine.ActionResult{
		{Kind: engine.KindFabricSite, NaturalKey: "Global/USA", Outcome: engine.OutcomeNoUpdate},
	}); err != nil {
		t.Fatalf("RecordActions: %v", err)
	}
	if err := store.DeleteRun(ctx, "run-4"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	records, err := store.ListActions(ctx, "run-4")
	if err != nil {
		t.Fatalf("ListActions: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("cascade left %d action records", len(records))
	}
	if _, err := store.GetRun(ctx, "run-4"); err == nil {
		t.Error("deleted run still readable")
	}
}
