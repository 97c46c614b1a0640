package stores

import (
	"context"
	"database/sql"
	"time"

	"github.com/fabricward/fabricward/pkg/engine"
)

// RunStatus is the lifecycle status of a recorded reconciliation run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded reconciliation run.
type Run struct {
	ID           string       `json:"id"`
	PlaybookPath string       `json:"playbook_path"`
	State        engine.State `json:"state"`
	Status       RunStatus    `json:"status"`
	Changed      bool         `json:"changed"`
	Failed       bool         `json:"failed"`
	Msg          string       `json:"msg"`
	StartedAt    time.Time    `json:"started_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	Error        *string      `json:"error,omitempty"`
}

// ActionRecord is one executed plan action of a run.
type ActionRecord struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Position   int       `json:"position"`
	Kind       string    `json:"kind"`
	NaturalKey string    `json:"natural_key"`
	Outcome    string    `json:"outcome"`
	Message    string    `json:"message,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the run-history persistence interface.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, id string, result engine.RunResult, runErr error) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Action operations
	RecordActions(ctx context.Context, runID string, results []engine.ActionResult) error
	ListActions(ctx context.Context, runID string) ([]*ActionRecord, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
