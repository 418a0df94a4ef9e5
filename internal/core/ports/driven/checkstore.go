package driven

import (
	"context"
	"time"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// RunPatch is a partial update to a check run. Nil fields are left
// unchanged. Only the run orchestrator applies patches.
type RunPatch struct {
	Status      *domain.RunStatus
	Progress    *int
	TotalItems  *int
	Error       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// CheckStore persists check runs and their results.
type CheckStore interface {
	// SaveRun stores a new check run.
	SaveRun(ctx context.Context, run *domain.CheckRun) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, id string) (*domain.CheckRun, error)

	// UpdateRun applies a partial update to a run.
	UpdateRun(ctx context.Context, id string, patch RunPatch) error

	// ListRuns returns runs for a document, most recent first.
	ListRuns(ctx context.Context, documentID string) ([]domain.CheckRun, error)

	// UpsertResult stores or overwrites the result for the composite key
	// (CheckRunID, ChecklistItemID). The operation is atomic: concurrent
	// upserts to the same key are last-write-wins with no duplicate rows.
	UpsertResult(ctx context.Context, result *domain.CheckResult) error

	// ListResults returns results for a run in checklist-item order.
	ListResults(ctx context.Context, runID string) ([]domain.CheckResult, error)

	// CountResults returns the number of results persisted for a run.
	CountResults(ctx context.Context, runID string) (int, error)
}
