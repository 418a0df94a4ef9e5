package driving

import (
	"context"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// CheckService runs compliance checklists against documents.
type CheckService interface {
	// CreateRun registers a new pending check run for a document/sheet
	// pair and returns it. Every invocation creates a fresh run; history
	// is never mutated.
	CreateRun(ctx context.Context, documentID, sheetName string) (*domain.CheckRun, error)

	// StartRun launches the run asynchronously. Starting an already
	// active run id is an idempotent no-op.
	StartRun(ctx context.Context, runID string) error

	// StopRun requests cooperative cancellation of an active run.
	// In-flight provider calls complete; results persisted so far are
	// preserved.
	StopRun(runID string)

	// Progress reports the current state of a run.
	Progress(ctx context.Context, runID string) (*RunProgress, error)

	// IsActive reports whether the run is currently executing.
	IsActive(runID string) bool

	// Results returns the persisted results for a run in item order.
	Results(ctx context.Context, runID string) ([]domain.CheckResult, error)
}

// RunProgress is a point-in-time view of a run's progress.
type RunProgress struct {
	// Status is the run lifecycle state.
	Status domain.RunStatus

	// Progress is the integer completion percentage, 0-100.
	Progress int

	// TotalItems is the number of checklist items in the run.
	TotalItems int

	// CompletedItems is the number of results persisted so far.
	CompletedItems int

	// Error is the run-level failure message, if any.
	Error string
}
