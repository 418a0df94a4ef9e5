package domain

import "time"

// RunStatus is the lifecycle state of a check run.
type RunStatus string

// Run lifecycle states. The only legal transitions are
// pending -> processing -> completed or failed; the terminal states
// are never left. Re-checking a document requires a new CheckRun.
const (
	RunStatusPending    RunStatus = "pending"
	RunStatusProcessing RunStatus = "processing"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// IsValid returns true if the run status is recognised.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusProcessing, RunStatusCompleted, RunStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transition may leave this status.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// CanTransitionTo reports whether the transition to next is legal.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	switch s {
	case RunStatusPending:
		return next == RunStatusProcessing || next == RunStatusFailed
	case RunStatusProcessing:
		return next == RunStatusCompleted || next == RunStatusFailed
	default:
		return false
	}
}

// String returns the string representation.
func (s RunStatus) String() string {
	return string(s)
}

// CheckRun is one execution of a checklist sheet against one document.
// Status and progress are mutated only by the run orchestrator.
type CheckRun struct {
	// ID is the unique identifier for the run.
	ID string

	// DocumentID is the document under review.
	DocumentID string

	// SheetName selects the checklist sheet being evaluated.
	SheetName string

	// Status is the lifecycle state.
	Status RunStatus

	// Progress is the integer completion percentage, 0-100.
	// Monotonically non-decreasing within the run's lifetime.
	Progress int

	// TotalItems is the number of checklist items active at run start.
	TotalItems int

	// Error holds the run-level failure message, if any.
	Error string

	// CreatedAt is when the run was created.
	CreatedAt time.Time

	// StartedAt is when processing began.
	StartedAt time.Time

	// CompletedAt is when the run reached a terminal state.
	CompletedAt time.Time
}

// VerdictStatus is the outcome of evaluating one criterion.
type VerdictStatus string

// Verdict outcomes.
const (
	VerdictPass    VerdictStatus = "PASS"
	VerdictFail    VerdictStatus = "FAIL"
	VerdictUnknown VerdictStatus = "UNKNOWN"
)

// IsValid returns true if the verdict status is recognised.
func (s VerdictStatus) IsValid() bool {
	switch s {
	case VerdictPass, VerdictFail, VerdictUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s VerdictStatus) String() string {
	return string(s)
}

// Evidence is a quoted passage supporting a verdict, citing the page
// it was found on. Quotes are grounded against the retrieved chunk
// text before they are accepted.
type Evidence struct {
	// Page is the 1-based page number the quote came from.
	Page int `json:"page"`

	// Quote is the cited passage.
	Quote string `json:"quote"`
}

// Verdict is a validated evaluation outcome for one criterion.
type Verdict struct {
	// Status is PASS, FAIL or UNKNOWN.
	Status VerdictStatus

	// Reasoning is a short explanation of the judgement.
	Reasoning string

	// Evidence lists grounded quotes supporting the judgement.
	Evidence []Evidence

	// Confidence is the evaluator's self-reported confidence in [0,1].
	Confidence float64
}

// CheckResult is the persisted verdict for one checklist item within one
// run. Identity is the composite key (CheckRunID, ChecklistItemID); the
// store guarantees upsert atomicity on that key.
type CheckResult struct {
	// CheckRunID links to the owning run.
	CheckRunID string

	// ChecklistItemID links to the evaluated criterion.
	ChecklistItemID string

	// Status is the verdict outcome.
	Status VerdictStatus

	// Reasoning is the verdict explanation.
	Reasoning string

	// Evidence lists grounded supporting quotes in cited order.
	Evidence []Evidence

	// Confidence is the verdict confidence in [0,1].
	Confidence float64

	// ProcessingTime is how long retrieval plus evaluation took.
	ProcessingTime time.Duration
}
