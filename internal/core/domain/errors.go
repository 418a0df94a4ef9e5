package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRunActive indicates a check run is already being executed.
	// Starting the same run id twice is a no-op, not a failure.
	ErrRunActive = errors.New("check run already active")

	// ErrRunTerminal indicates a run has reached a terminal state and
	// cannot transition further. Re-checking requires a new run.
	ErrRunTerminal = errors.New("check run already finished")

	// ErrNoChecklistItems indicates no checklist items exist for the
	// requested sheet. This is the one run-level fatal condition that
	// is not a per-item failure.
	ErrNoChecklistItems = errors.New("no checklist items found for this sheet")

	// ErrLLMUnavailable indicates the completion provider is not
	// configured. Evaluation degrades to a fixed UNKNOWN verdict.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding provider is not
	// configured. Retrieval degrades to keyword matching.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDimensionMismatch indicates two vectors of different lengths
	// were compared. A programming-contract violation, never expected
	// with a consistently configured embedding model.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
