package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
)

// Ensure CheckStore implements the interface.
var _ driven.CheckStore = (*CheckStore)(nil)

// CheckStore is an in-memory implementation of driven.CheckStore.
// Results keep their first-insertion order per run; since the runner
// commits results in checklist order, ListResults preserves it.
type CheckStore struct {
	mu      sync.RWMutex
	runs    map[string]domain.CheckRun
	results map[string][]domain.CheckResult
}

// NewCheckStore creates a new in-memory check store.
func NewCheckStore() *CheckStore {
	return &CheckStore{
		runs:    make(map[string]domain.CheckRun),
		results: make(map[string][]domain.CheckResult),
	}
}

// SaveRun stores a new check run.
func (s *CheckStore) SaveRun(_ context.Context, run *domain.CheckRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.runs[run.ID] = *run
	return nil
}

// GetRun retrieves a run by ID.
func (s *CheckStore) GetRun(_ context.Context, id string) (*domain.CheckRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// UpdateRun applies a partial update to a run. Nil patch fields are
// left unchanged.
func (s *CheckStore) UpdateRun(_ context.Context, id string, patch driven.RunPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.ErrNotFound
	}

	if patch.Status != nil {
		run.Status = *patch.Status
	}
	if patch.Progress != nil {
		run.Progress = *patch.Progress
	}
	if patch.TotalItems != nil {
		run.TotalItems = *patch.TotalItems
	}
	if patch.Error != nil {
		run.Error = *patch.Error
	}
	if patch.StartedAt != nil {
		run.StartedAt = *patch.StartedAt
	}
	if patch.CompletedAt != nil {
		run.CompletedAt = *patch.CompletedAt
	}

	s.runs[id] = run
	return nil
}

// ListRuns returns runs for a document, most recent first.
func (s *CheckStore) ListRuns(_ context.Context, documentID string) ([]domain.CheckRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var runs []domain.CheckRun
	for _, run := range s.runs {
		if run.DocumentID == documentID {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

// UpsertResult stores or overwrites the result for the composite key
// (CheckRunID, ChecklistItemID).
func (s *CheckStore) UpsertResult(_ context.Context, result *domain.CheckResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	results := s.results[result.CheckRunID]
	for i := range results {
		if results[i].ChecklistItemID == result.ChecklistItemID {
			results[i] = *result
			return nil
		}
	}
	s.results[result.CheckRunID] = append(results, *result)
	return nil
}

// ListResults returns the results persisted for a run.
func (s *CheckStore) ListResults(_ context.Context, runID string) ([]domain.CheckResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.results[runID]
	results := make([]domain.CheckResult, len(stored))
	copy(results, stored)
	return results, nil
}

// CountResults returns the number of results persisted for a run.
func (s *CheckStore) CountResults(_ context.Context, runID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results[runID]), nil
}
