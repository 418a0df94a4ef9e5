package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attesta-labs/attesta-cli/internal/adapters/driven/storage/memory"
	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// --- Mock implementations ---

// stubRetriever implements itemRetriever for testing.
type stubRetriever struct {
	chunks      []domain.RetrievedChunk
	retrieveErr error
}

func (s *stubRetriever) Retrieve(_ context.Context, _, _ string, _ int) ([]domain.RetrievedChunk, error) {
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	return s.chunks, nil
}

// stubEvaluator implements itemEvaluator for testing.
type stubEvaluator struct {
	mu      sync.Mutex
	verdict domain.Verdict
	delay   time.Duration
	started chan struct{}
	calls   int
}

func (s *stubEvaluator) Evaluate(_ context.Context, _ string, _ []domain.RetrievedChunk) (domain.Verdict, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.verdict, nil
}

func (s *stubEvaluator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// --- Test fixture ---

type runnerFixture struct {
	runner    *CheckRunner
	docs      *memory.DocumentStore
	checklist *memory.ChecklistStore
	checks    *memory.CheckStore
	evaluator *stubEvaluator
}

func newFixture(t *testing.T, itemCount int) *runnerFixture {
	t.Helper()
	ctx := context.Background()

	docs := memory.NewDocumentStore()
	require.NoError(t, docs.SaveDocument(ctx, &domain.Document{
		ID: "doc-1", Name: "report.txt", Processed: true, CreatedAt: time.Now(),
	}))

	checklist := memory.NewChecklistStore()
	items := make([]domain.ChecklistItem, itemCount)
	for i := range items {
		items[i] = domain.ChecklistItem{
			ID:        "item-" + string(rune('a'+i)),
			SheetName: "Balance",
			CheckID:   "B." + string(rune('1'+i)),
			CheckText: "criterion",
			Order:     i + 1,
		}
	}
	require.NoError(t, checklist.SaveItems(ctx, items))

	evaluator := &stubEvaluator{verdict: domain.Verdict{
		Status:     domain.VerdictPass,
		Reasoning:  "ok",
		Confidence: 0.8,
	}}

	checks := memory.NewCheckStore()
	runner := NewCheckRunner(
		docs, checklist, checks, &stubRetriever{}, evaluator,
		domain.CheckSettings{TopK: 5, BatchSize: 3},
	)

	return &runnerFixture{
		runner:    runner,
		docs:      docs,
		checklist: checklist,
		checks:    checks,
		evaluator: evaluator,
	}
}

func (f *runnerFixture) startAndWait(t *testing.T, runID string) {
	t.Helper()
	require.NoError(t, f.runner.StartRun(context.Background(), runID))
	f.runner.Wait()
}

// --- Tests ---

func TestCheckRunner_CreateRun(t *testing.T) {
	f := newFixture(t, 3)

	run, err := f.runner.CreateRun(context.Background(), "doc-1", "Balance")

	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, domain.RunStatusPending, run.Status)
	assert.Zero(t, run.Progress)
}

func TestCheckRunner_CreateRunUnknownDocument(t *testing.T) {
	f := newFixture(t, 3)

	_, err := f.runner.CreateRun(context.Background(), "missing", "Balance")

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckRunner_CreateRunMissingArgs(t *testing.T) {
	f := newFixture(t, 3)

	_, err := f.runner.CreateRun(context.Background(), "", "Balance")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.runner.CreateRun(context.Background(), "doc-1", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckRunner_RunCompletes(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)

	f.startAndWait(t, run.ID)

	got, err := f.checks.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, 5, got.TotalItems)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)

	results, err := f.checks.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 5)
	// Results land in checklist order regardless of batch concurrency.
	for i, result := range results {
		assert.Equal(t, "item-"+string(rune('a'+i)), result.ChecklistItemID)
		assert.Equal(t, domain.VerdictPass, result.Status)
	}
	assert.Equal(t, 5, f.evaluator.callCount())
}

func TestCheckRunner_EmptyChecklistFailsRun(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Nonexistent")
	require.NoError(t, err)

	f.startAndWait(t, run.ID)

	got, err := f.checks.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	assert.Equal(t, domain.ErrNoChecklistItems.Error(), got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestCheckRunner_ItemFilterAppliesBeforeCounting(t *testing.T) {
	f := newFixture(t, 4)
	f.runner.SetItemFilter(func(item domain.ChecklistItem) bool {
		return item.Order <= 2
	})
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)

	f.startAndWait(t, run.ID)

	got, err := f.checks.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, 2, got.TotalItems)
}

func TestCheckRunner_RetrievalFailureBecomesUnknownResult(t *testing.T) {
	f := newFixture(t, 2)
	f.runner.retriever = &stubRetriever{retrieveErr: errors.New("index corrupted")}
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)

	f.startAndWait(t, run.ID)

	// A single item's failure never aborts the run.
	got, err := f.checks.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)

	results, err := f.checks.ListResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, result := range results {
		assert.Equal(t, domain.VerdictUnknown, result.Status)
		assert.Contains(t, result.Reasoning, "Processing error")
		assert.Contains(t, result.Reasoning, "index corrupted")
	}
}

func TestCheckRunner_StartIsIdempotentWhileActive(t *testing.T) {
	f := newFixture(t, 6)
	f.evaluator.delay = 50 * time.Millisecond
	f.evaluator.started = make(chan struct{}, 1)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)

	require.NoError(t, f.runner.StartRun(ctx, run.ID))
	<-f.evaluator.started
	assert.True(t, f.runner.IsActive(run.ID))

	// Second start while running is a no-op.
	require.NoError(t, f.runner.StartRun(ctx, run.ID))

	f.runner.Wait()
	assert.False(t, f.runner.IsActive(run.ID))
	assert.Equal(t, 6, f.evaluator.callCount())
}

func TestCheckRunner_StartTerminalRunRejected(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)
	f.startAndWait(t, run.ID)

	err = f.runner.StartRun(ctx, run.ID)
	assert.ErrorIs(t, err, domain.ErrRunTerminal)
}

func TestCheckRunner_StartUnknownRun(t *testing.T) {
	f := newFixture(t, 2)

	err := f.runner.StartRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckRunner_StopCancelsAtBatchBoundary(t *testing.T) {
	f := newFixture(t, 10)
	f.evaluator.delay = 100 * time.Millisecond
	f.evaluator.started = make(chan struct{}, 1)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)

	require.NoError(t, f.runner.StartRun(ctx, run.ID))
	<-f.evaluator.started
	f.runner.StopRun(run.ID)
	f.runner.Wait()

	got, err := f.checks.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, got.Status)
	assert.Equal(t, "Job was cancelled", got.Error)

	// The dispatched batch completed and committed; nothing beyond it ran.
	results, err := f.checks.ListResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, 3, f.evaluator.callCount())
}

func TestCheckRunner_StopUnknownRunIsNoop(t *testing.T) {
	f := newFixture(t, 2)

	// Must not panic or block.
	f.runner.StopRun("missing")
	assert.False(t, f.runner.IsActive("missing"))
}

func TestCheckRunner_Progress(t *testing.T) {
	f := newFixture(t, 4)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)

	before, err := f.runner.Progress(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, before.Status)
	assert.Zero(t, before.CompletedItems)

	f.startAndWait(t, run.ID)

	after, err := f.runner.Progress(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, after.Status)
	assert.Equal(t, 100, after.Progress)
	assert.Equal(t, 4, after.TotalItems)
	assert.Equal(t, 4, after.CompletedItems)
}

func TestCheckRunner_ProgressUnknownRun(t *testing.T) {
	f := newFixture(t, 2)

	_, err := f.runner.Progress(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckRunner_Results(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	run, err := f.runner.CreateRun(ctx, "doc-1", "Balance")
	require.NoError(t, err)
	f.startAndWait(t, run.ID)

	results, err := f.runner.Results(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestCheckRunner_ResultsUnknownRun(t *testing.T) {
	f := newFixture(t, 2)

	_, err := f.runner.Results(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
