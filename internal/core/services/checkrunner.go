package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driving"
	"github.com/attesta-labs/attesta-cli/internal/logger"
)

// Ensure CheckRunner implements the interface.
var _ driving.CheckService = (*CheckRunner)(nil)

// errRunCancelled is the run-level error message persisted when a run
// is stopped cooperatively.
const errRunCancelled = "Job was cancelled"

// batchInterval paces evaluation batches to stay under provider rate
// limits.
const batchInterval = 500 * time.Millisecond

// defaultBatchSize is the evaluation concurrency window within a run.
const defaultBatchSize = 3

// itemRetriever selects the relevant chunks for a criterion.
type itemRetriever interface {
	Retrieve(ctx context.Context, documentID, query string, topK int) ([]domain.RetrievedChunk, error)
}

// itemEvaluator judges a criterion against its retrieved chunks.
type itemEvaluator interface {
	Evaluate(ctx context.Context, checkText string, chunks []domain.RetrievedChunk) (domain.Verdict, error)
}

// ItemFilter decides whether a checklist item applies to the document
// under check. The default filter accepts everything.
type ItemFilter func(item domain.ChecklistItem) bool

// CheckRunner orchestrates check runs: it owns the run lifecycle, the
// active-run registry and the batch evaluation loop. A run executes on
// a detached context so it survives the caller's request scope; StopRun
// cancels it cooperatively at batch boundaries.
type CheckRunner struct {
	docStore       driven.DocumentStore
	checklistStore driven.ChecklistStore
	checkStore     driven.CheckStore
	retriever      itemRetriever
	evaluator      itemEvaluator
	settings       domain.CheckSettings
	itemFilter     ItemFilter
	limiter        *rate.Limiter

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// NewCheckRunner creates a check runner.
func NewCheckRunner(
	docStore driven.DocumentStore,
	checklistStore driven.ChecklistStore,
	checkStore driven.CheckStore,
	retriever itemRetriever,
	evaluator itemEvaluator,
	settings domain.CheckSettings,
) *CheckRunner {
	if settings.TopK <= 0 {
		settings.TopK = DefaultTopK
	}
	if settings.BatchSize <= 0 {
		settings.BatchSize = defaultBatchSize
	}

	return &CheckRunner{
		docStore:       docStore,
		checklistStore: checklistStore,
		checkStore:     checkStore,
		retriever:      retriever,
		evaluator:      evaluator,
		settings:       settings,
		itemFilter:     func(domain.ChecklistItem) bool { return true },
		limiter:        rate.NewLimiter(rate.Every(batchInterval), 1),
		active:         make(map[string]context.CancelFunc),
	}
}

// SetItemFilter installs an applicability predicate evaluated per item
// when the run loads its checklist.
func (r *CheckRunner) SetItemFilter(filter ItemFilter) {
	if filter != nil {
		r.itemFilter = filter
	}
}

// CreateRun registers a new pending run for a document/sheet pair.
func (r *CheckRunner) CreateRun(ctx context.Context, documentID, sheetName string) (*domain.CheckRun, error) {
	if documentID == "" || sheetName == "" {
		return nil, fmt.Errorf("%w: document id and sheet name are required", domain.ErrInvalidInput)
	}

	if _, err := r.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("get document %s: %w", documentID, err)
	}

	run := &domain.CheckRun{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		SheetName:  sheetName,
		Status:     domain.RunStatusPending,
		CreatedAt:  time.Now(),
	}

	if err := r.checkStore.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	logger.Info("Created check run %s for document %s, sheet %q", run.ID, documentID, sheetName)
	return run, nil
}

// StartRun launches a run in the background. Starting a run that is
// already active is a no-op; starting a terminal run is an error.
func (r *CheckRunner) StartRun(ctx context.Context, runID string) error {
	run, err := r.checkStore.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("get run %s: %w", runID, err)
	}
	if run.Status.IsTerminal() {
		return fmt.Errorf("%w: run %s is %s", domain.ErrRunTerminal, runID, run.Status)
	}

	r.mu.Lock()
	if _, running := r.active[runID]; running {
		r.mu.Unlock()
		logger.Debug("Run %s already active, ignoring start", runID)
		return nil
	}

	// Detached context: the run outlives the caller's request scope and
	// stops only via StopRun.
	runCtx, cancel := context.WithCancel(context.Background())
	r.active[runID] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.deregister(runID)
		defer cancel()
		r.execute(runCtx, run)
	}()

	return nil
}

// StopRun requests cancellation of an active run. Unknown or inactive
// run ids are ignored.
func (r *CheckRunner) StopRun(runID string) {
	r.mu.Lock()
	cancel, ok := r.active[runID]
	r.mu.Unlock()

	if ok {
		logger.Info("Stopping check run %s", runID)
		cancel()
	}
}

// IsActive reports whether the run is currently executing.
func (r *CheckRunner) IsActive(runID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[runID]
	return ok
}

// Progress reports the persisted state of a run.
func (r *CheckRunner) Progress(ctx context.Context, runID string) (*driving.RunProgress, error) {
	run, err := r.checkStore.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	completed, err := r.checkStore.CountResults(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}

	return &driving.RunProgress{
		Status:         run.Status,
		Progress:       run.Progress,
		TotalItems:     run.TotalItems,
		CompletedItems: completed,
		Error:          run.Error,
	}, nil
}

// Results returns the persisted results for a run in item order.
func (r *CheckRunner) Results(ctx context.Context, runID string) ([]domain.CheckResult, error) {
	if _, err := r.checkStore.GetRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return r.checkStore.ListResults(ctx, runID)
}

// Wait blocks until all active runs have finished. Used for clean
// shutdown.
func (r *CheckRunner) Wait() {
	r.wg.Wait()
}

func (r *CheckRunner) deregister(runID string) {
	r.mu.Lock()
	delete(r.active, runID)
	r.mu.Unlock()
}

// execute is the run loop. It moves the run to processing, loads the
// sheet's checklist, evaluates items in paced batches and commits each
// batch's results in item order before reporting progress.
func (r *CheckRunner) execute(ctx context.Context, run *domain.CheckRun) {
	logger.Section("Check Run Execution")
	logger.Info("Run %s: document %s, sheet %q", run.ID, run.DocumentID, run.SheetName)

	now := time.Now()
	processing := domain.RunStatusProcessing
	if err := r.checkStore.UpdateRun(ctx, run.ID, driven.RunPatch{
		Status:    &processing,
		StartedAt: &now,
	}); err != nil {
		logger.Warn("Run %s: failed to mark processing: %v", run.ID, err)
		return
	}

	items, err := r.loadItems(ctx, run.SheetName)
	if err != nil {
		r.failRun(run.ID, err.Error())
		return
	}

	total := len(items)
	if err := r.checkStore.UpdateRun(ctx, run.ID, driven.RunPatch{TotalItems: &total}); err != nil {
		r.failRun(run.ID, fmt.Sprintf("persist total items: %v", err))
		return
	}
	logger.Info("Run %s: %d checklist items", run.ID, total)

	completed := 0
	for start := 0; start < total; start += r.settings.BatchSize {
		// Cancellation is observed at batch boundaries: a dispatched
		// batch always completes and commits before the run fails.
		if ctx.Err() != nil {
			logger.Info("Run %s: cancelled after %d/%d items", run.ID, completed, total)
			r.failRun(run.ID, errRunCancelled)
			return
		}

		if start > 0 {
			if err := r.limiter.Wait(ctx); err != nil {
				logger.Info("Run %s: cancelled while pacing", run.ID)
				r.failRun(run.ID, errRunCancelled)
				return
			}
		}

		end := start + r.settings.BatchSize
		if end > total {
			end = total
		}
		batch := items[start:end]

		results := r.evaluateBatch(run, batch)

		// Commit in checklist order so partial runs read coherently.
		for _, result := range results {
			if err := r.checkStore.UpsertResult(context.Background(), result); err != nil {
				r.failRun(run.ID, fmt.Sprintf("persist result for item %s: %v", result.ChecklistItemID, err))
				return
			}
		}

		completed += len(batch)
		progress := int(math.Round(float64(completed) / float64(total) * 100))
		if err := r.checkStore.UpdateRun(context.Background(), run.ID, driven.RunPatch{Progress: &progress}); err != nil {
			logger.Warn("Run %s: failed to persist progress: %v", run.ID, err)
		}
		logger.Debug("Run %s: %d/%d items (%d%%)", run.ID, completed, total, progress)
	}

	r.completeRun(run.ID)
	logger.Info("Run %s: completed", run.ID)
}

// loadItems returns the sheet's applicable checklist items in order.
func (r *CheckRunner) loadItems(ctx context.Context, sheetName string) ([]domain.ChecklistItem, error) {
	all, err := r.checklistStore.ListItems(ctx, sheetName)
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}

	items := make([]domain.ChecklistItem, 0, len(all))
	for _, item := range all {
		if r.itemFilter(item) {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return nil, domain.ErrNoChecklistItems
	}
	return items, nil
}

// evaluateBatch evaluates a batch of items concurrently and returns
// their results in batch order. Item failures never escape: they are
// converted to UNKNOWN results locally.
func (r *CheckRunner) evaluateBatch(run *domain.CheckRun, batch []domain.ChecklistItem) []*domain.CheckResult {
	results := make([]*domain.CheckResult, len(batch))

	// The group context is deliberately fresh: an in-flight batch runs
	// to completion even when the run is being cancelled.
	g, gctx := errgroup.WithContext(context.Background())
	for i, item := range batch {
		g.Go(func() error {
			results[i] = r.evaluateItem(gctx, run, item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// evaluateItem retrieves and evaluates a single checklist item. Any
// failure becomes an UNKNOWN result carrying the error text.
func (r *CheckRunner) evaluateItem(
	ctx context.Context, run *domain.CheckRun, item domain.ChecklistItem,
) *domain.CheckResult {
	started := time.Now()

	verdict, err := r.judge(ctx, run.DocumentID, item.CheckText)
	if err != nil {
		logger.Warn("Run %s: item %s failed: %v", run.ID, item.CheckID, err)
		verdict = unknownVerdict(fmt.Sprintf("Processing error: %v", err))
	}

	return &domain.CheckResult{
		CheckRunID:      run.ID,
		ChecklistItemID: item.ID,
		Status:          verdict.Status,
		Reasoning:       verdict.Reasoning,
		Evidence:        verdict.Evidence,
		Confidence:      verdict.Confidence,
		ProcessingTime:  time.Since(started),
	}
}

func (r *CheckRunner) judge(ctx context.Context, documentID, checkText string) (domain.Verdict, error) {
	chunks, err := r.retriever.Retrieve(ctx, documentID, checkText, r.settings.TopK)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("retrieve: %w", err)
	}

	verdict, err := r.evaluator.Evaluate(ctx, checkText, chunks)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("evaluate: %w", err)
	}
	return verdict, nil
}

// failRun moves a run to failed. Uses a fresh context so the terminal
// state is persisted even after cancellation.
func (r *CheckRunner) failRun(runID, message string) {
	now := time.Now()
	failed := domain.RunStatusFailed
	if err := r.checkStore.UpdateRun(context.Background(), runID, driven.RunPatch{
		Status:      &failed,
		Error:       &message,
		CompletedAt: &now,
	}); err != nil {
		logger.Warn("Run %s: failed to persist failure: %v", runID, err)
	}
}

func (r *CheckRunner) completeRun(runID string) {
	now := time.Now()
	completed := domain.RunStatusCompleted
	progress := 100
	if err := r.checkStore.UpdateRun(context.Background(), runID, driven.RunPatch{
		Status:      &completed,
		Progress:    &progress,
		CompletedAt: &now,
	}); err != nil {
		logger.Warn("Run %s: failed to persist completion: %v", runID, err)
	}
}
