package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
)

func newRun(id string) *domain.CheckRun {
	return &domain.CheckRun{
		ID:         id,
		DocumentID: "doc-1",
		SheetName:  "Balance",
		Status:     domain.RunStatusPending,
		CreatedAt:  time.Now(),
	}
}

func TestCheckStore_SaveAndGetRun(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, newRun("run-1")))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusPending, got.Status)
	assert.Equal(t, "Balance", got.SheetName)
}

func TestCheckStore_SaveRunDuplicate(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, newRun("run-1")))
	assert.ErrorIs(t, store.SaveRun(ctx, newRun("run-1")), domain.ErrAlreadyExists)
}

func TestCheckStore_GetRunNotFound(t *testing.T) {
	store := NewCheckStore()

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckStore_UpdateRunPartial(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, newRun("run-1")))

	processing := domain.RunStatusProcessing
	progress := 40
	require.NoError(t, store.UpdateRun(ctx, "run-1", driven.RunPatch{
		Status:   &processing,
		Progress: &progress,
	}))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusProcessing, got.Status)
	assert.Equal(t, 40, got.Progress)
	// Untouched fields keep their values.
	assert.Equal(t, "Balance", got.SheetName)
	assert.Zero(t, got.TotalItems)
}

func TestCheckStore_UpdateRunTimestamps(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()
	require.NoError(t, store.SaveRun(ctx, newRun("run-1")))

	started := time.Now().Add(-time.Minute)
	completed := time.Now()
	require.NoError(t, store.UpdateRun(ctx, "run-1", driven.RunPatch{
		StartedAt:   &started,
		CompletedAt: &completed,
	}))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, got.StartedAt.Equal(started))
	assert.True(t, got.CompletedAt.Equal(completed))
}

func TestCheckStore_UpdateRunNotFound(t *testing.T) {
	store := NewCheckStore()

	err := store.UpdateRun(context.Background(), "missing", driven.RunPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCheckStore_ListRunsNewestFirst(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()

	old := newRun("run-old")
	old.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveRun(ctx, old))
	require.NoError(t, store.SaveRun(ctx, newRun("run-new")))

	runs, err := store.ListRuns(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
}

func TestCheckStore_UpsertResultReplacesOnCompositeKey(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()

	first := &domain.CheckResult{
		CheckRunID:      "run-1",
		ChecklistItemID: "item-1",
		Status:          domain.VerdictUnknown,
	}
	require.NoError(t, store.UpsertResult(ctx, first))

	second := &domain.CheckResult{
		CheckRunID:      "run-1",
		ChecklistItemID: "item-1",
		Status:          domain.VerdictPass,
	}
	require.NoError(t, store.UpsertResult(ctx, second))

	results, err := store.ListResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.VerdictPass, results[0].Status)

	count, err := store.CountResults(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCheckStore_ListResultsKeepsInsertionOrder(t *testing.T) {
	store := NewCheckStore()
	ctx := context.Background()

	for _, itemID := range []string{"item-1", "item-2", "item-3"} {
		require.NoError(t, store.UpsertResult(ctx, &domain.CheckResult{
			CheckRunID:      "run-1",
			ChecklistItemID: itemID,
		}))
	}

	results, err := store.ListResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "item-1", results[0].ChecklistItemID)
	assert.Equal(t, "item-3", results[2].ChecklistItemID)
}
