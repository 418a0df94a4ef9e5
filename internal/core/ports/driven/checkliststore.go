package driven

import (
	"context"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// ChecklistStore persists compliance checklist criteria.
// Items are imported once and read-only to check runs.
type ChecklistStore interface {
	// SaveItems stores or updates checklist items.
	SaveItems(ctx context.Context, items []domain.ChecklistItem) error

	// ListItems returns the items for a sheet, ordered by Order.
	ListItems(ctx context.Context, sheetName string) ([]domain.ChecklistItem, error)

	// ListSheets returns the distinct sheet names available.
	ListSheets(ctx context.Context) ([]string, error)
}
