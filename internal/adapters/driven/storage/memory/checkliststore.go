package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
)

// Ensure ChecklistStore implements the interface.
var _ driven.ChecklistStore = (*ChecklistStore)(nil)

// ChecklistStore is an in-memory implementation of driven.ChecklistStore.
type ChecklistStore struct {
	mu    sync.RWMutex
	items map[string]domain.ChecklistItem
}

// NewChecklistStore creates a new in-memory checklist store.
func NewChecklistStore() *ChecklistStore {
	return &ChecklistStore{
		items: make(map[string]domain.ChecklistItem),
	}
}

// SaveItems stores or updates checklist items.
func (s *ChecklistStore) SaveItems(_ context.Context, items []domain.ChecklistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.items[item.ID] = item
	}
	return nil
}

// ListItems returns the items for a sheet, ordered by Order.
func (s *ChecklistStore) ListItems(_ context.Context, sheetName string) ([]domain.ChecklistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []domain.ChecklistItem
	for _, item := range s.items {
		if item.SheetName == sheetName {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Order < items[j].Order
	})
	return items, nil
}

// ListSheets returns the distinct sheet names, sorted.
func (s *ChecklistStore) ListSheets(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, item := range s.items {
		seen[item.SheetName] = true
	}
	sheets := make([]string, 0, len(seen))
	for name := range seen {
		sheets = append(sheets, name)
	}
	sort.Strings(sheets)
	return sheets, nil
}
