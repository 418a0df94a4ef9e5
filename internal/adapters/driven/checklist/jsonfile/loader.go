// Package jsonfile loads compliance checklists from JSON files.
//
// A checklist file groups criteria into named sheets:
//
//	{
//	  "metadata": {"description": "...", "type": "...", "typeDescription": "..."},
//	  "sheets": [
//	    {"sheetName": "Balance", "items": [
//	      {"checkId": "BAL-001", "checkText": "...", "category": "...", "legalBasis": "..."}
//	    ]}
//	  ]
//	}
//
// Items are assigned a global evaluation order of sheetIndex*100 +
// itemIndex + 1, so sheets keep their file order and leave room for
// inserting criteria without renumbering.
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// Metadata describes the checklist as a whole.
type Metadata struct {
	Description     string `json:"description"`
	Type            string `json:"type"`
	TypeDescription string `json:"typeDescription"`
}

// Checklist is a parsed checklist file.
type Checklist struct {
	Metadata Metadata
	Items    []domain.ChecklistItem
}

// fileChecklist mirrors the JSON file layout.
type fileChecklist struct {
	Metadata Metadata    `json:"metadata"`
	Sheets   []fileSheet `json:"sheets"`
}

type fileSheet struct {
	SheetName string     `json:"sheetName"`
	Items     []fileItem `json:"items"`
}

type fileItem struct {
	CheckID         string   `json:"checkId"`
	CheckText       string   `json:"checkText"`
	Category        string   `json:"category"`
	LegalBasis      string   `json:"legalBasis"`
	ApplicableTypes []string `json:"applicableTypes"`
}

// Load parses the checklist file at path.
func Load(path string) (*Checklist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading checklist file: %w", err)
	}
	return Parse(data)
}

// Parse parses checklist JSON content.
func Parse(data []byte) (*Checklist, error) {
	var file fileChecklist
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing checklist: %w", err)
	}

	if len(file.Sheets) == 0 {
		return nil, fmt.Errorf("%w: checklist has no sheets", domain.ErrInvalidInput)
	}

	checklist := &Checklist{Metadata: file.Metadata}
	for sheetIndex, sheet := range file.Sheets {
		if sheet.SheetName == "" {
			return nil, fmt.Errorf("%w: sheet %d has no name", domain.ErrInvalidInput, sheetIndex)
		}

		for itemIndex, item := range sheet.Items {
			if item.CheckID == "" || item.CheckText == "" {
				return nil, fmt.Errorf("%w: sheet %q item %d missing checkId or checkText",
					domain.ErrInvalidInput, sheet.SheetName, itemIndex)
			}

			checklist.Items = append(checklist.Items, domain.ChecklistItem{
				// Deterministic ID so re-imports update in place
				ID:              sheet.SheetName + "/" + item.CheckID,
				SheetName:       sheet.SheetName,
				CheckID:         item.CheckID,
				CheckText:       item.CheckText,
				Category:        item.Category,
				LegalBasis:      item.LegalBasis,
				ApplicableTypes: item.ApplicableTypes,
				Order:           sheetIndex*100 + itemIndex + 1,
			})
		}
	}

	return checklist, nil
}
