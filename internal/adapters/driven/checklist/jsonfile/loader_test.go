package jsonfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

const sampleChecklist = `{
	"metadata": {
		"description": "Annual report checklist",
		"type": "annual",
		"typeDescription": "Statutory annual accounts"
	},
	"sheets": [
		{
			"sheetName": "Balance",
			"items": [
				{
					"checkId": "BAL-001",
					"checkText": "The balance sheet lists assets and liabilities.",
					"category": "Balance - General",
					"legalBasis": "Art. 2:364 BW",
					"applicableTypes": ["annual", "interim"]
				},
				{
					"checkId": "BAL-002",
					"checkText": "Fixed assets are broken down by type."
				}
			]
		},
		{
			"sheetName": "Governance",
			"items": [
				{
					"checkId": "GOV-001",
					"checkText": "Board composition is disclosed."
				}
			]
		}
	]
}`

func TestParse(t *testing.T) {
	checklist, err := Parse([]byte(sampleChecklist))
	require.NoError(t, err)

	assert.Equal(t, "Annual report checklist", checklist.Metadata.Description)
	assert.Equal(t, "annual", checklist.Metadata.Type)
	require.Len(t, checklist.Items, 3)

	first := checklist.Items[0]
	assert.Equal(t, "Balance/BAL-001", first.ID)
	assert.Equal(t, "Balance", first.SheetName)
	assert.Equal(t, "BAL-001", first.CheckID)
	assert.Equal(t, "The balance sheet lists assets and liabilities.", first.CheckText)
	assert.Equal(t, "Balance - General", first.Category)
	assert.Equal(t, "Art. 2:364 BW", first.LegalBasis)
	assert.Equal(t, []string{"annual", "interim"}, first.ApplicableTypes)

	// Optional fields default to zero values
	second := checklist.Items[1]
	assert.Empty(t, second.Category)
	assert.Empty(t, second.LegalBasis)
	assert.Empty(t, second.ApplicableTypes)
}

func TestParse_OrderSpansSheets(t *testing.T) {
	checklist, err := Parse([]byte(sampleChecklist))
	require.NoError(t, err)
	require.Len(t, checklist.Items, 3)

	// sheetIndex*100 + itemIndex + 1
	assert.Equal(t, 1, checklist.Items[0].Order)
	assert.Equal(t, 2, checklist.Items[1].Order)
	assert.Equal(t, 101, checklist.Items[2].Order)
	assert.Equal(t, "Governance", checklist.Items[2].SheetName)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestParse_NoSheets(t *testing.T) {
	_, err := Parse([]byte(`{"metadata": {}, "sheets": []}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_MissingSheetName(t *testing.T) {
	_, err := Parse([]byte(`{"sheets": [{"items": []}]}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_MissingCheckID(t *testing.T) {
	_, err := Parse([]byte(`{"sheets": [{"sheetName": "Balance", "items": [
		{"checkText": "text without id"}
	]}]}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checklist.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleChecklist), 0600))

	checklist, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, checklist.Items, 3)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
