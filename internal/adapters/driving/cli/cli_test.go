package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// pipelineChecklist is a minimal two-criterion checklist for exercising
// the full import -> ingest -> check flow.
const pipelineChecklist = `{
	"metadata": {
		"description": "Annual report checklist",
		"type": "annual-report"
	},
	"sheets": [
		{
			"sheetName": "Balance",
			"items": [
				{
					"checkId": "BAL-001",
					"checkText": "The solvency ratio is disclosed.",
					"category": "Solvency"
				},
				{
					"checkId": "BAL-002",
					"checkText": "Board composition is disclosed.",
					"category": "Governance"
				}
			]
		}
	]
}`

// resetServices clears the package-level service wiring after a test so
// the next test starts from an unwired state.
func resetServices(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		closeServices()
		store = nil
		documentStore = nil
		checklistStore = nil
		promptStore = nil
		settingsService = nil
		ingestor = nil
		checkService = nil
		dataDir = ""
		rootCmd.SetArgs(nil)
	})
}

// runCLI executes the root command with args and returns its combined
// output, failing the test on a command error.
func runCLI(t *testing.T, args ...string) string {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	require.NoError(t, err, "command %v failed, output:\n%s", args, buf.String())
	return buf.String()
}

// extractID pulls the first capture group of pattern out of command output.
func extractID(t *testing.T, output, pattern string) string {
	t.Helper()

	matches := regexp.MustCompile(pattern).FindStringSubmatch(output)
	require.Len(t, matches, 2, "pattern %q not found in output:\n%s", pattern, output)
	return matches[1]
}

// TestCLI_Pipeline drives the whole flow through the real command
// wiring: import a checklist, ingest a document, run a check and read
// the results back. No AI provider is configured, so retrieval falls
// back to keyword matching and every verdict is UNKNOWN.
func TestCLI_Pipeline(t *testing.T) {
	resetServices(t)
	dir := t.TempDir()

	docPath := filepath.Join(dir, "report.txt")
	docText := "The solvency ratio improved to 1.8 at year end.\f" +
		"The board consists of three members."
	require.NoError(t, os.WriteFile(docPath, []byte(docText), 0o600))

	checklistPath := filepath.Join(dir, "checklist.json")
	require.NoError(t, os.WriteFile(checklistPath, []byte(pipelineChecklist), 0o600))

	out := runCLI(t, "--data-dir", dir, "checklist", "import", checklistPath)
	assert.Contains(t, out, "Imported: Annual report checklist")
	assert.Contains(t, out, "2 criteria across 1 sheet(s)")

	out = runCLI(t, "--data-dir", dir, "checklist", "sheets")
	assert.Contains(t, out, "Balance (2 criteria)")

	out = runCLI(t, "--data-dir", dir, "ingest", docPath, "--document-name", "Annual Report 2024")
	assert.Contains(t, out, "Ingested Annual Report 2024")
	assert.Contains(t, out, "Pages: 2")
	docID := extractID(t, out, `Document ID: (\S+)`)

	out = runCLI(t, "--data-dir", dir, "documents", "list")
	assert.Contains(t, out, "Annual Report 2024")
	assert.Contains(t, out, "2 pages")

	out = runCLI(t, "--data-dir", dir, "check", "start", docID, "--sheet", "Balance")
	runID := extractID(t, out, `Run ID: (\S+)`)
	assert.Contains(t, out, "Completed: 0 PASS, 0 FAIL, 2 UNKNOWN")

	out = runCLI(t, "--data-dir", dir, "check", "status", runID)
	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "100%")

	out = runCLI(t, "--data-dir", dir, "check", "stop", runID)
	assert.Contains(t, out, "Run is not active.")

	out = runCLI(t, "--data-dir", dir, "check", "results", runID)
	assert.Contains(t, out, "[UNKNOWN] Balance/BAL-001")
	assert.Contains(t, out, "[UNKNOWN] Balance/BAL-002")
	assert.Contains(t, out, "LLM provider is not configured")

	out = runCLI(t, "--data-dir", dir, "check", "results", runID, "--json")
	jsonStart := bytes.IndexByte([]byte(out), '[')
	require.GreaterOrEqual(t, jsonStart, 0, "no JSON array in output:\n%s", out)

	var results []domain.CheckResult
	require.NoError(t, json.Unmarshal([]byte(out[jsonStart:]), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "Balance/BAL-001", results[0].ChecklistItemID)
	assert.Equal(t, domain.VerdictUnknown, results[0].Status)
}

func TestCLI_CheckStart_UnknownDocument(t *testing.T) {
	resetServices(t)
	dir := t.TempDir()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--data-dir", dir, "check", "start", "no-such-document", "--sheet", "Balance"})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating check run")
}

func TestCLI_ConfigShow_Defaults(t *testing.T) {
	resetServices(t)
	dir := t.TempDir()

	out := runCLI(t, "--data-dir", dir, "config", "show")
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "[LLM]")
	assert.Contains(t, out, "[Chunking]")
	assert.Contains(t, out, "[Check]")
}

func TestRunIngest_NotConfigured(t *testing.T) {
	err := runIngest(ingestCmd, []string{"some-file.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest service not configured")
}

func TestRunCheckStart_NotConfigured(t *testing.T) {
	err := runCheckStart(checkStartCmd, []string{"doc-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check service not configured")
}

func TestRunChecklistImport_NotConfigured(t *testing.T) {
	err := runChecklistImport(checklistImportCmd, []string{"checklist.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checklist store not configured")
}

func TestRunDocumentsList_NotConfigured(t *testing.T) {
	err := runDocumentsList(documentsListCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "document store not configured")
}

func TestSplitPages(t *testing.T) {
	pages := splitPages("page one\fpage two\fpage three")

	require.Len(t, pages, 3)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "page one", pages[0].Text)
	assert.Equal(t, 3, pages[2].PageNumber)
	assert.Equal(t, "page three", pages[2].Text)
}

func TestSplitPages_SinglePage(t *testing.T) {
	pages := splitPages("no form feeds here")

	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "no form feeds here", pages[0].Text)
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"short key fully masked", "sk-12345", "****"},
		{"long key keeps ends", "sk-abcdefghijklmnop", "sk-a...mnop"},
		{"empty key", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskAPIKey(tt.key))
		})
	}
}
