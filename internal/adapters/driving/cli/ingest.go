package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

var ingestDocumentName string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest an extracted document for checking",
	Long: `Registers a document and builds its retrieval corpus.

The input file holds pre-extracted plain text, one page per section,
with pages separated by form feed characters (\f). A file without form
feeds is treated as a single page.

When an embedding provider is configured the chunks are embedded for
semantic retrieval; otherwise checks fall back to keyword matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestDocumentName, "document-name", "n", "",
		"document name (defaults to the file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestor == nil || documentStore == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading document file: %w", err)
	}

	name := ingestDocumentName
	if name == "" {
		name = filepath.Base(path)
	}

	pages := splitPages(string(data))

	ctx := context.Background()
	doc := &domain.Document{
		ID:   uuid.NewString(),
		Name: name,
	}
	if err := documentStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("registering document: %w", err)
	}

	chunks, err := ingestor.IngestPages(ctx, doc.ID, pages)
	if err != nil {
		return fmt.Errorf("ingesting document: %w", err)
	}

	cmd.Printf("Ingested %s\n", name)
	cmd.Printf("  Document ID: %s\n", doc.ID)
	cmd.Printf("  Pages: %d\n", len(pages))
	cmd.Printf("  Chunks: %d\n", chunks)
	return nil
}

// splitPages converts form-feed separated text into page-indexed pages.
func splitPages(text string) []domain.PageText {
	raw := strings.Split(text, "\f")
	pages := make([]domain.PageText, len(raw))
	for i, pageText := range raw {
		pages[i] = domain.PageText{
			PageNumber: i + 1,
			Text:       pageText,
		}
	}
	return pages
}
