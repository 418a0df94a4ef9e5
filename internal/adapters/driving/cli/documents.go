package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Manage ingested documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE:  runDocumentsList,
}

func init() {
	documentsCmd.AddCommand(documentsListCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	docs, err := documentStore.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested. Run 'attesta ingest <file>' first.")
		return nil
	}

	for i := range docs {
		doc := &docs[i]
		status := "pending"
		if doc.Processed {
			status = fmt.Sprintf("%d pages", doc.PageCount)
		}
		cmd.Printf("  %s  %s (%s, added %s)\n",
			doc.ID, doc.Name, status, doc.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
