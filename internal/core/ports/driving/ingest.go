package driving

import (
	"context"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// Ingestor prepares a document for checking: chunking its extracted
// text, generating embeddings when a provider is configured, and
// persisting the retrieval corpus.
type Ingestor interface {
	// IngestPages chunks and indexes page-indexed text for a registered
	// document, then marks it processed. Ingesting an already processed
	// document is a no-op. Returns the number of chunks stored.
	IngestPages(ctx context.Context, documentID string, pages []domain.PageText) (int, error)
}
