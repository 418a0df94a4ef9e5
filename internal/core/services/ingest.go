package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driving"
	"github.com/attesta-labs/attesta-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// embeddingTimeout bounds the total embedding phase of one ingestion.
const embeddingTimeout = 240 * time.Second

// embedBatchSize is the maximum texts sent per embedding call.
const embedBatchSize = 100

// embedBatchInterval spaces consecutive embedding calls.
const embedBatchInterval = 100 * time.Millisecond

// pageChunker splits page-indexed text into chunks.
type pageChunker interface {
	Split(documentID string, pages []domain.PageText) []domain.Chunk
}

// IngestService prepares a document's retrieval corpus: chunk, embed,
// persist, mark processed. Embedding is best-effort; a corpus without
// vectors still serves keyword retrieval.
type IngestService struct {
	docStore         driven.DocumentStore
	chunker          pageChunker
	embeddingService driven.EmbeddingService
	limiter          *rate.Limiter
}

// NewIngestService creates an ingest service. The embedding service is
// optional (can be nil).
func NewIngestService(
	docStore driven.DocumentStore,
	chunker pageChunker,
	embeddingService driven.EmbeddingService,
) *IngestService {
	return &IngestService{
		docStore:         docStore,
		chunker:          chunker,
		embeddingService: embeddingService,
		limiter:          rate.NewLimiter(rate.Every(embedBatchInterval), 1),
	}
}

// IngestPages chunks and indexes the extracted text of a registered
// document, then marks it processed. Returns the number of chunks
// stored. Ingesting an already processed document is a no-op.
func (s *IngestService) IngestPages(
	ctx context.Context, documentID string, pages []domain.PageText,
) (int, error) {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("get document %s: %w", documentID, err)
	}
	if doc.Processed {
		logger.Info("Document %s already processed, skipping ingestion", documentID)
		return 0, nil
	}

	logger.Section("Document Ingestion")
	logger.Info("Ingesting %q: %d pages", doc.Name, len(pages))

	chunks := s.chunker.Split(documentID, pages)
	logger.Info("Chunked into %d chunks", len(chunks))

	if len(chunks) > 0 && s.embeddingService != nil {
		if err := s.embedChunks(ctx, chunks); err != nil {
			// Embedding failure is not fatal: the corpus is stored
			// without vectors and retrieval degrades to keyword mode.
			logger.Warn("Embedding failed, storing corpus without vectors: %v", err)
			for i := range chunks {
				chunks[i].Embedding = nil
			}
		}
	}

	if len(chunks) > 0 {
		if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
			return 0, fmt.Errorf("save chunks: %w", err)
		}
	}

	if err := s.docStore.MarkProcessed(ctx, documentID, len(pages)); err != nil {
		return 0, fmt.Errorf("mark document processed: %w", err)
	}

	logger.Info("Ingestion complete: %d chunks stored", len(chunks))
	return len(chunks), nil
}

// embedChunks fills in chunk embeddings in sub-batches, paced to stay
// under provider rate limits and bounded by an overall timeout.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	ctx, cancel := context.WithTimeout(ctx, embeddingTimeout)
	defer cancel()

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		if start > 0 {
			if err := s.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("embedding timed out: %w", err)
			}
		}

		texts := make([]string, end-start)
		for i := start; i < end; i++ {
			texts[i-start] = chunks[i].Content
		}

		logger.Debug("Embedding batch %d-%d of %d", start, end, len(chunks))
		embeddings, err := s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embed batch at %d: got %d embeddings for %d texts", start, len(embeddings), len(texts))
		}

		for i := start; i < end; i++ {
			chunks[i].Embedding = embeddings[i-start]
		}
	}

	return nil
}
