package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
	"github.com/attesta-labs/attesta-cli/internal/core/ports/driven"
	"github.com/attesta-labs/attesta-cli/internal/logger"
)

// DefaultTopK is the number of chunks retrieved per criterion when the
// caller does not specify one.
const DefaultTopK = 5

// Retriever selects the chunks of a document most relevant to a query.
// It uses cosine similarity over stored embeddings when the corpus has
// them, and a deterministic keyword score otherwise.
type Retriever struct {
	docStore         driven.DocumentStore
	embeddingService driven.EmbeddingService
}

// NewRetriever creates a retriever. The embedding service is optional
// (can be nil); without it retrieval always uses keyword scoring.
func NewRetriever(docStore driven.DocumentStore, embeddingService driven.EmbeddingService) *Retriever {
	return &Retriever{
		docStore:         docStore,
		embeddingService: embeddingService,
	}
}

// Retrieve returns the topK most relevant chunks of a document for the
// given query. Ties keep the original chunk order. A document with no
// chunks yields an empty result and no error.
func (r *Retriever) Retrieve(
	ctx context.Context, documentID, query string, topK int,
) ([]domain.RetrievedChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	chunks, err := r.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks for document %s: %w", documentID, err)
	}
	if len(chunks) == 0 {
		logger.Debug("Retrieval: document %s has no chunks", documentID)
		return []domain.RetrievedChunk{}, nil
	}

	if r.vectorModeAvailable(chunks) {
		logger.Debug("Retrieval: vector mode, %d chunks, topK=%d", len(chunks), topK)
		return r.vectorRetrieve(ctx, chunks, query, topK)
	}

	logger.Debug("Retrieval: keyword mode, %d chunks, topK=%d", len(chunks), topK)
	return r.keywordRetrieve(chunks, query, topK), nil
}

// vectorModeAvailable reports whether embeddings can be used: an
// embedding service is configured and every chunk carries a vector.
// A partially embedded corpus falls back to keyword scoring so that
// rankings stay comparable across chunks.
func (r *Retriever) vectorModeAvailable(chunks []domain.Chunk) bool {
	if r.embeddingService == nil {
		return false
	}
	for i := range chunks {
		if len(chunks[i].Embedding) == 0 {
			return false
		}
	}
	return true
}

func (r *Retriever) vectorRetrieve(
	ctx context.Context, chunks []domain.Chunk, query string, topK int,
) ([]domain.RetrievedChunk, error) {
	queryEmbedding, err := r.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored := make([]domain.RetrievedChunk, 0, len(chunks))
	for i := range chunks {
		similarity, err := cosineSimilarity(queryEmbedding, chunks[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("score chunk %s: %w", chunks[i].ID, err)
		}
		scored = append(scored, domain.RetrievedChunk{
			Chunk:      chunks[i],
			Similarity: similarity,
		})
	}

	return topKByScore(scored, topK), nil
}

// keywordRetrieve scores chunks by the fraction of query words (longer
// than 3 characters, case-insensitive) each chunk contains. Purely
// deterministic; this is the degraded mode used when the corpus was
// ingested without an embedding provider.
func (r *Retriever) keywordRetrieve(chunks []domain.Chunk, query string, topK int) []domain.RetrievedChunk {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len(w) > 3 {
			words = append(words, w)
		}
	}

	scored := make([]domain.RetrievedChunk, 0, len(chunks))
	for i := range chunks {
		score := 0.0
		if len(words) > 0 {
			content := strings.ToLower(chunks[i].Content)
			matched := 0
			for _, w := range words {
				if strings.Contains(content, w) {
					matched++
				}
			}
			score = float64(matched) / float64(len(words))
		}
		scored = append(scored, domain.RetrievedChunk{
			Chunk:      chunks[i],
			Similarity: score,
		})
	}

	return topKByScore(scored, topK)
}

// topKByScore sorts by descending score, stable so equal scores keep
// the corpus order, and truncates to k.
func topKByScore(scored []domain.RetrievedChunk, k int) []domain.RetrievedChunk {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// cosineSimilarity computes dot(a,b) / (|a|*|b|). Vectors must have the
// same length. Zero-magnitude vectors score 0.
func cosineSimilarity(a []float32, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
