// Package chunker splits page-indexed document text into bounded,
// page-traceable retrieval units.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/attesta-labs/attesta-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultOverlap is the default number of overlapping characters.
const DefaultOverlap = 300

// DefaultMaxChunks is the default cap on chunks per document.
const DefaultMaxChunks = 500

// Chunker splits extracted page text into chunks. Each chunk keeps its
// originating page number so evidence can be cited by page downstream.
type Chunker struct {
	chunkSize int
	overlap   int
	maxChunks int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk window size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMaxChunks caps the total number of chunks per document.
func WithMaxChunks(maxChunks int) Option {
	return func(c *Chunker) {
		if maxChunks > 0 {
			c.maxChunks = maxChunks
		}
	}
}

// New creates a chunker with the given options.
//
// Pathological configurations (overlap >= chunk size) are not rejected;
// the advance floor in Split keeps the window moving regardless.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		maxChunks: DefaultMaxChunks,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Split chunks the pages of a document. Pages at most one window wide
// are emitted verbatim; longer pages are split by a sliding window that
// prefers sentence boundaries. Empty pages are skipped. Splitting stops
// globally once the chunk cap is reached, even mid-document.
func (c *Chunker) Split(documentID string, pages []domain.PageText) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(pages))
	index := 0

	for _, page := range pages {
		if len(page.Text) == 0 {
			continue
		}

		if len(page.Text) <= c.chunkSize {
			chunks = append(chunks, c.newChunk(documentID, page.PageNumber, index, page.Text))
			index++
			if len(chunks) >= c.maxChunks {
				return chunks
			}
			continue
		}

		start := 0
		for start < len(page.Text) {
			end := start + c.chunkSize
			if end > len(page.Text) {
				end = len(page.Text)
			}
			window := page.Text[start:end]

			// Prefer ending at a sentence boundary, but only when the
			// boundary lies past half the window; a tiny chunk is worse
			// than an ugly cut.
			if end < len(page.Text) {
				if cut := lastBoundary(window); cut > c.chunkSize/2 {
					window = window[:cut+1]
				}
			}

			chunks = append(chunks, c.newChunk(documentID, page.PageNumber, index, window))
			index++

			if len(chunks) >= c.maxChunks {
				return chunks
			}

			// The last window runs to the page end; re-stepping from
			// inside it would only emit shrinking suffixes of text
			// already covered.
			if end == len(page.Text) {
				break
			}

			// The floor of 1 is what terminates the loop when the
			// overlap is configured at or above the emitted length.
			advance := len(window) - c.overlap
			if advance < 1 {
				advance = 1
			}
			start += advance
		}
	}

	return chunks
}

func (c *Chunker) newChunk(documentID string, pageNumber, index int, content string) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.New().String(),
		DocumentID: documentID,
		PageNumber: pageNumber,
		Index:      index,
		Content:    strings.TrimSpace(content),
	}
}

// lastBoundary returns the index of the last sentence terminator or
// newline in s, or -1 if there is none.
func lastBoundary(s string) int {
	period := strings.LastIndexByte(s, '.')
	newline := strings.LastIndexByte(s, '\n')
	if period > newline {
		return period
	}
	return newline
}
