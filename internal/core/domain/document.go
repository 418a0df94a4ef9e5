package domain

import "time"

// Document represents a scanned document whose extracted text is checked
// against compliance criteria. Text extraction happens outside this core;
// a document enters the system as page-indexed plain text.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Name is the human-readable name (typically the original file name).
	Name string

	// PageCount is the number of pages in the source document.
	// Written once when ingestion completes.
	PageCount int

	// Processed indicates the document has been chunked (and embedded,
	// when an embedding provider is configured) and is ready for checks.
	Processed bool

	// CreatedAt is when the document was first registered.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time
}

// PageText is one page of extracted document text. Pages are the input
// to chunking and the unit of evidence citation.
type PageText struct {
	// PageNumber is the 1-based page number in the source document.
	PageNumber int

	// Text is the extracted plain text of the page.
	Text string
}

// Chunk is a bounded, page-traceable retrieval unit of document text.
// Chunks are created once during ingestion and immutable thereafter.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the owning Document.
	DocumentID string

	// PageNumber is the 1-based page the chunk text came from.
	// Preserved exactly so evidence can cite pages downstream.
	PageNumber int

	// Index is the 0-based sequence index, unique per document.
	Index int

	// Content is the chunk text.
	Content string

	// Embedding is the vector representation for similarity scoring.
	// Nil when no embedding provider was configured at ingestion time.
	Embedding []float32
}

// RetrievedChunk is a chunk ranked by relevance to a query.
type RetrievedChunk struct {
	Chunk

	// Similarity is the relevance score. Cosine similarity in vector
	// mode, normalised keyword-match count in fallback mode.
	Similarity float64
}
