// Package models defines core data structures for documents, chunks, and retrieval results.
package models

import "time"

// Document is a single corpus file with derived metadata. Documents are
// ephemeral: they are re-read and re-derived on every index build.
type Document struct {
	// Path is relative to the corpus root, using forward slashes.
	Path       string
	Text       string
	Title      string
	Section    string
	Department string
	UpdatedAt  time.Time
}

// Chunk is a contiguous window of a document's normalized text.
// Embedding is populated at build time only and never persisted alongside
// the metadata (vectors live in the vector store, matched by row).
type Chunk struct {
	Path       string
	Title      string
	Section    string
	Department string
	UpdatedAt  time.Time
	ChunkID    int
	Text       string
	Embedding  []float32
}

// IndexRecord is the persisted metadata for one vector store row.
// The invariant "record i describes vector row i" is enforced on load.
type IndexRecord struct {
	Path       string `json:"path"`
	Title      string `json:"title"`
	Section    string `json:"section"`
	UpdatedAt  string `json:"updated_at"`
	Department string `json:"department"`
	ChunkID    int    `json:"chunk_id"`
	Text       string `json:"text"`
}

// ScoredChunk is an index record plus its query-time score. The base
// similarity from the vector search is kept for tie-breaking and diagnostics.
type ScoredChunk struct {
	Record     *IndexRecord
	Score      float64
	Similarity float64
	Row        int
}

// Status is the relevance gate verdict for a retrieval.
type Status string

const (
	// StatusOK means the retrieved context is trustworthy enough to answer from.
	StatusOK Status = "OK"
	// StatusNoContext means the caller should refuse rather than answer.
	StatusNoContext Status = "NO_CONTEXT"
)

// RetrievalResult is everything one query produces: ranked chunks, the
// assembled context string, and the gate status.
type RetrievalResult struct {
	Chunks  []*ScoredChunk
	Context string
	Status  Status
}
