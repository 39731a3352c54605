// Package embedding provides the embedding collaborator interface and clients.
package embedding

import "context"

// Embedder produces vector embeddings for text. EmbedBatch must return
// exactly one vector per input text, in input order; returning fewer is an
// error, never a silent truncation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
