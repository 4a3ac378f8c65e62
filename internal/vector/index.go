// Package vector provides vector storage and similarity search for chunk embeddings.
package vector

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on an index after Close.
var ErrClosed = errors.New("vector index is closed")

// VectorIndex stores fixed-dimension vectors under string IDs and answers top-k
// inner-product queries. Implementations are safe for concurrent readers.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit; ID is the chunk ID.
type VectorResult struct {
	ID    string
	Score float64 // inner product; cosine similarity for normalized vectors
}
