package retrieval

import (
	"context"

	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/models"
)

// Retriever binds an index to the embedder that built it and a fixed k.
type Retriever struct {
	index    *Index
	embedder embedding.Embedder
	k        int
}

// NewRetriever returns a retriever over index. k must be positive.
func NewRetriever(index *Index, embedder embedding.Embedder, k int) (*Retriever, error) {
	if index == nil || embedder == nil {
		return nil, models.NewConfigurationError("retriever requires an index and an embedder")
	}
	if k <= 0 {
		return nil, models.NewConfigurationError("retriever k must be positive, got %d", k)
	}
	return &Retriever{index: index, embedder: embedder, k: k}, nil
}

// Retrieve returns the k chunks most relevant to question.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]models.ScoredChunk, error) {
	return r.index.Query(ctx, question, r.embedder, r.k)
}

// K returns the bound number of results.
func (r *Retriever) K() int {
	return r.k
}
