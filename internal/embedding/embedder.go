// Package embedding provides text embedding providers: OpenAI, Ollama, a local ONNX model
// and an offline feature-hashing embedder, plus an LRU cache that wraps any of them.
package embedding

import (
	"context"
	"fmt"
)

// Embedder produces vector embeddings for text. Implementations must be deterministic
// for a fixed model and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// embedEach embeds texts one at a time with embed; used by providers without a batch API.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
