package embedding

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIBatchSize bounds the number of inputs per embeddings request.
const DefaultOpenAIBatchSize = 64

// knownOpenAIDimensions lists output sizes of the hosted embedding models.
var knownOpenAIDimensions = map[string]int{
	string(openai.AdaEmbeddingV2):  1536,
	string(openai.SmallEmbedding3): 1536,
	string(openai.LargeEmbedding3): 3072,
}

// OpenAIConfig configures OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string // empty uses the public API
	Model     string
	BatchSize int
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint (or any compatible server).
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	batchSize  int
	dimensions atomic.Int64 // learned from the first response for models not in the table
}

// NewOpenAIEmbedder returns an embedder for cfg. It does not contact the API.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultOpenAIBatchSize
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	e := &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     openai.EmbeddingModel(cfg.Model),
		batchSize: cfg.BatchSize,
	}
	e.dimensions.Store(int64(knownOpenAIDimensions[cfg.Model]))
	return e, nil
}

// Embed returns the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most batchSize inputs, preserving order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %s", providerMessage(err))
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(inputs))
	}
	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	vecs := make([][]float32, len(data))
	for i, d := range data {
		vecs[i] = d.Embedding
	}
	if len(vecs) > 0 {
		e.dimensions.CompareAndSwap(0, int64(len(vecs[0])))
	}
	return vecs, nil
}

// Dimensions returns the model's output size, or 0 for an unknown model before the first call.
func (e *OpenAIEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}

// providerMessage extracts the human-readable part of a go-openai error.
func providerMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s (status %d)", apiErr.Message, apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("request failed (status %d): %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return err.Error()
}
