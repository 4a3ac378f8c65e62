package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultHuggingFaceInferenceURL = "https://router.huggingface.co/hf-inference"
	DefaultHuggingFaceModel        = "sentence-transformers/all-MiniLM-L6-v2"
	defaultHuggingFaceBatchSize    = 32
	defaultHuggingFaceTimeout      = 60 * time.Second
)

// HuggingFaceConfig configures HuggingFaceEmbedder.
type HuggingFaceConfig struct {
	APIToken   string
	BaseURL    string // inference endpoint root; models are addressed below it
	Model      string
	Dimensions int // 0 learns the size from the first response
	BatchSize  int
	Timeout    time.Duration
}

// HuggingFaceEmbedder calls the Hugging Face feature-extraction pipeline for a
// sentence-transformers model, the hosted counterpart of running the model locally.
type HuggingFaceEmbedder struct {
	client     *http.Client
	endpoint   string
	token      string
	model      string
	batchSize  int
	dimensions atomic.Int64
}

type featureExtractionRequest struct {
	Inputs []string `json:"inputs"`
}

// NewHuggingFaceEmbedder returns an embedder for cfg. It does not contact the API.
func NewHuggingFaceEmbedder(cfg HuggingFaceConfig) (*HuggingFaceEmbedder, error) {
	if cfg.APIToken == "" {
		return nil, errors.New("huggingface embedder requires an API token")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultHuggingFaceInferenceURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultHuggingFaceModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultHuggingFaceBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultHuggingFaceTimeout
	}
	e := &HuggingFaceEmbedder{
		client:    &http.Client{Timeout: cfg.Timeout},
		endpoint:  strings.TrimRight(cfg.BaseURL, "/") + "/models/" + cfg.Model + "/pipeline/feature-extraction",
		token:     cfg.APIToken,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
	e.dimensions.Store(int64(cfg.Dimensions))
	return e, nil
}

// Embed returns the embedding for one text.
func (e *HuggingFaceEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in requests of at most batchSize inputs, preserving order.
func (e *HuggingFaceEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

func (e *HuggingFaceEmbedder) request(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(featureExtractionRequest{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface embeddings (status %d): %s", resp.StatusCode, huggingFaceMessage(raw))
	}

	vecs, err := decodeFeatures(raw)
	if err != nil {
		return nil, fmt.Errorf("huggingface embeddings: %w", err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("huggingface embeddings: got %d vectors for %d inputs", len(vecs), len(inputs))
	}
	if len(vecs[0]) > 0 {
		e.dimensions.CompareAndSwap(0, int64(len(vecs[0])))
	}
	return vecs, nil
}

// decodeFeatures accepts pooled sentence vectors ([inputs][dims]) or, for models served
// without a pooling layer, token states ([inputs][tokens][dims]) which are mean-pooled.
func decodeFeatures(raw []byte) ([][]float32, error) {
	var pooled [][]float32
	if err := json.Unmarshal(raw, &pooled); err == nil {
		return pooled, nil
	}
	var tokens [][][]float32
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	vecs := make([][]float32, len(tokens))
	for i, states := range tokens {
		if len(states) == 0 {
			return nil, fmt.Errorf("empty token states for input %d", i)
		}
		dims := len(states[0])
		flat := make([]float32, 0, len(states)*dims)
		mask := make([]int64, len(states))
		for j, s := range states {
			if len(s) != dims {
				return nil, fmt.Errorf("ragged token states for input %d", i)
			}
			flat = append(flat, s...)
			mask[j] = 1
		}
		vecs[i] = meanPool(flat, mask, len(states), dims)
	}
	return vecs, nil
}

// huggingFaceMessage extracts {"error": "..."} from an error body, falling back to the raw text.
func huggingFaceMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}

// Dimensions returns the configured size, or the size seen in the first response.
func (e *HuggingFaceEmbedder) Dimensions() int {
	return int(e.dimensions.Load())
}

// Close is a no-op.
func (e *HuggingFaceEmbedder) Close() error {
	return nil
}
