//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/tanya/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig configures ONNXEmbedder.
type ONNXConfig struct {
	// ModelPath is a sentence-transformers ONNX export whose output is last_hidden_state.
	ModelPath string
	// VocabPath is the model's WordPiece vocab.txt; empty means vocab.txt beside ModelPath.
	VocabPath  string
	Dimensions int
	MaxTokens  int
}

// ONNXEmbedder runs a sentence-transformers export (all-MiniLM-L6-v2 by default) locally with
// ONNX Runtime and mean-pools the token states into a sentence vector. It requires CGO and
// the onnxruntime shared library. Caching is left to CachedEmbedder so every provider shares
// one policy.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	hiddenStateTensor   *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder loads the model and its vocabulary. The runtime environment is initialized
// once per process.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx model: %w", err)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("onnx model: dimensions must be positive, got %d", cfg.Dimensions)
	}
	if cfg.MaxTokens <= 2 {
		cfg.MaxTokens = 256
	}
	vocabPath := cfg.VocabPath
	if vocabPath == "" {
		vocabPath = filepath.Join(filepath.Dir(cfg.ModelPath), "vocab.txt")
	}
	tokenizer, err := LoadWordPieceTokenizer(vocabPath)
	if err != nil {
		return nil, err
	}
	if err := initONNXEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	maxTokens := cfg.MaxTokens
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.Tokenize("", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	hiddenStateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(maxTokens), int64(cfg.Dimensions)))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create last_hidden_state tensor: %w", err)
	}

	inputs := []ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}
	outputs := []ort.ArbitraryTensor{hiddenStateTensor}
	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		inputs,
		outputs,
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		hiddenStateTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXEmbedder{
		session:             session,
		dimensions:          cfg.Dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		hiddenStateTensor:   hiddenStateTensor,
	}, nil
}

// Embed returns the L2-normalized, attention-masked mean of the model's token states for
// text. Inference is serialized because the session reuses one set of tensors.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)

	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := meanPool(e.hiddenStateTensor.GetData(), attentionMask, e.maxTokens, e.dimensions)
	utils.NormalizeL2(embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.hiddenStateTensor != nil {
		_ = e.hiddenStateTensor.Destroy()
		e.hiddenStateTensor = nil
	}
	return err
}

var (
	onnxEnvOnce sync.Once
	onnxEnvErr  error
)

func initONNXEnvironment() error {
	onnxEnvOnce.Do(func() {
		onnxEnvErr = ort.InitializeEnvironment()
	})
	return onnxEnvErr
}
