package embedding

import (
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

// New returns the embedder selected by cfg.Embedding.Provider, wrapped in an LRU cache
// when cfg.Embedding.CacheSize is positive.
func New(cfg *config.Config, logger *zap.Logger) (Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		emb Embedder
		err error
	)
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		oa := cfg.Providers.OpenAI
		emb, err = NewOpenAIEmbedder(OpenAIConfig{
			APIKey:    oa.APIKey,
			BaseURL:   oa.BaseURL,
			Model:     oa.EmbeddingModel,
			BatchSize: cfg.Embedding.BatchSize,
		})
	case config.ProviderHuggingFace:
		hf := cfg.Providers.HuggingFace
		if hf.ModelPath != "" {
			emb, err = NewONNXEmbedder(ONNXConfig{
				ModelPath:  hf.ModelPath,
				VocabPath:  hf.VocabPath,
				Dimensions: hf.Dimensions,
				MaxTokens:  hf.MaxTokens,
			})
			break
		}
		emb, err = NewHuggingFaceEmbedder(HuggingFaceConfig{
			APIToken:   hf.APIToken,
			BaseURL:    hf.InferenceURL,
			Model:      hf.EmbeddingModel,
			Dimensions: hf.Dimensions,
			BatchSize:  cfg.Embedding.BatchSize,
			Timeout:    cfg.LLM.Timeout,
		})
	case config.ProviderOllama:
		ol := cfg.Providers.Ollama
		emb = NewOllamaEmbedder(OllamaConfig{
			BaseURL:    ol.BaseURL,
			Model:      ol.EmbeddingModel,
			Dimensions: ol.Dimensions,
			Timeout:    cfg.LLM.Timeout,
		})
	case config.ProviderHash:
		emb = NewHashEmbedder(cfg.Embedding.Dimensions)
	default:
		return nil, models.NewConfigurationError("unknown embedding provider %q", cfg.Embedding.Provider)
	}
	if err != nil {
		return nil, models.NewConfigurationError("embedding provider %s: %v", cfg.Embedding.Provider, err)
	}
	logger.Debug("embedder ready",
		zap.String("provider", cfg.Embedding.Provider),
		zap.Int("dimensions", emb.Dimensions()),
		zap.Int("cache_size", cfg.Embedding.CacheSize))
	if cfg.Embedding.CacheSize > 0 {
		return NewCachedEmbedder(emb, cfg.Embedding.CacheSize), nil
	}
	return emb, nil
}
