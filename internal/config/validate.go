package config

import (
	"strings"

	"github.com/hyperjump/tanya/internal/models"
)

// Provider and mode names accepted by Validate.
const (
	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"
	ProviderOllama      = "ollama"
	ProviderHash        = "hash"

	RetrievalSimilarity = "similarity"
	RetrievalHybrid     = "hybrid"
)

// Validate reports the first configuration problem as a configuration error.
// It runs before any extraction, chunking or provider call.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Embedding.Provider) {
	case ProviderOpenAI:
		if c.Providers.OpenAI.APIKey == "" {
			return models.NewConfigurationError("openai embedding provider requires OPENAI_API_KEY")
		}
	case ProviderHuggingFace:
		hf := c.Providers.HuggingFace
		if hf.ModelPath == "" {
			if hf.EmbeddingModel == "" {
				return models.NewConfigurationError("huggingface embedding provider requires HUGGINGFACE_EMBEDDING_MODEL")
			}
			if hf.APIToken == "" {
				return models.NewConfigurationError("huggingface embedding provider requires HUGGINGFACE_API_TOKEN or a local model path")
			}
		}
	case ProviderOllama:
		if c.Providers.Ollama.EmbeddingModel == "" {
			return models.NewConfigurationError("ollama embedding provider requires an embedding model")
		}
	case ProviderHash:
	default:
		return models.NewConfigurationError("unsupported embedding provider %q", c.Embedding.Provider)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case ProviderOpenAI:
		if c.Providers.OpenAI.APIKey == "" {
			return models.NewConfigurationError("openai llm provider requires OPENAI_API_KEY")
		}
	case ProviderHuggingFace:
		if c.Providers.HuggingFace.ChatModel == "" {
			return models.NewConfigurationError("huggingface llm provider requires HUGGINGFACE_CHAT_MODEL")
		}
		if c.Providers.HuggingFace.APIToken == "" {
			return models.NewConfigurationError("huggingface llm provider requires HUGGINGFACE_API_TOKEN")
		}
	case ProviderOllama:
		if c.Providers.Ollama.ChatModel == "" {
			return models.NewConfigurationError("ollama llm provider requires OLLAMA_MODEL")
		}
	default:
		return models.NewConfigurationError("unsupported llm provider %q", c.LLM.Provider)
	}

	if c.Chunking.ChunkSize <= 0 {
		return models.NewConfigurationError("chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	overlap := c.Chunking.Overlap()
	if overlap < 0 || overlap >= c.Chunking.ChunkSize {
		return models.NewConfigurationError("chunk_overlap must be in [0, chunk_size), got overlap=%d size=%d",
			overlap, c.Chunking.ChunkSize)
	}

	if c.Retrieval.K <= 0 {
		return models.NewConfigurationError("k must be positive, got %d", c.Retrieval.K)
	}
	switch c.Retrieval.Mode {
	case RetrievalSimilarity, RetrievalHybrid:
	default:
		return models.NewConfigurationError("unsupported retrieval mode %q", c.Retrieval.Mode)
	}
	switch c.Retrieval.IndexType {
	case "memory", "faiss":
	default:
		return models.NewConfigurationError("unsupported index type %q", c.Retrieval.IndexType)
	}
	if c.Retrieval.KeywordWeight < 0 || c.Retrieval.SemanticWeight < 0 {
		return models.NewConfigurationError("fusion weights must not be negative")
	}
	if c.LLM.Temperature < 0 {
		return models.NewConfigurationError("temperature must not be negative")
	}
	return nil
}
