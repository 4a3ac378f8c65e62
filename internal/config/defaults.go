package config

import "time"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultK            = 4
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 120 * time.Second
	}

	openai := &cfg.Providers.OpenAI
	if openai.ChatModel == "" {
		openai.ChatModel = "gpt-3.5-turbo"
	}
	if openai.EmbeddingModel == "" {
		openai.EmbeddingModel = "text-embedding-3-small"
	}

	hf := &cfg.Providers.HuggingFace
	if hf.BaseURL == "" {
		hf.BaseURL = "https://router.huggingface.co/v1"
	}
	if hf.EmbeddingModel == "" {
		hf.EmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if hf.InferenceURL == "" {
		hf.InferenceURL = "https://router.huggingface.co/hf-inference"
	}
	if hf.Dimensions == 0 {
		hf.Dimensions = 384
	}
	if hf.MaxTokens == 0 {
		hf.MaxTokens = 256
	}

	ollama := &cfg.Providers.Ollama
	if ollama.BaseURL == "" {
		ollama.BaseURL = "http://localhost:11434"
	}
	if ollama.ChatModel == "" {
		ollama.ChatModel = "llama3"
	}
	if ollama.EmbeddingModel == "" {
		ollama.EmbeddingModel = "nomic-embed-text"
	}
	if ollama.Dimensions == 0 {
		ollama.Dimensions = 768
	}

	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = DefaultChunkSize
	}
	// An unset overlap is 200 whatever the size; Validate rejects sizes it does not fit.
	if cfg.Chunking.ChunkOverlap == nil {
		overlap := DefaultChunkOverlap
		cfg.Chunking.ChunkOverlap = &overlap
	}

	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = DefaultK
	}
	if cfg.Retrieval.Mode == "" {
		cfg.Retrieval.Mode = RetrievalSimilarity
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "memory"
	}
	if cfg.Retrieval.KeywordWeight == 0 && cfg.Retrieval.SemanticWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.3
		cfg.Retrieval.SemanticWeight = 0.7
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf", ".txt", ".md", ".rst", ".docx", ".xlsx", ".pptx", ".odp", ".ods"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
