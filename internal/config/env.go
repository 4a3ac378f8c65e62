package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces variables (TANYA_CHUNK_SIZE); the bare names (CHUNK_SIZE) are read as fallback.
const envPrefix = "TANYA"

// envOverrides lists every variable that may override the YAML file. Pointers stay nil when unset
// so that an explicit zero in the environment is distinguishable from absence.
type envOverrides struct {
	Debug *bool `envconfig:"DEBUG"`

	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER"`
	LLMProvider       string `envconfig:"LLM_PROVIDER"`

	OpenAIAPIKey         string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL        string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModelName      string `envconfig:"OPENAI_MODEL_NAME"`
	OpenAIEmbeddingModel string `envconfig:"OPENAI_EMBEDDING_MODEL"`

	HuggingFaceToken          string `envconfig:"HUGGINGFACE_API_TOKEN"`
	HuggingFaceBaseURL        string `envconfig:"HUGGINGFACE_BASE_URL"`
	HuggingFaceInferenceURL   string `envconfig:"HUGGINGFACE_INFERENCE_URL"`
	HuggingFaceChatModel      string `envconfig:"HUGGINGFACE_CHAT_MODEL"`
	HuggingFaceEmbeddingModel string `envconfig:"HUGGINGFACE_EMBEDDING_MODEL"`
	HuggingFaceModelPath      string `envconfig:"HUGGINGFACE_MODEL_PATH"`
	HuggingFaceVocabPath      string `envconfig:"HUGGINGFACE_VOCAB_PATH"`

	OllamaBaseURL        string `envconfig:"OLLAMA_BASE_URL"`
	OllamaModel          string `envconfig:"OLLAMA_MODEL"`
	OllamaEmbeddingModel string `envconfig:"OLLAMA_EMBEDDING_MODEL"`

	RetrieverK   *int     `envconfig:"RETRIEVER_K"`
	ChunkSize    *int     `envconfig:"CHUNK_SIZE"`
	ChunkOverlap *int     `envconfig:"CHUNK_OVERLAP"`
	Temperature  *float64 `envconfig:"LLM_TEMPERATURE"`

	DatabasePath string `envconfig:"DATABASE_PATH"`
}

// ApplyEnv loads .env from the working directory when present and applies environment overrides to cfg.
func ApplyEnv(cfg *Config) error {
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process(envPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment: %w", err)
	}

	if env.Debug != nil {
		cfg.Debug = *env.Debug
	}
	setString(&cfg.Embedding.Provider, env.EmbeddingProvider)
	setString(&cfg.LLM.Provider, env.LLMProvider)

	setString(&cfg.Providers.OpenAI.APIKey, env.OpenAIAPIKey)
	setString(&cfg.Providers.OpenAI.BaseURL, env.OpenAIBaseURL)
	setString(&cfg.Providers.OpenAI.ChatModel, env.OpenAIModelName)
	setString(&cfg.Providers.OpenAI.EmbeddingModel, env.OpenAIEmbeddingModel)

	setString(&cfg.Providers.HuggingFace.APIToken, env.HuggingFaceToken)
	setString(&cfg.Providers.HuggingFace.BaseURL, env.HuggingFaceBaseURL)
	setString(&cfg.Providers.HuggingFace.InferenceURL, env.HuggingFaceInferenceURL)
	setString(&cfg.Providers.HuggingFace.ChatModel, env.HuggingFaceChatModel)
	setString(&cfg.Providers.HuggingFace.EmbeddingModel, env.HuggingFaceEmbeddingModel)
	setString(&cfg.Providers.HuggingFace.ModelPath, env.HuggingFaceModelPath)
	setString(&cfg.Providers.HuggingFace.VocabPath, env.HuggingFaceVocabPath)

	setString(&cfg.Providers.Ollama.BaseURL, env.OllamaBaseURL)
	setString(&cfg.Providers.Ollama.ChatModel, env.OllamaModel)
	setString(&cfg.Providers.Ollama.EmbeddingModel, env.OllamaEmbeddingModel)

	if env.RetrieverK != nil {
		cfg.Retrieval.K = *env.RetrieverK
	}
	if env.ChunkSize != nil {
		cfg.Chunking.ChunkSize = *env.ChunkSize
	}
	if env.ChunkOverlap != nil {
		overlap := *env.ChunkOverlap
		cfg.Chunking.ChunkOverlap = &overlap
	}
	if env.Temperature != nil {
		cfg.LLM.Temperature = *env.Temperature
	}
	setString(&cfg.Storage.DatabasePath, env.DatabasePath)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
