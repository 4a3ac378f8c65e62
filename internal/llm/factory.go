package llm

import (
	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
)

// New returns the generator selected by cfg.LLM.Provider.
func New(cfg *config.Config) (Generator, error) {
	opts := Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}
	var (
		gen Generator
		err error
	)
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		oa := cfg.Providers.OpenAI
		gen, err = NewOpenAIGenerator(OpenAIConfig{APIKey: oa.APIKey, BaseURL: oa.BaseURL, Model: oa.ChatModel, Options: opts})
	case config.ProviderHuggingFace:
		hf := cfg.Providers.HuggingFace
		gen, err = NewHuggingFaceGenerator(hf.APIToken, hf.BaseURL, hf.ChatModel, opts)
	case config.ProviderOllama:
		ol := cfg.Providers.Ollama
		gen = NewOllamaGenerator(ol.BaseURL, ol.ChatModel, opts)
	default:
		return nil, models.NewConfigurationError("unknown llm provider %q", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, models.NewConfigurationError("llm provider %s: %v", cfg.LLM.Provider, err)
	}
	return gen, nil
}
