package llm

import (
	"testing"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*config.Config)
		wantErr bool
		want    any
	}{
		{
			name: "openai",
			setup: func(c *config.Config) {
				c.LLM.Provider = config.ProviderOpenAI
				c.Providers.OpenAI.APIKey = "k"
			},
			want: &OpenAIGenerator{},
		},
		{
			name:    "openai without key",
			setup:   func(c *config.Config) { c.LLM.Provider = config.ProviderOpenAI },
			wantErr: true,
		},
		{
			name: "huggingface",
			setup: func(c *config.Config) {
				c.LLM.Provider = config.ProviderHuggingFace
				c.Providers.HuggingFace.APIToken = "hf"
				c.Providers.HuggingFace.ChatModel = "HuggingFaceH4/zephyr-7b-beta"
			},
			want: &OpenAIGenerator{},
		},
		{
			name:    "huggingface without token",
			setup:   func(c *config.Config) { c.LLM.Provider = config.ProviderHuggingFace },
			wantErr: true,
		},
		{
			name:  "ollama",
			setup: func(c *config.Config) { c.LLM.Provider = config.ProviderOllama },
			want:  &OllamaGenerator{},
		},
		{
			name:    "unknown",
			setup:   func(c *config.Config) { c.LLM.Provider = "gpt4all" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			tt.setup(cfg)
			gen, err := New(cfg)
			if tt.wantErr {
				assert.ErrorIs(t, err, models.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, gen)
		})
	}
}
