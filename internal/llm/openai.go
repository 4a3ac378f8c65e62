package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultHuggingFaceBaseURL is the OpenAI-compatible Hugging Face inference router.
const DefaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"

// OpenAIConfig configures an OpenAI-compatible chat generator.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty uses the public OpenAI API
	Model   string
	Options Options
}

// OpenAIGenerator sends the prompt as a single user message to a chat completions endpoint.
// It serves OpenAI itself and any compatible server, including the Hugging Face router.
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	options Options
	name    string
}

// NewOpenAIGenerator returns a generator for cfg. It does not contact the API.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai generator requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	return newChatGenerator("openai", cfg), nil
}

// NewHuggingFaceGenerator returns a generator for a model served by the Hugging Face router.
func NewHuggingFaceGenerator(token, baseURL, model string, opts Options) (*OpenAIGenerator, error) {
	if token == "" {
		return nil, errors.New("huggingface generator requires an API token")
	}
	if model == "" {
		return nil, errors.New("huggingface generator requires a chat model")
	}
	if baseURL == "" {
		baseURL = DefaultHuggingFaceBaseURL
	}
	return newChatGenerator("huggingface", OpenAIConfig{APIKey: token, BaseURL: baseURL, Model: model, Options: opts}), nil
}

func newChatGenerator(name string, cfg OpenAIConfig) *OpenAIGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Options.timeout()}
	return &OpenAIGenerator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		options: cfg.Options,
		name:    name,
	}
}

// Generate returns the first choice's content.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature(g.options.Temperature),
		MaxTokens:   g.options.MaxTokens,
	}
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %s", g.name, providerMessage(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: response has no choices", g.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op.
func (g *OpenAIGenerator) Close() error {
	return nil
}

// temperature maps t to the request field. The field is omitted from JSON when zero, which
// would leave the provider default in place, so an explicit 0 is sent as the smallest float.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

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
