package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedChat struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, captured *capturedChat, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
			return
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, reply)
	}))
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var captured capturedChat
	srv := chatServer(t, &captured, "Paris has about two million inhabitants.")
	defer srv.Close()

	gen, err := NewOpenAIGenerator(OpenAIConfig{
		APIKey:  "secret",
		BaseURL: srv.URL + "/v1/",
		Model:   "gpt-test",
		Options: Options{MaxTokens: 64},
	})
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "How many people live in Paris?")
	require.NoError(t, err)
	assert.Equal(t, "Paris has about two million inhabitants.", out)
	assert.Equal(t, "gpt-test", captured.Model)
	assert.Equal(t, 64, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, "How many people live in Paris?", captured.Messages[0].Content)
	assert.Greater(t, captured.Temperature, 0.0, "zero temperature must still be sent")
	assert.Less(t, captured.Temperature, 1e-6)
}

func TestOpenAIGenerator_APIError(t *testing.T) {
	var captured capturedChat
	srv := chatServer(t, &captured, "")
	defer srv.Close()

	gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "wrong", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Contains(t, err.Error(), "401")
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[]}`)
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "hi")
	assert.ErrorContains(t, err, "no choices")
}

func TestNewHuggingFaceGenerator(t *testing.T) {
	_, err := NewHuggingFaceGenerator("", "", "mistralai/Mistral-7B-Instruct", Options{})
	assert.Error(t, err)
	_, err = NewHuggingFaceGenerator("hf_token", "", "", Options{})
	assert.Error(t, err)

	var captured capturedChat
	srv := chatServer(t, &captured, "ok")
	defer srv.Close()
	gen, err := NewHuggingFaceGenerator("secret", srv.URL+"/v1", "mistralai/Mistral-7B-Instruct", Options{Temperature: 0.7})
	require.NoError(t, err)
	out, err := gen.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "mistralai/Mistral-7B-Instruct", captured.Model)
	assert.InDelta(t, 0.7, captured.Temperature, 1e-6)
}
