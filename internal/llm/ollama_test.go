package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerator_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "Hello there!", "done": true})
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "test-model", Options{MaxTokens: 32})
	out, err := gen.Generate(context.Background(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there!", out)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "Hi", got.Prompt)
	assert.False(t, got.Stream)
	assert.EqualValues(t, 32, got.Options["num_predict"])
	assert.EqualValues(t, 0, got.Options["temperature"])
}

func TestOllamaGenerator_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'llama9' not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "llama9", Options{}).Generate(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "not found")
}

func TestOllamaGenerator_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"out of memory"}`))
	}))
	defer srv.Close()

	_, err := NewOllamaGenerator(srv.URL, "", Options{}).Generate(context.Background(), "x")
	assert.ErrorContains(t, err, "out of memory")
}

func TestOllamaGenerator_Defaults(t *testing.T) {
	gen := NewOllamaGenerator("", "", Options{})
	assert.Equal(t, DefaultOllamaBaseURL, gen.baseURL)
	assert.Equal(t, DefaultOllamaModel, gen.model)
	assert.Equal(t, DefaultTimeout, gen.client.Timeout)
}
