package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeOpenAI serves /v1/embeddings, returning for each input a vector whose first
// component is the input's length. Data is returned in reverse order.
func fakeOpenAI(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"invalid api key","type":"invalid_request_error"}}`)
			return
		}
		requests.Add(1)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Object: "embedding", Embedding: []float32{float32(len(req.Input[i])), 1, 0}, Index: i})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
}

func TestOpenAIEmbedder_BatchesAndOrders(t *testing.T) {
	var requests atomic.Int32
	srv := fakeOpenAI(t, &requests)
	defer srv.Close()

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test-key", BaseURL: srv.URL + "/v1", Model: "custom-embed", BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 0 {
		t.Errorf("unknown model should report 0 dimensions before first call, got %d", e.Dimensions())
	}
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	for i, text := range texts {
		if int(vecs[i][0]) != len(text) {
			t.Errorf("vector %d belongs to the wrong input: %v", i, vecs[i])
		}
	}
	if requests.Load() != 3 {
		t.Errorf("expected 3 requests for batch size 2, got %d", requests.Load())
	}
	if e.Dimensions() != 3 {
		t.Errorf("dimensions learned from response: got %d", e.Dimensions())
	}
}

func TestOpenAIEmbedder_KnownModelDimensions(t *testing.T) {
	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 1536 {
		t.Errorf("default model dimensions: got %d", e.Dimensions())
	}
}

func TestOpenAIEmbedder_APIError(t *testing.T) {
	var requests atomic.Int32
	srv := fakeOpenAI(t, &requests)
	defer srv.Close()

	e, _ := NewOpenAIEmbedder(OpenAIConfig{APIKey: "wrong", BaseURL: srv.URL + "/v1"})
	_, err := e.Embed(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") || !strings.Contains(err.Error(), "401") {
		t.Errorf("error should carry provider message and status: %v", err)
	}
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder(OpenAIConfig{}); err == nil {
		t.Error("expected error without API key")
	}
}
