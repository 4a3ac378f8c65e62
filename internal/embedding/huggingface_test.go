package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
)

const testFeaturePath = "/models/sentence-transformers/all-MiniLM-L6-v2/pipeline/feature-extraction"

func TestHuggingFaceEmbedder_PooledVectors(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != testFeaturePath {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Errorf("Authorization = %q", got)
		}
		requests.Add(1)
		var req struct {
			Inputs []string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		out := make([][]float32, len(req.Inputs))
		for i, in := range req.Inputs {
			out[i] = []float32{float32(len(in)), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	e, err := NewHuggingFaceEmbedder(HuggingFaceConfig{APIToken: "hf_test", BaseURL: srv.URL + "/", BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if e.Dimensions() != 0 {
		t.Errorf("Dimensions before first call = %d, want 0", e.Dimensions())
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatal(err)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d, want 2", requests.Load())
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
	if e.Dimensions() != 3 {
		t.Errorf("Dimensions = %d, want 3", e.Dimensions())
	}
}

func TestHuggingFaceEmbedder_TokenStatesAreMeanPooled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[[[1, 2], [3, 4]]]`)
	}))
	defer srv.Close()

	e, err := NewHuggingFaceEmbedder(HuggingFaceConfig{APIToken: "hf_test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Embed(context.Background(), "paris")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []float32{2, 3}) {
		t.Errorf("Embed = %v, want [2 3]", got)
	}
}

func TestHuggingFaceEmbedder_Errors(t *testing.T) {
	if _, err := NewHuggingFaceEmbedder(HuggingFaceConfig{}); err == nil {
		t.Error("expected error without API token")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "loading") {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, `{"error":"Model is currently loading"}`)
			return
		}
		fmt.Fprint(w, `[[1, 0]]`)
	}))
	defer srv.Close()

	loading, err := NewHuggingFaceEmbedder(HuggingFaceConfig{APIToken: "hf_test", BaseURL: srv.URL, Model: "org/loading"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := loading.Embed(context.Background(), "x"); err == nil || !strings.Contains(err.Error(), "Model is currently loading") {
		t.Errorf("expected provider message, got %v", err)
	}

	short, err := NewHuggingFaceEmbedder(HuggingFaceConfig{APIToken: "hf_test", BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := short.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error when the response has fewer vectors than inputs")
	}
}
