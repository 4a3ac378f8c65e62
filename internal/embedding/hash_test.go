package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Quantum computers factor integers")
	b, _ := e.Embed(ctx, "quantum COMPUTERS factor integers!")
	if len(a) != 64 {
		t.Fatalf("length: got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("component %d differs", i)
		}
	}
}

func TestHashEmbedder_UnitNorm(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != DefaultHashDimensions {
		t.Errorf("default dimensions: got %d", e.Dimensions())
	}
	v, _ := e.Embed(context.Background(), "glaciers retreat rapidly")
	if n := math.Sqrt(dot(v, v)); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm: got %f", n)
	}
}

func TestHashEmbedder_StopwordsOnly(t *testing.T) {
	e := NewHashEmbedder(16)
	v, _ := e.Embed(context.Background(), "the and of")
	for _, x := range v {
		if x != 0 {
			t.Fatalf("expected zero vector, got %v", v)
		}
	}
}

func TestHashEmbedder_Similarity(t *testing.T) {
	e := NewHashEmbedder(1024)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "factor integers using superposition")
	related, _ := e.Embed(ctx, "Quantum computers factor integers using superposition and entanglement.")
	unrelated, _ := e.Embed(ctx, "Alpine glaciers retreat rapidly during warm summers.")
	if dot(q, related) <= dot(q, unrelated) {
		t.Errorf("related score %f should exceed unrelated %f", dot(q, related), dot(q, unrelated))
	}
}

func TestHashEmbedder_BatchMatchesSingle(t *testing.T) {
	e := NewHashEmbedder(32)
	ctx := context.Background()
	texts := []string{"one fish", "two fish"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range texts {
		single, _ := e.Embed(ctx, text)
		for j := range single {
			if single[j] != batch[i][j] {
				t.Fatalf("text %d component %d differs", i, j)
			}
		}
	}
}

func TestHashEmbedder_CancelledBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewHashEmbedder(8).EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}
