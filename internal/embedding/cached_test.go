package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// countingEmbedder records every text it is asked to embed.
type countingEmbedder struct {
	mu    sync.Mutex
	seen  []string
	fail  error
	inner *HashEmbedder
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{inner: NewHashEmbedder(32)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.seen = append(c.seen, texts...)
	c.mu.Unlock()
	if c.fail != nil {
		return nil, c.fail
	}
	return c.inner.EmbedBatch(ctx, texts)
}

func (c *countingEmbedder) Dimensions() int { return c.inner.Dimensions() }
func (c *countingEmbedder) Close() error    { return nil }

func TestCachedEmbedder_ForwardsOnlyMisses(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	vecs, err := cached.EmbedBatch(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	want := []string{"alpha", "beta", "gamma"}
	if len(inner.seen) != len(want) {
		t.Fatalf("inner saw %v, want %v", inner.seen, want)
	}
	for i := range want {
		if inner.seen[i] != want[i] {
			t.Errorf("inner saw %v, want %v", inner.seen, want)
		}
	}

	// Order is preserved between hits and misses.
	direct, _ := NewHashEmbedder(32).Embed(ctx, "gamma")
	for i := range direct {
		if vecs[2][i] != direct[i] {
			t.Fatal("vector for gamma does not match the direct embedding")
		}
	}
}

func TestCachedEmbedder_AllHits(t *testing.T) {
	inner := newCountingEmbedder()
	cached := NewCachedEmbedder(inner, 10)
	ctx := context.Background()
	if _, err := cached.EmbedBatch(ctx, []string{"x", "y"}); err != nil {
		t.Fatal(err)
	}
	if _, err := cached.EmbedBatch(ctx, []string{"y", "x"}); err != nil {
		t.Fatal(err)
	}
	if len(inner.seen) != 2 {
		t.Errorf("second batch should be served from cache, inner saw %v", inner.seen)
	}
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	inner := newCountingEmbedder()
	inner.fail = errors.New("quota exceeded")
	cached := NewCachedEmbedder(inner, 10)
	if _, err := cached.Embed(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
	inner.fail = nil
	if _, err := cached.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if len(inner.seen) != 2 {
		t.Errorf("failed call must not be cached, inner saw %v", inner.seen)
	}
}

func TestCachedEmbedder_DelegatesDimensions(t *testing.T) {
	cached := NewCachedEmbedder(NewHashEmbedder(48), 4)
	if cached.Dimensions() != 48 {
		t.Errorf("Dimensions: got %d", cached.Dimensions())
	}
	if _, ok := cached.Unwrap().(*HashEmbedder); !ok {
		t.Error("Unwrap should return the hash embedder")
	}
}
