package retrieval

import (
	"testing"

	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/vector"
)

func TestNormalizeKeywordScores(t *testing.T) {
	results := []*keyword.KeywordResult{
		{ID: "a", Score: 2},
		{ID: "b", Score: 4},
		{ID: "c", Score: 1},
	}
	m := NormalizeKeywordScores(results)
	if m["b"] != 1.0 {
		t.Errorf("max score should be 1.0, got %f", m["b"])
	}
	if m["a"] != 0.5 {
		t.Errorf("a should be 0.5, got %f", m["a"])
	}
	if len(m) != 3 {
		t.Errorf("expected 3 entries, got %d", len(m))
	}
	if len(NormalizeKeywordScores(nil)) != 0 {
		t.Error("nil results should give an empty map")
	}
}

func TestNormalizeKeywordScores_allZero(t *testing.T) {
	m := NormalizeKeywordScores([]*keyword.KeywordResult{{ID: "a", Score: 0}})
	if m["a"] != 0 {
		t.Errorf("zero max should normalize to 0, got %f", m["a"])
	}
}

func TestNormalizeSemanticScores(t *testing.T) {
	results := []*vector.VectorResult{
		{ID: "c1", Score: 0.9},
		{ID: "c2", Score: 0.5},
	}
	m := NormalizeSemanticScores(results)
	if m["c1"] != 0.9 || m["c2"] != 0.5 {
		t.Errorf("unexpected map %v", m)
	}
}

func TestFuse(t *testing.T) {
	kw := map[string]float64{"c1": 1.0, "c2": 0.5}
	sem := map[string]float64{"c1": 0.5, "c3": 1.0}
	results := Fuse(kw, sem, 0.3, 0.7)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// c1: 0.3 + 0.35 = 0.65, c3: 0.7, c2: 0.15
	want := []string{"c3", "c1", "c2"}
	for i, id := range want {
		if results[i].ChunkID != id {
			t.Errorf("position %d: got %s, want %s", i, results[i].ChunkID, id)
		}
	}
	if results[1].KeywordScore != 1.0 || results[1].SemanticScore != 0.5 {
		t.Errorf("component scores not kept: %+v", results[1])
	}
}

func TestFuse_tiesOrderedByID(t *testing.T) {
	results := Fuse(map[string]float64{"b": 1, "a": 1}, nil, 1, 1)
	if results[0].ChunkID != "a" || results[1].ChunkID != "b" {
		t.Errorf("ties should be ordered by ID, got %s, %s", results[0].ChunkID, results[1].ChunkID)
	}
}
