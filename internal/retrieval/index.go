// Package retrieval builds the per-session knowledge-base index over chunk embeddings and
// answers top-k similarity queries against it, optionally fused with keyword ranking.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/keyword"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/vector"
	"go.uber.org/zap"
)

// hybridCandidateFactor widens each ranking before fusion so that a chunk ranked just
// outside the top k by one signal can still win on the other.
const hybridCandidateFactor = 4

// Index holds the normalized chunk vectors of one knowledge base. It is read-only after
// Build and safe for concurrent queries.
type Index struct {
	vectors    vector.VectorIndex
	keywords   keyword.KeywordIndex // nil unless hybrid
	chunks     map[string]*models.Chunk
	ordered    []*models.Chunk
	dimensions int

	keywordWeight  float64
	semanticWeight float64

	closed atomic.Bool
}

type indexOptions struct {
	indexType      string
	hybrid         bool
	keywordWeight  float64
	semanticWeight float64
	logger         *zap.Logger
}

// IndexOption configures Build.
type IndexOption func(*indexOptions)

// WithIndexType selects the vector store ("memory" or "faiss").
func WithIndexType(indexType string) IndexOption {
	return func(o *indexOptions) { o.indexType = indexType }
}

// WithHybrid enables keyword fusion with the given weights.
func WithHybrid(keywordWeight, semanticWeight float64) IndexOption {
	return func(o *indexOptions) {
		o.hybrid = true
		o.keywordWeight = keywordWeight
		o.semanticWeight = semanticWeight
	}
}

// WithLogger sets the logger used to report the build.
func WithLogger(logger *zap.Logger) IndexOption {
	return func(o *indexOptions) { o.logger = logger }
}

// OptionsFromConfig maps the retrieval section of cfg to index options.
func OptionsFromConfig(cfg *config.Config) []IndexOption {
	opts := []IndexOption{WithIndexType(cfg.Retrieval.IndexType)}
	if cfg.Retrieval.Mode == config.RetrievalHybrid {
		opts = append(opts, WithHybrid(cfg.Retrieval.KeywordWeight, cfg.Retrieval.SemanticWeight))
	}
	return opts
}

// Build embeds every chunk with embedder and indexes the normalized vectors by chunk ID.
func Build(ctx context.Context, chunks []*models.Chunk, embedder embedding.Embedder, opts ...IndexOption) (*Index, error) {
	const op = "build index"
	o := indexOptions{indexType: string(vector.IndexTypeMemory)}
	for _, opt := range opts {
		opt(&o)
	}
	if len(chunks) == 0 {
		return nil, models.NewEmptyInputError(op, "no chunks to index")
	}
	start := time.Now()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, models.NewProviderError(op, err)
	}
	if len(vecs) != len(chunks) {
		return nil, models.NewProviderError(op, fmt.Errorf("provider returned %d embeddings for %d chunks", len(vecs), len(chunks)))
	}
	dims := len(vecs[0])
	if dims == 0 {
		return nil, models.NewProviderError(op, errors.New("provider returned an empty embedding"))
	}
	ids := make([]string, len(chunks))
	normalized := make([][]float32, len(vecs))
	for i, v := range vecs {
		if len(v) != dims {
			return nil, models.NewProviderError(op, errors.New("provider returned mismatched dimensions"))
		}
		if !vector.IsFinite(v) {
			return nil, models.NewProviderError(op, fmt.Errorf("provider returned a non-finite embedding for chunk %d", i))
		}
		ids[i] = chunks[i].ID
		normalized[i] = vector.Normalize(v)
	}

	store, err := vector.NewVectorIndex(o.indexType, dims)
	if err != nil {
		return nil, models.NewConfigurationError("vector index: %v", err)
	}
	if err := store.Add(ctx, ids, normalized); err != nil {
		_ = store.Close()
		return nil, models.NewIndexQueryError(op, "add vectors: "+err.Error())
	}

	idx := &Index{
		vectors:        store,
		chunks:         make(map[string]*models.Chunk, len(chunks)),
		ordered:        chunks,
		dimensions:     dims,
		keywordWeight:  o.keywordWeight,
		semanticWeight: o.semanticWeight,
	}
	for _, c := range chunks {
		idx.chunks[c.ID] = c
	}

	if o.hybrid {
		kw, err := keyword.NewBleveIndex()
		if err != nil {
			_ = store.Close()
			return nil, models.NewIndexQueryError(op, "create keyword index: "+err.Error())
		}
		entries := make([]keyword.Entry, len(chunks))
		for i, c := range chunks {
			entries[i] = keyword.Entry{ID: c.ID, Content: c.Content, Source: c.SourceName}
		}
		if err := kw.Add(ctx, entries); err != nil {
			_ = store.Close()
			_ = kw.Close()
			return nil, models.NewIndexQueryError(op, "index keywords: "+err.Error())
		}
		idx.keywords = kw
	}

	if o.logger != nil {
		o.logger.Debug("index built",
			zap.Int("chunks", len(chunks)),
			zap.Int("dimensions", dims),
			zap.String("index_type", o.indexType),
			zap.Bool("hybrid", o.hybrid),
			zap.Duration("took", time.Since(start)))
	}
	return idx, nil
}

// Query embeds text and returns the min(k, Size()) most similar chunks by cosine similarity,
// highest first. The embedder must be the one the index was built with.
func (idx *Index) Query(ctx context.Context, text string, embedder embedding.Embedder, k int) ([]models.ScoredChunk, error) {
	const op = "query index"
	if k <= 0 {
		return nil, models.NewIndexQueryError(op, fmt.Sprintf("k must be positive, got %d", k))
	}
	if idx.closed.Load() {
		return nil, models.NewIndexQueryError(op, "index is closed")
	}
	if idx.vectors.Size() == 0 {
		return nil, models.NewIndexQueryError(op, "index is empty")
	}

	qv, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, models.NewProviderError("embed query", err)
	}
	if len(qv) != idx.dimensions {
		return nil, models.NewIndexQueryError(op, fmt.Sprintf("query dimension %d does not match index dimension %d", len(qv), idx.dimensions))
	}
	if !vector.IsFinite(qv) {
		return nil, models.NewProviderError("embed query", errors.New("provider returned a non-finite embedding"))
	}
	qv = vector.Normalize(qv)

	if idx.keywords != nil {
		return idx.hybridQuery(ctx, text, qv, k)
	}
	hits, err := idx.search(ctx, qv, k)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if c, ok := idx.chunks[h.ID]; ok {
			out = append(out, models.ScoredChunk{Chunk: c, Score: h.Score})
		}
	}
	return out, nil
}

func (idx *Index) search(ctx context.Context, qv []float32, k int) ([]*vector.VectorResult, error) {
	hits, err := idx.vectors.Search(ctx, qv, k)
	if errors.Is(err, vector.ErrClosed) {
		return nil, models.NewIndexQueryError("query index", "index is closed")
	}
	if err != nil {
		return nil, models.NewIndexQueryError("query index", err.Error())
	}
	return hits, nil
}

func (idx *Index) hybridQuery(ctx context.Context, text string, qv []float32, k int) ([]models.ScoredChunk, error) {
	candidates := k * hybridCandidateFactor
	semantic, err := idx.search(ctx, qv, candidates)
	if err != nil {
		return nil, err
	}
	kw, err := idx.keywords.Search(ctx, text, candidates, nil)
	if err != nil {
		return nil, models.NewIndexQueryError("keyword query", err.Error())
	}
	fused := Fuse(NormalizeKeywordScores(kw), NormalizeSemanticScores(semantic), idx.keywordWeight, idx.semanticWeight)
	if len(fused) > k {
		fused = fused[:k]
	}
	out := make([]models.ScoredChunk, 0, len(fused))
	for _, f := range fused {
		if c, ok := idx.chunks[f.ChunkID]; ok {
			out = append(out, models.ScoredChunk{Chunk: c, Score: f.Score})
		}
	}
	return out, nil
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	if idx.closed.Load() {
		return 0
	}
	return idx.vectors.Size()
}

// Dimensions returns the vector dimension fixed at build time.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Hybrid reports whether keyword fusion is enabled.
func (idx *Index) Hybrid() bool {
	return idx.keywords != nil
}

// Chunks returns the indexed chunks in build order.
func (idx *Index) Chunks() []*models.Chunk {
	return idx.ordered
}

// Close releases the index. Later queries fail with an IndexQueryError.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := idx.vectors.Close()
	if idx.keywords != nil {
		err = errors.Join(err, idx.keywords.Close())
	}
	return err
}
