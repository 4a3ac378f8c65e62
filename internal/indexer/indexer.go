package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/config"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/extract"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/retrieval"
	"go.uber.org/zap"
)

// Indexer builds knowledge bases: extract, chunk, embed, index.
type Indexer struct {
	embedder  embedding.Embedder
	chunker   *Chunker
	extractor *extract.Extractor
	indexOpts []retrieval.IndexOption
	logger    *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (documents read, documents skipped, index built).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithIndexOptions passes options through to retrieval.Build.
func WithIndexOptions(opts ...retrieval.IndexOption) IndexerOption {
	return func(idx *Indexer) { idx.indexOpts = append(idx.indexOpts, opts...) }
}

// WithExtractor replaces the default extractor.
func WithExtractor(e *extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// NewIndexer creates an indexer. The embedder is bound to every knowledge base it builds.
func NewIndexer(embedder embedding.Embedder, chunker *Chunker, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder:  embedder,
		chunker:   chunker,
		extractor: extract.NewExtractor(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// NewIndexerFromConfig creates an indexer with the chunking and retrieval settings of cfg.
func NewIndexerFromConfig(cfg *config.Config, embedder embedding.Embedder, opts ...IndexerOption) (*Indexer, error) {
	chunker, err := NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.Overlap())
	if err != nil {
		return nil, err
	}
	opts = append([]IndexerOption{WithIndexOptions(retrieval.OptionsFromConfig(cfg)...)}, opts...)
	return NewIndexer(embedder, chunker, opts...), nil
}

// Chunker returns the indexer's chunker.
func (idx *Indexer) Chunker() *Chunker {
	return idx.chunker
}

// SkippedDocument names a document that could not be read at all.
type SkippedDocument struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BuildReport summarizes a knowledge-base build.
type BuildReport struct {
	Documents []string          `json:"documents"`
	Pages     int               `json:"pages"`
	Chunks    int               `json:"chunks"`
	Skipped   []SkippedDocument `json:"skipped,omitempty"`
	Duration  time.Duration     `json:"duration_ns"`
}

// KnowledgeBase is a built index together with the embedder that built it.
type KnowledgeBase struct {
	index    *retrieval.Index
	embedder embedding.Embedder
	report   *BuildReport
}

// Retriever returns a retriever over the knowledge base using the build-time embedder.
func (kb *KnowledgeBase) Retriever(k int) (*retrieval.Retriever, error) {
	return retrieval.NewRetriever(kb.index, kb.embedder, k)
}

// Index returns the underlying index.
func (kb *KnowledgeBase) Index() *retrieval.Index {
	return kb.index
}

// Report returns the build report.
func (kb *KnowledgeBase) Report() *BuildReport {
	return kb.report
}

// Close releases the index.
func (kb *KnowledgeBase) Close() error {
	return kb.index.Close()
}

// ExtractPages extracts and normalizes the pages of docs. A document that cannot be read is
// recorded in the report and skipped; individual unreadable pages are already dropped by the
// extractor.
func (idx *Indexer) ExtractPages(docs []models.SourceDocument, report *BuildReport) []models.PageUnit {
	var units []models.PageUnit
	for _, doc := range docs {
		pages, err := idx.extractor.Pages(doc.Name, doc.Data)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedDocument{Name: doc.Name, Reason: err.Error()})
			if idx.logger != nil {
				idx.logger.Warn("indexer skipping unreadable document", zap.String("name", doc.Name), zap.Error(err))
			}
			continue
		}
		kept := 0
		for _, p := range pages {
			p.Text = Preprocess(p.Text)
			if p.Text == "" {
				continue
			}
			units = append(units, p)
			kept++
		}
		if kept > 0 {
			report.Documents = append(report.Documents, doc.Name)
		}
		if idx.logger != nil {
			idx.logger.Debug("indexer document read", zap.String("name", doc.Name), zap.Int("pages", kept))
		}
	}
	report.Pages = len(units)
	return units
}

// BuildKnowledgeBase builds a new knowledge base from docs. It returns an EmptyInputError when
// no text could be extracted and a ProviderError when embedding fails.
func (idx *Indexer) BuildKnowledgeBase(ctx context.Context, docs []models.SourceDocument) (*KnowledgeBase, error) {
	const op = "build knowledge base"
	start := time.Now()
	report := &BuildReport{}

	units := idx.ExtractPages(docs, report)
	if len(units) == 0 {
		return nil, models.NewEmptyInputError(op, "no readable text was found in the uploaded documents")
	}
	chunks := idx.chunker.Chunk(units)
	if len(chunks) == 0 {
		return nil, models.NewEmptyInputError(op, "documents produced no chunks")
	}
	report.Chunks = len(chunks)

	opts := idx.indexOpts
	if idx.logger != nil {
		opts = append(append([]retrieval.IndexOption{}, opts...), retrieval.WithLogger(idx.logger))
	}
	index, err := retrieval.Build(ctx, chunks, idx.embedder, opts...)
	if err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	if idx.logger != nil {
		idx.logger.Info("knowledge base built",
			zap.Strings("documents", report.Documents),
			zap.Int("pages", report.Pages),
			zap.Int("chunks", report.Chunks),
			zap.Int("skipped", len(report.Skipped)),
			zap.Duration("took", report.Duration))
	}
	return &KnowledgeBase{index: index, embedder: idx.embedder, report: report}, nil
}

// CollectFiles expands paths into a sorted list of regular files. Files named directly are
// always included; files found under a directory are included when their extension is in
// allowedExts (all files when allowedExts is empty). Subdirectories are walked only when
// recursive is set.
func CollectFiles(paths []string, allowedExts []string, recursive bool) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}
	for _, path := range paths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("absolute path: %w", err)
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if !info.IsDir() {
			if !info.Mode().IsRegular() {
				return nil, fmt.Errorf("not a regular file: %s", absPath)
			}
			add(absPath)
			continue
		}
		err = filepath.WalkDir(absPath, func(p string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if p != absPath && !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(p), allowedExts) {
				return nil
			}
			// Resolve symlinks so only regular files are read.
			finfo, statErr := os.Stat(p)
			if statErr != nil || !finfo.Mode().IsRegular() {
				return nil
			}
			add(p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadDocuments reads files into source documents named by their base names.
func ReadDocuments(files []string) ([]models.SourceDocument, error) {
	docs := make([]models.SourceDocument, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		docs = append(docs, models.SourceDocument{Name: filepath.Base(f), Data: data})
	}
	return docs, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
