package keyword

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

const (
	fieldContent = "content"
	fieldSource  = "source"
)

// BleveIndex implements KeywordIndex with a memory-only Bleve index. It lives exactly
// as long as the knowledge base that owns it.
type BleveIndex struct {
	index bleve.Index
}

func newChunkMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "bayes" matches "Bayes" but not "bay".
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldContent, text)
	docMapping.AddFieldMappingsAt(fieldSource, text)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// NewBleveIndex creates an empty in-memory index.
func NewBleveIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newChunkMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Add indexes entries in one batch.
func (b *BleveIndex) Add(ctx context.Context, entries []Entry) error {
	batch := b.index.NewBatch()
	for _, e := range entries {
		doc := map[string]interface{}{
			fieldContent: e.Content,
			fieldSource:  normalizeSourceName(e.Source),
		}
		if err := batch.Index(e.ID, doc); err != nil {
			return fmt.Errorf("failed to queue chunk %s: %w", e.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	return nil
}

// normalizeSourceName turns underscores into spaces so "annual_report_2023.pdf" matches
// "annual report"; the standard analyzer does not split on underscore.
func normalizeSourceName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// Search returns up to limit chunks ranked by keyword relevance.
// Without boosts a single match query over content and source is scored. With boosts,
// content and source are scored separately and summed, chunks that match only some
// of a multi-term query are penalized by the square of their term coverage, and
// phrase matches are multiplied by PhraseBoost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if limit <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	sourceBoost, phraseBoost := 1.0, 1.0
	if opts != nil {
		if opts.SourceBoost > 0 {
			sourceBoost = opts.SourceBoost
		}
		if opts.PhraseBoost > 0 {
			phraseBoost = opts.PhraseBoost
		}
	}
	if sourceBoost <= 1 && phraseBoost <= 1 {
		hits, err := b.match(query, "", limit)
		if err != nil {
			return nil, err
		}
		return topResults(hits, limit), nil
	}
	return b.searchWithBoosts(query, limit, sourceBoost, phraseBoost)
}

// match runs a match query restricted to field ("" means every field) and returns scores by chunk ID.
func (b *BleveIndex) match(query, field string, size int) (map[string]float64, error) {
	q := bleve.NewMatchQuery(query)
	if field != "" {
		q.SetField(field)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = size
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	scores := make(map[string]float64, len(res.Hits))
	for _, hit := range res.Hits {
		scores[hit.ID] = hit.Score
	}
	return scores, nil
}

func (b *BleveIndex) searchWithBoosts(query string, limit int, sourceBoost, phraseBoost float64) ([]*KeywordResult, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	contentScores, err := b.match(query, fieldContent, reqSize)
	if err != nil {
		return nil, err
	}
	sourceScores, err := b.match(query, fieldSource, reqSize)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	coverage := make(map[string]int)
	if len(terms) > 1 {
		for _, term := range terms {
			hits, err := b.match(term, "", reqSize)
			if err != nil {
				continue
			}
			for id := range hits {
				coverage[id]++
			}
		}
	}

	phrase := make(map[string]bool)
	if phraseBoost > 1 && len(terms) > 1 {
		pq := bleve.NewMatchPhraseQuery(query)
		pq.SetField(fieldContent)
		req := bleve.NewSearchRequest(pq)
		req.Size = reqSize
		if res, err := b.index.Search(req); err == nil {
			for _, hit := range res.Hits {
				phrase[hit.ID] = true
			}
		}
	}

	scores := make(map[string]float64, len(contentScores)+len(sourceScores))
	for id, s := range contentScores {
		scores[id] += s
	}
	for id, s := range sourceScores {
		scores[id] += s * sourceBoost
	}
	for id := range scores {
		if len(terms) > 1 {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(len(terms))
			scores[id] *= c * c
		}
		if phrase[id] {
			scores[id] *= phraseBoost
		}
	}
	return topResults(scores, limit), nil
}

// topResults sorts by score descending, breaking ties by ID so output is deterministic.
func topResults(scores map[string]float64, limit int) []*KeywordResult {
	out := make([]*KeywordResult, 0, len(scores))
	for id, s := range scores {
		out = append(out, &KeywordResult{ID: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DocCount returns the number of indexed chunks.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close releases the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
