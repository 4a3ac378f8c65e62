// Package keyword provides an in-memory keyword (BM25-style) ranking over chunk text,
// used alongside vector similarity in hybrid retrieval.
package keyword

import "context"

// SearchOptions tunes keyword ranking. Nil means plain match scoring.
type SearchOptions struct {
	// SourceBoost multiplies the score contribution of matches in the source file name.
	SourceBoost float64
	// PhraseBoost multiplies the score of chunks where the query terms appear as a phrase.
	PhraseBoost float64
}

// KeywordIndex ranks indexed chunks against a text query.
type KeywordIndex interface {
	Add(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	DocCount() (uint64, error)
	Close() error
}

// Entry is one chunk to index.
type Entry struct {
	ID      string
	Content string
	Source  string
}

// KeywordResult is a single keyword search hit; ID is the chunk ID.
type KeywordResult struct {
	ID    string
	Score float64
}
