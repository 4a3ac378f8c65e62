// Package indexer turns source documents into a queryable knowledge base: extract pages,
// split them into overlapping chunks, embed and index the chunks.
package indexer

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperjump/tanya/internal/models"
)

// defaultSeparators are tried in order; the empty separator splits into characters.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits page text into overlapping chunks of bounded length. Sizes are in runes.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker creates a chunker. size must be positive and overlap in [0, size).
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, models.NewConfigurationError("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, models.NewConfigurationError("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   defaultSeparators,
	}, nil
}

// Size returns the maximum chunk length.
func (c *Chunker) Size() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.chunkOverlap }

// Chunk splits every unit independently. Chunks carry the unit's source and page, and their
// Index is the position within the unit. Units are never merged.
func (c *Chunker) Chunk(units []models.PageUnit) []*models.Chunk {
	chunks := make([]*models.Chunk, 0)
	for _, u := range units {
		for i, text := range c.SplitText(u.Text) {
			chunks = append(chunks, &models.Chunk{
				ID:         uuid.NewString(),
				Content:    text,
				SourceName: u.SourceName,
				PageNumber: u.PageNumber,
				Index:      i,
			})
		}
	}
	return chunks
}

// SplitText splits text into trimmed, non-empty pieces of at most Size runes, where
// consecutive pieces share up to Overlap runes.
func (c *Chunker) SplitText(text string) []string {
	return c.split(text, c.separators)
}

func (c *Chunker) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			remaining = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(remaining) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				final = append(final, t)
			}
		} else {
			final = append(final, c.split(piece, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge packs pieces greedily into chunks. Before a new chunk starts, pieces are dropped
// from the front of the current window until at most chunkOverlap runes remain and the
// next piece fits.
func (c *Chunker) merge(pieces []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, d := range pieces {
		n := runeLen(d)
		if total+n > c.chunkSize && len(current) > 0 {
			if doc := joinTrimmed(current); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.chunkOverlap || (total+n > c.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, d)
		total += n
	}
	if doc := joinTrimmed(current); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepingSeparator splits text on sep and prefixes each piece after the first with
// sep. Empty pieces are dropped. An empty sep splits into characters.
func splitKeepingSeparator(text, sep string) []string {
	var pieces []string
	if sep == "" {
		pieces = make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	pieces = make([]string, 0, len(parts))
	if parts[0] != "" {
		pieces = append(pieces, parts[0])
	}
	for _, p := range parts[1:] {
		pieces = append(pieces, sep+p)
	}
	return pieces
}

func joinTrimmed(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
