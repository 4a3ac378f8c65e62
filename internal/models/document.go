// Package models defines core data structures for documents, chunks, conversations, and answers.
package models

// SourceDocument is one uploaded document: a display name and its raw bytes.
type SourceDocument struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// PageUnit is one page of extracted text from one source document.
// PageNumber is 1-based. Units whose trimmed text is empty are discarded before chunking.
type PageUnit struct {
	SourceName string `json:"source"`
	PageNumber int    `json:"page"`
	Text       string `json:"text"`
}

// Chunk is a bounded slice of a single PageUnit's text, the atomic retrieval unit.
// Chunks are created once by the chunker and shared by pointer afterwards; never mutate one.
type Chunk struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SourceName string `json:"source"`
	PageNumber int    `json:"page"`
	Index      int    `json:"index"` // position within the originating unit
}

// ScoredChunk is a chunk returned by a query together with its similarity score.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
}
