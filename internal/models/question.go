package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength bounds a single question in runes.
const MaxQuestionLength = 4000

// QuestionRequest is the request body for asking a question.
type QuestionRequest struct {
	Question string `json:"question"`
}

// Validate trims the question and rejects empty or oversized input.
func (q *QuestionRequest) Validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if utf8.RuneCountInString(q.Question) > MaxQuestionLength {
		return fmt.Errorf("question exceeds %d characters", MaxQuestionLength)
	}
	return nil
}

// SourceView is the JSON shape of a cited source.
type SourceView struct {
	Source  string  `json:"source"`
	Page    int     `json:"page"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// AnswerResponse is the response for a question: the answer plus its cited sources.
type AnswerResponse struct {
	Question           string       `json:"question"`
	StandaloneQuestion string       `json:"standalone_question"`
	Answer             string       `json:"answer"`
	Sources            []SourceView `json:"sources"`
	QueryTime          int64        `json:"query_time_ms"`
}

// NewAnswerResponse flattens an Answer for transport.
func NewAnswerResponse(a *Answer, queryTimeMS int64) *AnswerResponse {
	resp := &AnswerResponse{
		Question:           a.Question,
		StandaloneQuestion: a.StandaloneQuestion,
		Answer:             a.Text,
		Sources:            make([]SourceView, 0, len(a.Sources)),
		QueryTime:          queryTimeMS,
	}
	for _, s := range a.Sources {
		resp.Sources = append(resp.Sources, SourceView{
			Source:  s.Chunk.SourceName,
			Page:    s.Chunk.PageNumber,
			Content: s.Chunk.Content,
			Score:   s.Score,
		})
	}
	return resp
}
