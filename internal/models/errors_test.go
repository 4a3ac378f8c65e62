package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NewProviderError("embed chunks", errors.New("429 quota exceeded"))
	if !errors.Is(err, ErrProvider) {
		t.Error("provider error should match ErrProvider")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("provider error should not match ErrConfiguration")
	}
	wrapped := fmt.Errorf("build knowledge base: %w", err)
	if !errors.Is(wrapped, ErrProvider) {
		t.Error("wrapped provider error should match ErrProvider")
	}
	if KindOf(wrapped) != KindProvider {
		t.Errorf("KindOf = %q", KindOf(wrapped))
	}
}

func TestError_MessageCarriesProviderText(t *testing.T) {
	cause := errors.New("invalid api key")
	err := NewProviderError("generate answer", cause)
	if err.Message != "invalid api key" {
		t.Errorf("Message = %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if got := err.Error(); got != "[provider] generate answer: invalid api key" {
		t.Errorf("Error() = %q", got)
	}
}

func TestKindOf_plainError(t *testing.T) {
	if KindOf(errors.New("x")) != "" {
		t.Error("plain errors have no kind")
	}
	if KindOf(nil) != "" {
		t.Error("nil has no kind")
	}
}

func TestQuestionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		q       string
		wantErr bool
	}{
		{"empty", "", true},
		{"blank", "   \n", true},
		{"valid", " What is it? ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &QuestionRequest{Question: tt.q}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && req.Question != "What is it?" {
				t.Errorf("question not trimmed: %q", req.Question)
			}
		})
	}
}

func TestNewAnswerResponse(t *testing.T) {
	ch := &Chunk{ID: "c1", Content: "text", SourceName: "a.pdf", PageNumber: 2}
	a := &Answer{Question: "q", StandaloneQuestion: "q", Text: "ans", Sources: []ScoredChunk{{Chunk: ch, Score: 0.8}}}
	resp := NewAnswerResponse(a, 12)
	if len(resp.Sources) != 1 || resp.Sources[0].Source != "a.pdf" || resp.Sources[0].Page != 2 {
		t.Errorf("unexpected sources %+v", resp.Sources)
	}
	if resp.Answer != "ans" || resp.QueryTime != 12 {
		t.Errorf("unexpected response %+v", resp)
	}
}
