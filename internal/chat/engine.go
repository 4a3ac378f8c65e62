// Package chat implements conversational retrieval: condense a follow-up question against
// the conversation so far, retrieve context for it, and generate a grounded answer.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/hyperjump/tanya/internal/llm"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

// Retriever returns the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]models.ScoredChunk, error)
}

// Engine answers questions. It holds no conversation state and is safe for concurrent use.
type Engine struct {
	generator llm.Generator
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine returns an engine that generates with generator.
func NewEngine(generator llm.Generator, opts ...EngineOption) *Engine {
	e := &Engine{generator: generator}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer answers question given the prior turns in history, using retriever for context.
// history is read but never modified. Generation failures are returned as ProviderErrors;
// retriever errors are returned unchanged.
func (e *Engine) Answer(ctx context.Context, question string, history []models.ConversationTurn, retriever Retriever) (*models.Answer, error) {
	start := time.Now()
	standalone, err := e.Condense(ctx, question, history)
	if err != nil {
		return nil, err
	}

	sources, err := retriever.Retrieve(ctx, standalone)
	if err != nil {
		return nil, err
	}

	text, err := e.generator.Generate(ctx, AnswerPrompt(sources, question))
	if err != nil {
		return nil, models.NewProviderError("generate answer", err)
	}

	if e.logger != nil {
		e.logger.Debug("question answered",
			zap.String("standalone_question", standalone),
			zap.Int("history", len(history)),
			zap.Int("sources", len(sources)),
			zap.Duration("took", time.Since(start)))
	}
	return &models.Answer{
		Question:           question,
		StandaloneQuestion: standalone,
		Text:               strings.TrimSpace(text),
		Sources:            sources,
	}, nil
}

// Condense returns the standalone form of question. With no history the question is
// returned verbatim without a generation call. A blank rewrite falls back to question.
func (e *Engine) Condense(ctx context.Context, question string, history []models.ConversationTurn) (string, error) {
	if len(history) == 0 {
		return question, nil
	}
	out, err := e.generator.Generate(ctx, CondensePrompt(history, question))
	if err != nil {
		return "", models.NewProviderError("condense question", err)
	}
	standalone := strings.TrimSpace(out)
	if standalone == "" {
		if e.logger != nil {
			e.logger.Debug("condense returned blank output, using the original question")
		}
		return question, nil
	}
	return standalone, nil
}
