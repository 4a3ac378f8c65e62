// Package session holds per-user conversational state: one knowledge base and the
// conversation history built on top of it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/hyperjump/tanya/internal/chat"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/retrieval"
	"github.com/hyperjump/tanya/internal/storage"
	"go.uber.org/zap"
)

// State is the lifecycle state of a session.
type State string

const (
	// StateUninitialized means no knowledge base has been built yet, or it was reset.
	StateUninitialized State = "uninitialized"
	// StateReady means questions can be asked.
	StateReady State = "ready"
)

type options struct {
	logger  *zap.Logger
	archive storage.Archive
}

// Option configures sessions and the manager.
type Option func(*options)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithArchive records builds and completed turns in archive.
func WithArchive(a storage.Archive) Option {
	return func(o *options) { o.archive = a }
}

// Session owns a knowledge base and its history. Build, Ask and Reset are serialized.
type Session struct {
	id        string
	createdAt time.Time
	indexer   *indexer.Indexer
	engine    *chat.Engine
	k         int
	opts      options

	mu        sync.Mutex
	kb        *indexer.KnowledgeBase
	retriever *retrieval.Retriever
	history   []models.ConversationTurn
}

// Info is a snapshot of a session for display.
type Info struct {
	ID            string    `json:"id"`
	State         State     `json:"state"`
	Documents     []string  `json:"documents"`
	Chunks        int       `json:"chunks"`
	HistoryLength int       `json:"history_length"`
	CreatedAt     time.Time `json:"created_at"`
}

// New returns an uninitialized session. k is the number of chunks retrieved per question.
func New(id string, idx *indexer.Indexer, engine *chat.Engine, k int, opts ...Option) (*Session, error) {
	if k <= 0 {
		return nil, models.NewConfigurationError("retriever k must be positive, got %d", k)
	}
	s := &Session{
		id:        id,
		createdAt: time.Now(),
		indexer:   idx,
		engine:    engine,
		k:         k,
	}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// Build replaces the knowledge base with one built from docs and clears the history.
// The new knowledge base is built completely before the swap; on failure the previous
// knowledge base and history are left untouched.
func (s *Session) Build(ctx context.Context, docs []models.SourceDocument) (*indexer.BuildReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kb, err := s.indexer.BuildKnowledgeBase(ctx, docs)
	if err != nil {
		return nil, err
	}
	retriever, err := kb.Retriever(s.k)
	if err != nil {
		_ = kb.Close()
		return nil, err
	}

	old := s.kb
	s.kb = kb
	s.retriever = retriever
	s.history = nil
	if old != nil {
		if err := old.Close(); err != nil && s.opts.logger != nil {
			s.opts.logger.Warn("failed to close previous index", zap.String("session", s.id), zap.Error(err))
		}
	}

	report := kb.Report()
	if s.opts.archive != nil {
		rec := &storage.BuildRecord{Documents: report.Documents, Chunks: report.Chunks}
		if err := s.opts.archive.RecordBuild(ctx, s.id, rec); err != nil && s.opts.logger != nil {
			s.opts.logger.Warn("failed to archive build", zap.String("session", s.id), zap.Error(err))
		}
	}
	return report, nil
}

// Ask answers question against the current knowledge base. The turn is appended to the
// history only when the answer succeeds.
func (s *Session) Ask(ctx context.Context, question string) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kb == nil {
		return nil, models.NewNotReadyError("ask")
	}
	answer, err := s.engine.Answer(ctx, question, s.history, s.retriever)
	if err != nil {
		return nil, err
	}
	s.history = append(s.history, answer.Turn())

	if s.opts.archive != nil {
		if err := s.opts.archive.RecordTurn(ctx, s.id, answer); err != nil && s.opts.logger != nil {
			s.opts.logger.Warn("failed to archive turn", zap.String("session", s.id), zap.Error(err))
		}
	}
	return answer, nil
}

// Reset discards the knowledge base and history.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Session) resetLocked() error {
	var err error
	if s.kb != nil {
		err = s.kb.Close()
	}
	s.kb = nil
	s.retriever = nil
	s.history = nil
	return err
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kb == nil {
		return StateUninitialized
	}
	return StateReady
}

// History returns a copy of the completed turns, oldest first.
func (s *Session) History() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationTurn, len(s.history))
	copy(out, s.history)
	return out
}

// Info returns a snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	info := Info{
		ID:            s.id,
		State:         StateUninitialized,
		Documents:     []string{},
		HistoryLength: len(s.history),
		CreatedAt:     s.createdAt,
	}
	if s.kb != nil {
		info.State = StateReady
		report := s.kb.Report()
		info.Documents = append(info.Documents, report.Documents...)
		info.Chunks = report.Chunks
	}
	return info
}
