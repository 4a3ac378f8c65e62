package session

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hyperjump/tanya/internal/chat"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/models"
	"go.uber.org/zap"
)

// Manager maps session IDs to sessions. Sessions share the indexer and engine, which hold
// no per-session state; each session owns its own index.
type Manager struct {
	indexer *indexer.Indexer
	engine  *chat.Engine
	k       int
	opts    []Option
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns an empty manager. k must be positive.
func NewManager(idx *indexer.Indexer, engine *chat.Engine, k int, opts ...Option) (*Manager, error) {
	if k <= 0 {
		return nil, models.NewConfigurationError("retriever k must be positive, got %d", k)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager{
		indexer:  idx,
		engine:   engine,
		k:        k,
		opts:     opts,
		logger:   o.logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	s, err := New(id, m.indexer, m.engine, m.k, m.opts...)
	if err != nil {
		return nil, err
	}
	if s.opts.archive != nil {
		if err := s.opts.archive.CreateSession(ctx, id); err != nil && m.logger != nil {
			m.logger.Warn("failed to archive session", zap.String("session", id), zap.Error(err))
		}
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("session created", zap.String("session", id))
	}
	return s, nil
}

// Get returns the session with id, or a NotFound error.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, models.NewNotFoundError("get session", "session "+id+" not found")
	}
	return s, nil
}

// Delete removes the session and releases its index.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return models.NewNotFoundError("delete session", "session "+id+" not found")
	}
	if m.logger != nil {
		m.logger.Debug("session deleted", zap.String("session", id))
	}
	return s.Reset()
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns snapshots of all sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, len(sessions))
	for i, s := range sessions {
		infos[i] = s.Info()
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Close resets every session and forgets them.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		errs = append(errs, s.Reset())
	}
	return errors.Join(errs...)
}
