package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hyperjump/tanya/internal/chat"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/indexer"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedGenerator echoes back a fixed answer, or fails while fail is set.
type scriptedGenerator struct {
	fail  atomic.Bool
	calls atomic.Int32
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.fail.Load() {
		return "", errors.New("rate limited")
	}
	if strings.Contains(prompt, "Standalone question:") {
		return "What is the capital of France?", nil
	}
	return "  Paris.  ", nil
}

func (g *scriptedGenerator) Close() error { return nil }

func textDoc(name, text string) models.SourceDocument {
	return models.SourceDocument{Name: name, Data: []byte(text)}
}

func newTestSession(t *testing.T, gen *scriptedGenerator, opts ...Option) *Session {
	t.Helper()
	chunker, err := indexer.NewChunker(200, 20)
	require.NoError(t, err)
	idx := indexer.NewIndexer(embedding.NewHashEmbedder(256), chunker)
	s, err := New("s1", idx, chat.NewEngine(gen), 2, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Reset() })
	return s
}

func TestNew_InvalidK(t *testing.T) {
	_, err := New("s", nil, nil, 0)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestSession_AskBeforeBuildIsNotReady(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{})
	assert.Equal(t, StateUninitialized, s.State())

	_, err := s.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, models.ErrNotReady)
	assert.Empty(t, s.History())
}

func TestSession_BuildAndAsk(t *testing.T) {
	gen := &scriptedGenerator{}
	s := newTestSession(t, gen)

	report, err := s.Build(context.Background(), []models.SourceDocument{
		textDoc("france.txt", "The capital of France is Paris."),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"france.txt"}, report.Documents)
	assert.Equal(t, 1, report.Chunks)
	assert.Equal(t, StateReady, s.State())

	answer, err := s.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "france.txt", answer.Sources[0].Chunk.SourceName)

	_, err = s.Ask(context.Background(), "And its population?")
	require.NoError(t, err)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.ConversationTurn{Question: "What is the capital of France?", Answer: "Paris."}, history[0])
	assert.Equal(t, "And its population?", history[1].Question)

	info := s.Info()
	assert.Equal(t, "s1", info.ID)
	assert.Equal(t, StateReady, info.State)
	assert.Equal(t, 2, info.HistoryLength)
	assert.Equal(t, 1, info.Chunks)
}

func TestSession_HistoryIsCopied(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{})
	_, err := s.Build(context.Background(), []models.SourceDocument{textDoc("a.txt", "alpha beta")})
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "alpha?")
	require.NoError(t, err)

	history := s.History()
	history[0].Answer = "changed"
	assert.Equal(t, "Paris.", s.History()[0].Answer)
}

func TestSession_FailedBuildKeepsPreviousState(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{})
	_, err := s.Build(context.Background(), []models.SourceDocument{textDoc("france.txt", "The capital of France is Paris.")})
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "capital?")
	require.NoError(t, err)

	_, err = s.Build(context.Background(), nil)
	assert.ErrorIs(t, err, models.ErrEmptyInput)
	_, err = s.Build(context.Background(), []models.SourceDocument{textDoc("blank.txt", "   \n\n  ")})
	assert.ErrorIs(t, err, models.ErrEmptyInput)

	assert.Equal(t, StateReady, s.State())
	assert.Len(t, s.History(), 1)
	assert.Equal(t, []string{"france.txt"}, s.Info().Documents)

	answer, err := s.Ask(context.Background(), "capital again?")
	require.NoError(t, err)
	assert.Equal(t, "france.txt", answer.Sources[0].Chunk.SourceName)
}

func TestSession_FailedAskLeavesHistoryUnchanged(t *testing.T) {
	gen := &scriptedGenerator{}
	s := newTestSession(t, gen)
	_, err := s.Build(context.Background(), []models.SourceDocument{textDoc("a.txt", "alpha beta gamma")})
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "alpha?")
	require.NoError(t, err)

	gen.fail.Store(true)
	_, err = s.Ask(context.Background(), "beta?")
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Len(t, s.History(), 1)

	gen.fail.Store(false)
	_, err = s.Ask(context.Background(), "beta?")
	require.NoError(t, err)
	assert.Len(t, s.History(), 2)
}

func TestSession_RebuildClearsHistory(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{})
	_, err := s.Build(context.Background(), []models.SourceDocument{textDoc("a.txt", "alpha beta gamma")})
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "alpha?")
	require.NoError(t, err)
	require.Len(t, s.History(), 1)

	_, err = s.Build(context.Background(), []models.SourceDocument{textDoc("b.txt", "delta epsilon")})
	require.NoError(t, err)
	assert.Empty(t, s.History())
	assert.Equal(t, []string{"b.txt"}, s.Info().Documents)
}

func TestSession_Reset(t *testing.T) {
	s := newTestSession(t, &scriptedGenerator{})
	_, err := s.Build(context.Background(), []models.SourceDocument{textDoc("a.txt", "alpha beta gamma")})
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "alpha?")
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.Equal(t, StateUninitialized, s.State())
	assert.Empty(t, s.History())
	_, err = s.Ask(context.Background(), "alpha?")
	assert.ErrorIs(t, err, models.ErrNotReady)
}

func TestSession_ArchivesBuildsAndTurns(t *testing.T) {
	archive, err := storage.NewSQLiteArchive(filepath.Join(t.TempDir(), "tanya.db"))
	require.NoError(t, err)
	defer archive.Close()

	chunker, err := indexer.NewChunker(200, 20)
	require.NoError(t, err)
	idx := indexer.NewIndexer(embedding.NewHashEmbedder(256), chunker)
	m, err := NewManager(idx, chat.NewEngine(&scriptedGenerator{}), 2, WithArchive(archive), WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	s, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = s.Build(ctx, []models.SourceDocument{textDoc("france.txt", "The capital of France is Paris.")})
	require.NoError(t, err)
	_, err = s.Ask(ctx, "What is the capital of France?")
	require.NoError(t, err)

	sessions, err := archive.ListSessions(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID(), sessions[0].ID)
	assert.Equal(t, 1, sessions[0].Builds)
	assert.Equal(t, 1, sessions[0].Turns)

	turns, err := archive.ListTurns(ctx, s.ID(), 0, 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "Paris.", turns[0].Answer)
	require.Len(t, turns[0].Sources, 1)
	assert.Equal(t, "france.txt", turns[0].Sources[0].Source)
}

func TestManager(t *testing.T) {
	chunker, err := indexer.NewChunker(200, 20)
	require.NoError(t, err)
	idx := indexer.NewIndexer(embedding.NewHashEmbedder(64), chunker)

	_, err = NewManager(idx, chat.NewEngine(&scriptedGenerator{}), -1)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	m, err := NewManager(idx, chat.NewEngine(&scriptedGenerator{}), 3)
	require.NoError(t, err)

	ctx := context.Background()
	a, err := m.Create(ctx)
	require.NoError(t, err)
	b, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 2, m.Count())
	assert.Len(t, m.List(), 2)

	got, err := m.Get(a.ID())
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = a.Build(ctx, []models.SourceDocument{textDoc("a.txt", "alpha")})
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, b.State(), "sessions must not share state")

	require.NoError(t, m.Delete(a.ID()))
	assert.Equal(t, StateUninitialized, a.State())
	_, err = m.Get(a.ID())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, m.Delete(a.ID()), models.ErrNotFound)

	require.NoError(t, m.Close())
	assert.Equal(t, 0, m.Count())
}
