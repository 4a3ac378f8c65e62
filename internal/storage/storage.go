// Package storage archives conversation transcripts. The archive is write-only from the
// pipeline's point of view: nothing read from it is fed back into a session.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/tanya/internal/models"
)

// Archive records sessions, knowledge-base builds and completed turns.
type Archive interface {
	// Session operations
	CreateSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, offset, limit int) ([]*SessionRecord, error)

	// Transcript operations
	RecordBuild(ctx context.Context, sessionID string, build *BuildRecord) error
	RecordTurn(ctx context.Context, sessionID string, answer *models.Answer) error
	ListTurns(ctx context.Context, sessionID string, offset, limit int) ([]*TurnRecord, error)

	// Stats
	CountSessions(ctx context.Context) (int64, error)
	CountTurns(ctx context.Context) (int64, error)

	Close() error
}

// SessionRecord is an archived session with its activity counts.
type SessionRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Builds    int       `json:"builds"`
	Turns     int       `json:"turns"`
}

// BuildRecord is one knowledge-base build.
type BuildRecord struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Documents []string  `json:"documents"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnRecord is one archived question and answer with the sources it cited.
type TurnRecord struct {
	ID                 int64               `json:"id"`
	SessionID          string              `json:"session_id"`
	Question           string              `json:"question"`
	StandaloneQuestion string              `json:"standalone_question"`
	Answer             string              `json:"answer"`
	Sources            []models.SourceView `json:"sources"`
	CreatedAt          time.Time           `json:"created_at"`
}
