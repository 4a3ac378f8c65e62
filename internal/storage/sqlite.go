package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/tanya/internal/models"
)

// SQLiteArchive implements Archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteArchive{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		documents TEXT NOT NULL,
		chunk_count INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_builds_session_id ON builds(session_id);

	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		question TEXT NOT NULL,
		standalone_question TEXT,
		answer TEXT NOT NULL,
		sources TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns(session_id, id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateSession inserts a session. Creating an existing session is a no-op.
func (s *SQLiteArchive) CreateSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, created_at) VALUES (?, ?)`,
		id, time.Now(),
	)
	return err
}

// ListSessions returns sessions, newest first, with their build and turn counts.
func (s *SQLiteArchive) ListSessions(ctx context.Context, offset, limit int) ([]*SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.created_at,
		        (SELECT COUNT(*) FROM builds b WHERE b.session_id = s.id),
		        (SELECT COUNT(*) FROM turns t WHERE t.session_id = s.id)
		 FROM sessions s ORDER BY s.created_at DESC, s.id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.Builds, &rec.Turns); err != nil {
			return nil, err
		}
		sessions = append(sessions, &rec)
	}
	return sessions, rows.Err()
}

// RecordBuild stores a knowledge-base build and fills in its ID and time.
func (s *SQLiteArchive) RecordBuild(ctx context.Context, sessionID string, build *BuildRecord) error {
	docsJSON, err := json.Marshal(build.Documents)
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}
	build.SessionID = sessionID
	build.CreatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (session_id, documents, chunk_count, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, string(docsJSON), build.Chunks, build.CreatedAt,
	)
	if err != nil {
		return err
	}
	build.ID, _ = result.LastInsertId()
	return nil
}

// RecordTurn stores a completed turn with its sources.
func (s *SQLiteArchive) RecordTurn(ctx context.Context, sessionID string, answer *models.Answer) error {
	sources := models.NewAnswerResponse(answer, 0).Sources
	sourcesJSON, err := json.Marshal(sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turns (session_id, question, standalone_question, answer, sources, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, answer.Question, answer.StandaloneQuestion, answer.Text, string(sourcesJSON), time.Now(),
	)
	return err
}

// ListTurns returns turns in the order they were asked. An empty sessionID lists turns of
// every session.
func (s *SQLiteArchive) ListTurns(ctx context.Context, sessionID string, offset, limit int) ([]*TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, question, standalone_question, answer, sources, created_at
		 FROM turns WHERE (? = '' OR session_id = ?) ORDER BY id LIMIT ? OFFSET ?`,
		sessionID, sessionID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*TurnRecord
	for rows.Next() {
		var rec TurnRecord
		var standalone, sourcesJSON sql.NullString
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Question, &standalone, &rec.Answer, &sourcesJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.StandaloneQuestion = standalone.String
		if sourcesJSON.String != "" {
			if err := json.Unmarshal([]byte(sourcesJSON.String), &rec.Sources); err != nil {
				return nil, fmt.Errorf("failed to unmarshal sources: %w", err)
			}
		}
		turns = append(turns, &rec)
	}
	return turns, rows.Err()
}

// CountSessions returns the total number of sessions.
func (s *SQLiteArchive) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

// CountTurns returns the total number of archived turns.
func (s *SQLiteArchive) CountTurns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteArchive) Close() error {
	return s.db.Close()
}
