// Package store handles SQLite persistence of finished sessions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/speedtype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for session history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			word_count INTEGER NOT NULL,
			error_count INTEGER NOT NULL,
			wpm REAL NOT NULL,
			word_count_mode TEXT NOT NULL,
			new_best INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_difficulty ON sessions(difficulty);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertSession stores a finished session and returns its id.
func (s *Store) InsertSession(ctx context.Context, rec model.SessionRecord) (int64, error) {
	newBest := 0
	if rec.NewBest {
		newBest = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (started_at, ended_at, difficulty, duration_ms, word_count, error_count, wpm, word_count_mode, new_best)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.StartedAt.Format(time.RFC3339Nano),
		rec.EndedAt.Format(time.RFC3339Nano),
		rec.Difficulty,
		rec.Duration.Milliseconds(),
		rec.WordCount,
		rec.ErrorCount,
		rec.WPM,
		string(rec.Mode),
		newBest,
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	return res.LastInsertId()
}

// ListSessions returns sessions oldest first, filtered by the history config.
func (s *Store) ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Difficulty != "" {
		clauses = append(clauses, "difficulty = ?")
		args = append(args, cfg.Difficulty)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, started_at, ended_at, difficulty, duration_ms, word_count, error_count, wpm, word_count_mode, new_best
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionRecord
	for rows.Next() {
		var (
			rec                model.SessionRecord
			startedAt, endedAt string
			durationMs         int64
			mode               string
			newBest            int
		)
		if err := rows.Scan(&rec.ID, &startedAt, &endedAt, &rec.Difficulty, &durationMs, &rec.WordCount, &rec.ErrorCount, &rec.WPM, &mode, &newBest); err != nil {
			return nil, err
		}
		if rec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Mode = model.WordCountMode(mode)
		rec.NewBest = newBest != 0
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}
