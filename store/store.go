// Package store persists a per-query decision audit log in SQLite: how
// each question was classified, retrieved, scored, and gated. Diagnostics
// only; conversation transcripts live in the external conversation store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// Decision is one row in the decision log.
type Decision struct {
	ID              int64   `json:"id"`
	Question        string  `json:"question"`
	Mode            string  `json:"mode"`
	Skipped         bool    `json:"skipped"`
	SkipReason      string  `json:"skip_reason,omitempty"`
	RetrievalMethod string  `json:"retrieval_method"`
	Sources         int     `json:"sources"`
	Confidence      float64 `json:"confidence"`
	Threshold       float64 `json:"threshold"`
	KBFirst         bool    `json:"kb_first"`
	UsedSQG         bool    `json:"used_sqg"`
	Error           string  `json:"error,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// Store wraps the SQLite decision log.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the decision log database at path and
// applies pending migrations.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// LogDecision writes one decision row.
func (s *Store) LogDecision(ctx context.Context, d Decision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_log (question, mode, skipped, skip_reason, retrieval_method, sources, confidence, threshold, kb_first, used_sqg, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.Question, d.Mode, d.Skipped, d.SkipReason, d.RetrievalMethod, d.Sources,
		d.Confidence, d.Threshold, d.KBFirst, d.UsedSQG, d.Error)
	return err
}

// RecentDecisions returns the newest decisions, most recent first.
func (s *Store) RecentDecisions(ctx context.Context, limit int) ([]Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, mode, skipped, skip_reason, retrieval_method, sources, confidence, threshold, kb_first, used_sqg, error, created_at
		FROM decision_log ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.Question, &d.Mode, &d.Skipped, &d.SkipReason,
			&d.RetrievalMethod, &d.Sources, &d.Confidence, &d.Threshold,
			&d.KBFirst, &d.UsedSQG, &d.Error, &d.CreatedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// DB exposes the underlying handle for diagnostic queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
