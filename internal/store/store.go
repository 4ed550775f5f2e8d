// Package store provides sqlite persistence for the mediation platform.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Sentinel errors returned by store operations. Services map these onto the
// user-facing error taxonomy.
var (
	ErrNotFound         = errors.New("store: not found")
	ErrActiveIssue      = errors.New("store: active issue exists for pair")
	ErrAlreadyConnected = errors.New("store: user already connected")
	ErrVoteCast         = errors.New("store: vote already cast")
	ErrStateConflict    = errors.New("store: issue state changed")
	ErrDuplicate        = errors.New("store: duplicate value")
)

// Store wraps the sqlite database holding all six logical tables.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and initializes the schema.
// Pass ":memory:" for an ephemeral database (tests).
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows a single writer; one pooled connection keeps every
	// statement on the same handle and makes :memory: databases coherent.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		partner_code TEXT NOT NULL UNIQUE,
		connected_user_id TEXT REFERENCES users(id),
		fcm_token TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		partner_a_id TEXT NOT NULL REFERENCES users(id),
		partner_b_id TEXT NOT NULL REFERENCES users(id),
		status TEXT NOT NULL,
		summary TEXT NOT NULL,
		red_flagged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		resolved_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_issues_partners ON issues(partner_a_id, partner_b_id);
	CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL REFERENCES issues(id),
		sender_type TEXT NOT NULL,
		sender_id TEXT REFERENCES users(id),
		content TEXT NOT NULL,
		mediator_summary TEXT NOT NULL DEFAULT '',
		is_flagged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_issue ON messages(issue_id, created_at);

	CREATE TABLE IF NOT EXISTS mediator_logs (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL REFERENCES issues(id),
		version INTEGER NOT NULL,
		content TEXT NOT NULL,
		internal_score REAL NOT NULL,
		is_compromise INTEGER NOT NULL DEFAULT 0,
		accepted_by_a INTEGER,
		accepted_by_b INTEGER,
		created_at DATETIME NOT NULL,
		UNIQUE(issue_id, version)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read);

	CREATE TABLE IF NOT EXISTS ai_events (
		id TEXT PRIMARY KEY,
		issue_id TEXT NOT NULL REFERENCES issues(id),
		agent TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ai_events_issue ON ai_events(issue_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
