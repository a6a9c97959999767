// Package store persists the session registry and execution journal named
// in the supplemented "agent sessions" feature: a record of which agent
// connected when, and a durable history of every command it ran, so an
// operator can answer "what did this agent do last Tuesday" without
// replaying the audit ring buffer.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB opened against a single sqlite file, matching the
// teacher's `db.DB` receiver-carrying CRUD style (sessions.go methods hang
// off *DB) even though the teacher's own DB/Open/migrate code was never
// part of the retrieved pack — this file supplies that missing half.
type DB struct {
	*sql.DB
}

// Open opens (creating if absent) the sqlite database at path and runs the
// schema migration. An empty path opens an in-memory database, useful for
// tests and for a purely audit-ring-backed deployment that opts out of
// durable history.
func Open(path string) (*DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// sqlite only tolerates one writer; cap the pool so database/sql
	// doesn't hand out concurrent connections that would collide on
	// SQLITE_BUSY under write load.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			agent_name TEXT NOT NULL,
			client_name TEXT NOT NULL,
			project_path TEXT NOT NULL,
			started_at TEXT NOT NULL,
			last_active_at TEXT NOT NULL,
			ended_at TEXT
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_agent_project
			ON sessions(agent_name, project_path)
			WHERE ended_at IS NULL;

		CREATE TABLE IF NOT EXISTS executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			tool TEXT NOT NULL,
			normalized_command TEXT NOT NULL,
			tier TEXT NOT NULL,
			blocked INTEGER NOT NULL,
			confirmation_required INTEGER NOT NULL,
			termination_reason TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			exit_code INTEGER,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_executions_session
			ON executions(session_id, recorded_at);
	`)
	return err
}
