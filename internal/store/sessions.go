package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrActiveSessionExists is returned by CreateSession when an active
// session already exists for the same agent+project pair.
var ErrActiveSessionExists = errors.New("active session already exists for this agent and project")

// ErrSessionNotFound is returned when a session lookup or update affects
// no rows.
var ErrSessionNotFound = errors.New("session not found")

// Session is one registered MCP client connection.
type Session struct {
	ID           string
	AgentName    string
	ClientName   string
	ProjectPath  string
	StartedAt    time.Time
	LastActiveAt time.Time
	EndedAt      *time.Time
}

// CreateSession registers a new session, generating an ID if unset.
// Returns ErrActiveSessionExists if this agent already has an open session
// against projectPath — the registry tracks one active session per pair.
func (db *DB) CreateSession(s *Session) error {
	if s.AgentName == "" {
		return fmt.Errorf("agent_name is required")
	}
	if s.ProjectPath == "" {
		return fmt.Errorf("project_path is required")
	}
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	s.StartedAt = now
	s.LastActiveAt = now
	s.EndedAt = nil

	_, err := db.Exec(`
		INSERT INTO sessions (id, agent_name, client_name, project_path, started_at, last_active_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, s.ID, s.AgentName, s.ClientName, s.ProjectPath, s.StartedAt.Format(time.RFC3339), s.LastActiveAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrActiveSessionExists
		}
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, active or ended.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, agent_name, client_name, project_path, started_at, last_active_at, ended_at
		FROM sessions WHERE id = ?
	`, id)
	return scanSession(row)
}

// GetActiveSession retrieves the open session for an agent+project pair.
func (db *DB) GetActiveSession(agentName, projectPath string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, agent_name, client_name, project_path, started_at, last_active_at, ended_at
		FROM sessions
		WHERE agent_name = ? AND project_path = ? AND ended_at IS NULL
	`, agentName, projectPath)
	return scanSession(row)
}

// ListActiveSessions returns open sessions for a project, most recently
// active first.
func (db *DB) ListActiveSessions(projectPath string) ([]*Session, error) {
	rows, err := db.Query(`
		SELECT id, agent_name, client_name, project_path, started_at, last_active_at, ended_at
		FROM sessions
		WHERE project_path = ? AND ended_at IS NULL
		ORDER BY last_active_at DESC
	`, projectPath)
	if err != nil {
		return nil, fmt.Errorf("querying active sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListAllSessions returns every session regardless of project or end
// state, most recently active first, for CLI-side journal inspection
// (the `stats` command) where the caller doesn't know every project path
// a gateway has ever been pointed at.
func (db *DB) ListAllSessions() ([]*Session, error) {
	rows, err := db.Query(`
		SELECT id, agent_name, client_name, project_path, started_at, last_active_at, ended_at
		FROM sessions
		ORDER BY last_active_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying all sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// UpdateSessionHeartbeat bumps last_active_at; used to keep a long-lived
// MCP connection from being reaped as stale.
func (db *DB) UpdateSessionHeartbeat(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := db.Exec(`UPDATE sessions SET last_active_at = ? WHERE id = ? AND ended_at IS NULL`, now, id)
	if err != nil {
		return fmt.Errorf("updating session heartbeat: %w", err)
	}
	return requireRowsAffected(result)
}

// EndSession closes a session.
func (db *DB) EndSession(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, now, id)
	if err != nil {
		return fmt.Errorf("ending session: %w", err)
	}
	return requireRowsAffected(result)
}

// FindStaleSessions returns open sessions whose last activity is at or
// before now minus threshold (timestamps have one-second precision), for a
// daemon-side reaper to close out.
func (db *DB) FindStaleSessions(threshold time.Duration) ([]*Session, error) {
	cutoff := time.Now().UTC().Add(-threshold).Format(time.RFC3339)
	rows, err := db.Query(`
		SELECT id, agent_name, client_name, project_path, started_at, last_active_at, ended_at
		FROM sessions
		WHERE ended_at IS NULL AND last_active_at <= ?
		ORDER BY last_active_at ASC
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("finding stale sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func requireRowsAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func scanSession(row *sql.Row) (*Session, error) {
	s := &Session{}
	var startedAt, lastActiveAt string
	var endedAt sql.NullString

	err := row.Scan(&s.ID, &s.AgentName, &s.ClientName, &s.ProjectPath, &startedAt, &lastActiveAt, &endedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return parseSessionTimestamps(s, startedAt, lastActiveAt, endedAt)
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		s := &Session{}
		var startedAt, lastActiveAt string
		var endedAt sql.NullString

		if err := rows.Scan(&s.ID, &s.AgentName, &s.ClientName, &s.ProjectPath, &startedAt, &lastActiveAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		s, err := parseSessionTimestamps(s, startedAt, lastActiveAt, endedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

func parseSessionTimestamps(s *Session, startedAt, lastActiveAt string, endedAt sql.NullString) (*Session, error) {
	var err error
	s.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	s.LastActiveAt, err = time.Parse(time.RFC3339, lastActiveAt)
	if err != nil {
		return nil, fmt.Errorf("parsing last_active_at: %w", err)
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339, endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at: %w", err)
		}
		s.EndedAt = &t
	}
	return s, nil
}

// isUniqueConstraintError reports whether err came from a UNIQUE
// constraint violation, as modernc.org/sqlite reports it.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed")
}
