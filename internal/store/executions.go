package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

// ExecutionRecord is one durable row in the execution journal: what a
// session ran, how it was classified, and how it ended. Complements the
// in-memory audit ring (bounded, replayed on demand) with history that
// survives a process restart.
type ExecutionRecord struct {
	ID                   int64
	SessionID            string
	Tool                 string
	NormalizedCommand    string
	Tier                 string
	Blocked              bool
	ConfirmationRequired bool
	TerminationReason    string
	DurationMs           int64
	ExitCode             *int
	RecordedAt           time.Time
}

// RecordExecution appends one journal row. Called once per dispatcher
// invocation that reaches the supervisor (an attempt that was blocked or
// required confirmation never reaches this call, matching the audit
// package's attempt/completion split).
func (db *DB) RecordExecution(sessionID, tool string, a classifier.SecurityAssessment, outcome supervisor.Outcome) error {
	var exitCode sql.NullInt64
	if outcome.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*outcome.ExitCode), Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO executions (session_id, tool, normalized_command, tier, blocked, confirmation_required, termination_reason, duration_ms, exit_code, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID, tool, a.Normalized, string(a.Level),
		boolToInt(a.Blocked), boolToInt(a.RequiresConfirmation),
		string(outcome.TerminationReason), outcome.DurationMs, exitCode,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording execution: %w", err)
	}
	return nil
}

// ListExecutions returns the most recent executions for a session, newest
// first, capped at limit.
func (db *DB) ListExecutions(sessionID string, limit int) ([]*ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT id, session_id, tool, normalized_command, tier, blocked, confirmation_required, termination_reason, duration_ms, exit_code, recorded_at
		FROM executions
		WHERE session_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var out []*ExecutionRecord
	for rows.Next() {
		e := &ExecutionRecord{}
		var blocked, confirmationRequired int
		var exitCode sql.NullInt64
		var recordedAt string

		if err := rows.Scan(&e.ID, &e.SessionID, &e.Tool, &e.NormalizedCommand, &e.Tier,
			&blocked, &confirmationRequired, &e.TerminationReason, &e.DurationMs, &exitCode, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning execution row: %w", err)
		}
		e.Blocked = blocked != 0
		e.ConfirmationRequired = confirmationRequired != 0
		if exitCode.Valid {
			v := int(exitCode.Int64)
			e.ExitCode = &v
		}
		e.RecordedAt, err = time.Parse(time.RFC3339, recordedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing recorded_at: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
