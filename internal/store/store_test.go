package store

import (
	"testing"
	"time"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateSession_DuplicateActiveRejected(t *testing.T) {
	db := openTestDB(t)

	s1 := &Session{AgentName: "agent-a", ClientName: "claude", ProjectPath: "/proj"}
	if err := db.CreateSession(s1); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}

	s2 := &Session{AgentName: "agent-a", ClientName: "claude", ProjectPath: "/proj"}
	if err := db.CreateSession(s2); err != ErrActiveSessionExists {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}
}

func TestCreateSession_DifferentProjectAllowed(t *testing.T) {
	db := openTestDB(t)

	if err := db.CreateSession(&Session{AgentName: "agent-a", ProjectPath: "/proj1"}); err != nil {
		t.Fatalf("CreateSession proj1: %v", err)
	}
	if err := db.CreateSession(&Session{AgentName: "agent-a", ProjectPath: "/proj2"}); err != nil {
		t.Fatalf("CreateSession proj2: %v", err)
	}
}

func TestEndSession_AllowsReCreate(t *testing.T) {
	db := openTestDB(t)

	s := &Session{AgentName: "agent-a", ProjectPath: "/proj"}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := db.EndSession(s.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := db.CreateSession(&Session{AgentName: "agent-a", ProjectPath: "/proj"}); err != nil {
		t.Fatalf("expected re-create to succeed after end, got %v", err)
	}
}

func TestEndSession_NotFound(t *testing.T) {
	db := openTestDB(t)
	if err := db.EndSession("does-not-exist"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestGetActiveSession_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	created := &Session{AgentName: "agent-a", ClientName: "claude", ProjectPath: "/proj"}
	if err := db.CreateSession(created); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := db.GetActiveSession("agent-a", "/proj")
	if err != nil {
		t.Fatalf("GetActiveSession: %v", err)
	}
	if got.ID != created.ID || got.ClientName != "claude" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestUpdateSessionHeartbeat_SucceedsForActiveSession(t *testing.T) {
	db := openTestDB(t)
	s := &Session{AgentName: "agent-a", ProjectPath: "/proj"}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := db.UpdateSessionHeartbeat(s.ID); err != nil {
		t.Fatalf("UpdateSessionHeartbeat: %v", err)
	}
}

func TestFindStaleSessions_OnlyOlderThanThreshold(t *testing.T) {
	db := openTestDB(t)
	s := &Session{AgentName: "agent-a", ProjectPath: "/proj"}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	stale, err := db.FindStaleSessions(1 * time.Hour)
	if err != nil {
		t.Fatalf("FindStaleSessions: %v", err)
	}
	if len(stale) != 0 {
		t.Fatalf("expected 0 stale sessions just after creation, got %d", len(stale))
	}

	stale, err = db.FindStaleSessions(0)
	if err != nil {
		t.Fatalf("FindStaleSessions: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale session with zero threshold, got %d", len(stale))
	}
}

func TestListAllSessions_SpansProjectsAndEndState(t *testing.T) {
	db := openTestDB(t)
	s1 := &Session{AgentName: "agent-a", ProjectPath: "/proj1"}
	s2 := &Session{AgentName: "agent-b", ProjectPath: "/proj2"}
	if err := db.CreateSession(s1); err != nil {
		t.Fatalf("CreateSession s1: %v", err)
	}
	if err := db.CreateSession(s2); err != nil {
		t.Fatalf("CreateSession s2: %v", err)
	}
	if err := db.EndSession(s1.ID); err != nil {
		t.Fatalf("EndSession s1: %v", err)
	}

	all, err := db.ListAllSessions()
	if err != nil {
		t.Fatalf("ListAllSessions: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 sessions across projects/end-states, got %d", len(all))
	}
}

func TestRecordExecutionAndList(t *testing.T) {
	db := openTestDB(t)
	s := &Session{AgentName: "agent-a", ProjectPath: "/proj"}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	a := classifier.SecurityAssessment{Level: patterns.TierSafe, Normalized: "get-content <str>"}
	exitCode := 0
	outcome := supervisor.Outcome{DurationMs: 42, ExitCode: &exitCode, TerminationReason: supervisor.ReasonCompleted}

	if err := db.RecordExecution(s.ID, "run-powershell", a, outcome); err != nil {
		t.Fatalf("RecordExecution: %v", err)
	}

	records, err := db.ListExecutions(s.ID, 10)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 execution record, got %d", len(records))
	}
	if records[0].ExitCode == nil || *records[0].ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %v", records[0].ExitCode)
	}
	if records[0].NormalizedCommand != "get-content <str>" {
		t.Fatalf("unexpected normalized command: %q", records[0].NormalizedCommand)
	}
}
