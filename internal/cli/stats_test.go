package cli

import (
	"testing"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
	"github.com/opsgate/slb-mcp-gateway/internal/store"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

func openTestJournal(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open("")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSummarizeJournal_AggregatesAcrossSessions(t *testing.T) {
	db := openTestJournal(t)

	s1 := &store.Session{AgentName: "agent-a", ProjectPath: "/proj1"}
	s2 := &store.Session{AgentName: "agent-b", ProjectPath: "/proj2"}
	if err := db.CreateSession(s1); err != nil {
		t.Fatalf("CreateSession s1: %v", err)
	}
	if err := db.CreateSession(s2); err != nil {
		t.Fatalf("CreateSession s2: %v", err)
	}

	safe := classifier.SecurityAssessment{Level: patterns.TierSafe, Normalized: "get-date"}
	blocked := classifier.SecurityAssessment{Level: patterns.TierCritical, Normalized: "git push --force", Blocked: true}
	exit0 := 0
	if err := db.RecordExecution(s1.ID, "run-powershell", safe, supervisor.Outcome{DurationMs: 5, ExitCode: &exit0, TerminationReason: supervisor.ReasonCompleted}); err != nil {
		t.Fatalf("RecordExecution s1: %v", err)
	}
	if err := db.RecordExecution(s2.ID, "run-powershell", blocked, supervisor.Outcome{DurationMs: 0, TerminationReason: supervisor.ReasonKilled}); err != nil {
		t.Fatalf("RecordExecution s2: %v", err)
	}

	summary, err := summarizeJournal(db, 10)
	if err != nil {
		t.Fatalf("summarizeJournal: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("expected 2 total executions across both sessions, got %d", summary.Total)
	}
	if summary.Blocked != 1 {
		t.Fatalf("expected 1 blocked execution, got %d", summary.Blocked)
	}
	if summary.ByTier["SAFE"] != 1 || summary.ByTier["CRITICAL"] != 1 {
		t.Fatalf("unexpected tier breakdown: %+v", summary.ByTier)
	}
}

func TestSummarizeJournal_RespectsLimit(t *testing.T) {
	db := openTestJournal(t)
	s := &store.Session{AgentName: "agent-a", ProjectPath: "/proj"}
	if err := db.CreateSession(s); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	for i := 0; i < 5; i++ {
		a := classifier.SecurityAssessment{Level: patterns.TierSafe, Normalized: "get-date"}
		if err := db.RecordExecution(s.ID, "run-powershell", a, supervisor.Outcome{DurationMs: 1, TerminationReason: supervisor.ReasonCompleted}); err != nil {
			t.Fatalf("RecordExecution: %v", err)
		}
	}

	summary, err := summarizeJournal(db, 2)
	if err != nil {
		t.Fatalf("summarizeJournal: %v", err)
	}
	if summary.Total != 5 {
		t.Fatalf("expected total to count all 5 executions, got %d", summary.Total)
	}
	if len(summary.Recent) != 2 {
		t.Fatalf("expected Recent capped at limit 2, got %d", len(summary.Recent))
	}
}
