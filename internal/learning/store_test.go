package learning

import (
	"testing"
)

func TestQueue_IdempotentInsertion(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	r1, err := s.Queue("mytool --flag", "classifier")
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if r1.Added != 1 || r1.Skipped != 0 {
		t.Fatalf("first queue: got %+v", r1)
	}

	r2, err := s.Queue("mytool --flag", "classifier")
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if r2.Added != 0 || r2.Skipped != 1 {
		t.Fatalf("second queue: got %+v", r2)
	}

	list := s.ListQueue()
	if len(list) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(list))
	}
	if list[0].TimesQueued != 2 {
		t.Fatalf("expected timesQueued=2, got %d", list[0].TimesQueued)
	}
}

func TestApprove_PromotesAndBumpsVersion(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if _, err := s.Queue("mytool --flag", "classifier"); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	v0 := s.ApprovedVersion()
	res, err := s.Approve([]string{"mytool --flag"}, "operator")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if res.Promoted != 1 {
		t.Fatalf("expected 1 promotion, got %+v", res)
	}
	if s.ApprovedVersion() <= v0 {
		t.Error("expected approved version to increase")
	}
	if _, ok := s.Lookup("mytool --flag"); !ok {
		t.Error("expected approved lookup to succeed after promotion")
	}
	if len(s.ListQueue()) != 0 {
		t.Error("expected candidate removed from queue after promotion")
	}
}

func TestApprove_IdempotentSecondCallPromotesZero(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	if _, err := s.Queue("mytool --flag", "classifier"); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if _, err := s.Approve([]string{"mytool --flag"}, "operator"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	vAfterFirst := s.ApprovedVersion()

	res, err := s.Approve([]string{"mytool --flag"}, "operator")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if res.Promoted != 0 {
		t.Fatalf("expected 0 promotions on repeat approve, got %+v", res)
	}
	if s.ApprovedVersion() != vAfterFirst {
		t.Error("expected no further version bump on repeat approve")
	}
}

func TestApprove_NotFoundWhenNotQueued(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	res, err := s.Approve([]string{"never-queued"}, "operator")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if res.Promoted != 0 || len(res.NotFound) != 1 {
		t.Fatalf("expected not-found result, got %+v", res)
	}
}

func TestStore_PersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	s1, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := s1.Queue("mytool --flag", "classifier"); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if _, err := s1.Approve([]string{"mytool --flag"}, "operator"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	s1.Close()

	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore (reload): %v", err)
	}
	defer s2.Close()

	if _, ok := s2.Lookup("mytool --flag"); !ok {
		t.Error("expected approved-safe entry to survive reload")
	}
}
