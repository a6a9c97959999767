package audit

import (
	"testing"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

func safeAssessment() classifier.SecurityAssessment {
	return classifier.SecurityAssessment{Level: patterns.TierSafe}
}

func blockedAssessment() classifier.SecurityAssessment {
	return classifier.SecurityAssessment{Level: patterns.TierCritical, Blocked: true}
}

func TestPublisher_AttemptThenCompletionOrdering(t *testing.T) {
	p := New(false)
	sub, cancel := p.Subscribe(8)
	defer cancel()

	p.Attempt("run-powershell", "", safeAssessment())
	p.Completion("run-powershell", safeAssessment(), supervisor.Outcome{DurationMs: 5, TerminationReason: supervisor.ReasonCompleted})

	e1 := <-sub
	e2 := <-sub
	if e1.Kind != EventAttempt || e2.Kind != EventCompletion {
		t.Fatalf("expected attempt then completion, got %s then %s", e1.Kind, e2.Kind)
	}
	if e2.Seq <= e1.Seq {
		t.Error("expected strictly increasing seq")
	}
}

func TestPublisher_BlockedCommandEmitsOnlyAttempt(t *testing.T) {
	p := New(false)
	sub, cancel := p.Subscribe(8)
	defer cancel()

	p.Attempt("run-powershell", "blocked", blockedAssessment())

	snap := p.Registry().Snapshot()
	if snap.Blocked != 1 {
		t.Fatalf("expected blocked=1, got %d", snap.Blocked)
	}
	if snap.Executions != 0 {
		t.Fatalf("expected 0 executions, got %d", snap.Executions)
	}

	e := <-sub
	if e.Kind != EventAttempt {
		t.Fatalf("expected attempt event, got %s", e.Kind)
	}
}

func TestPublisher_DisableAttemptPublishStillUpdatesMetrics(t *testing.T) {
	p := New(true)
	p.Attempt("run-powershell", "confirmation_required", classifier.SecurityAssessment{Level: patterns.TierRisky, RequiresConfirmation: true})

	snap := p.Registry().Snapshot()
	if snap.ConfirmationRequired != 1 {
		t.Fatalf("expected confirmationRequired=1, got %d", snap.ConfirmationRequired)
	}
}

func TestRegistry_MonotonicityP95GEAverage(t *testing.T) {
	r := NewRegistry()
	for _, d := range []int64{10, 20, 30, 1000} {
		r.RecordCompletion(d, false, false)
	}
	snap := r.Snapshot()
	if snap.P95DurationMs < snap.AverageDurationMs {
		t.Fatalf("expected p95 >= average, got p95=%f avg=%f", snap.P95DurationMs, snap.AverageDurationMs)
	}
}

func TestPublisher_PatternCacheInvalidatedIsObservable(t *testing.T) {
	p := New(false)
	sub, cancel := p.Subscribe(8)
	defer cancel()

	p.PatternCacheInvalidated("approved_version_changed")

	e := <-sub
	if e.Kind != EventPatternCacheInvalidated {
		t.Fatalf("expected pattern cache invalidated event, got %s", e.Kind)
	}
	if e.Reason != "approved_version_changed" {
		t.Fatalf("expected reason to be carried through, got %q", e.Reason)
	}

	replayed := p.Replay(0, 10)
	if len(replayed) != 1 || replayed[0].Kind != EventPatternCacheInvalidated {
		t.Fatalf("expected the invalidation event to land in the replay ring, got %+v", replayed)
	}
}

func TestRing_ReplaySinceSeq(t *testing.T) {
	p := New(false)
	for i := 0; i < 5; i++ {
		p.Attempt("run-powershell", "", safeAssessment())
	}
	replayed := p.Replay(2, 10)
	if len(replayed) != 3 {
		t.Fatalf("expected 3 events with seq > 2, got %d", len(replayed))
	}
	for _, e := range replayed {
		if e.Seq <= 2 {
			t.Errorf("unexpected seq %d in replay since=2", e.Seq)
		}
	}
}

func TestRing_BoundedAtRingSize(t *testing.T) {
	p := New(false)
	for i := 0; i < ringSize+50; i++ {
		p.Attempt("run-powershell", "", safeAssessment())
	}
	all := p.Replay(0, 0)
	if len(all) > ringSize {
		t.Fatalf("expected at most %d replayed events, got %d", ringSize, len(all))
	}
}
