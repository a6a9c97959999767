// Package audit implements the Audit & Metrics Publisher (C8): structured
// attempt/completion events, a monotonic sequence, a bounded replay ring,
// and a single-mutex metrics registry.
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

// EventKind distinguishes an attempt (recorded before spawn, or instead of
// spawn on rejection) from a completion (recorded after a real execution).
type EventKind string

const (
	EventAttempt                 EventKind = "attempt"
	EventCompletion              EventKind = "completion"
	EventPatternCacheInvalidated EventKind = "pattern_cache_invalidated"
)

// Event is one published record (§5 ordering: attempt precedes completion
// for a single command; cross-command ordering is not guaranteed, so
// consumers re-sort on Seq).
type Event struct {
	ID         string                        `json:"id"`
	Seq        int64                         `json:"seq"`
	Kind       EventKind                     `json:"kind"`
	Tool       string                        `json:"tool"`
	Reason     string                        `json:"reason,omitempty"`
	Timestamp  time.Time                     `json:"timestamp"`
	Assessment classifier.SecurityAssessment `json:"securityAssessment"`
	Outcome    *supervisor.Outcome           `json:"outcome,omitempty"`
}

func newEvent(seq int64, kind EventKind, tool, reason string, assessment classifier.SecurityAssessment, outcome *supervisor.Outcome) Event {
	return Event{
		ID:         uuid.NewString(),
		Seq:        seq,
		Kind:       kind,
		Tool:       tool,
		Reason:     reason,
		Timestamp:  time.Now(),
		Assessment: assessment,
		Outcome:    outcome,
	}
}

// newSystemEvent builds a non-command event (no tool invocation or security
// assessment behind it), such as a pattern cache invalidation notice.
func newSystemEvent(seq int64, kind EventKind, reason string) Event {
	return Event{
		ID:        uuid.NewString(),
		Seq:       seq,
		Kind:      kind,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}
