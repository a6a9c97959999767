package audit

import (
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

// Publisher implements C8: it owns the Registry, the replay ring, a
// broadcast fan-out for SSE subscribers, and the monotonic seq counter.
// Every event, attempt and completion alike, is delivered to subscribers on
// a best-effort, drop-oldest basis, so a send never blocks the pipeline;
// attempt events have no separate guaranteed-delivery queue and can be
// dropped for a slow subscriber like any other event. Every event is also
// pushed into the replay ring.
type Publisher struct {
	registry *Registry
	ring     *ring
	seq      atomic.Int64

	disableAttemptPublish bool

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int
}

// New builds a Publisher. disableAttemptPublish mirrors
// MCP_DISABLE_ATTEMPT_PUBLISH (§6.7, DESIGN.md Open Question 2).
func New(disableAttemptPublish bool) *Publisher {
	return &Publisher{
		registry:              NewRegistry(),
		ring:                  &ring{},
		disableAttemptPublish: disableAttemptPublish,
		subscribers:           make(map[int]chan Event),
	}
}

// Registry exposes the metrics registry for the HTTP surface.
func (p *Publisher) Registry() *Registry { return p.registry }

// Attempt records an attempt event: rejected before spawn (blocked,
// confirmation required, rate limited, WD policy failure) or the
// zero-duration pre-execution marker for an allowed command (§3 invariant
// 7: zero-duration entries are attempts, not executions).
func (p *Publisher) Attempt(tool, reason string, a classifier.SecurityAssessment) {
	p.registry.RecordAttempt(a.Level, a.Blocked, a.RequiresConfirmation)
	if p.disableAttemptPublish {
		return
	}
	p.publish(newEvent(p.nextSeq(), EventAttempt, tool, reason, a, nil))
}

// Completion records a completion event for a real execution.
func (p *Publisher) Completion(tool string, a classifier.SecurityAssessment, outcome supervisor.Outcome) {
	if outcome.DurationMs > 0 {
		p.registry.RecordCompletion(outcome.DurationMs, outcome.TimedOut, outcome.Overflow)
	}
	o := outcome
	p.publish(newEvent(p.nextSeq(), EventCompletion, tool, string(outcome.TerminationReason), a, &o))
}

// ConfirmationConversion records that a previously-confirmation-required
// command was retried with confirmed=true and proceeded to execution.
func (p *Publisher) ConfirmationConversion() {
	p.registry.RecordConfirmationConversion()
}

// PatternCacheInvalidated implements classifier.Notifier. It both logs and
// publishes a PATTERN_CACHE_INVALIDATED event so auditors watching /events
// or polling /api/events/replay see the cache flip between an approval and
// the classification that follows it (§4.2).
func (p *Publisher) PatternCacheInvalidated(reason string) {
	log.Info("pattern cache invalidated", "reason", reason)
	p.publish(newSystemEvent(p.nextSeq(), EventPatternCacheInvalidated, reason))
}

func (p *Publisher) nextSeq() int64 {
	return p.seq.Add(1)
}

func (p *Publisher) publish(e Event) {
	p.ring.push(e)

	p.subMu.Lock()
	defer p.subMu.Unlock()
	for id, ch := range p.subscribers {
		select {
		case ch <- e:
		default:
			// drop-oldest for every event kind: make room and retry once.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
				log.Warn("audit: dropping event for slow subscriber", "subscriber", id)
			}
		}
	}
}

// Subscribe registers an SSE-style listener. The returned cancel func must
// be called to release the subscription.
func (p *Publisher) Subscribe(bufferSize int) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = 32
	}
	ch := make(chan Event, bufferSize)

	p.subMu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = ch
	p.subMu.Unlock()

	cancel := func() {
		p.subMu.Lock()
		delete(p.subscribers, id)
		p.subMu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Replay implements `GET /api/events/replay?since=<seq>&limit=<n>`.
func (p *Publisher) Replay(since int64, limit int) []Event {
	return p.ring.since(since, limit)
}
