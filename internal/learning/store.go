package learning

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// writeRequest is one mutation submitted to the single-writer goroutine.
// fn runs exclusively against the in-memory maps; its return error is
// forwarded to the caller without mutating state if persistence failed.
type writeRequest struct {
	fn   func() error
	done chan error
}

// Store implements the Learning Store (C3): a candidate queue and an
// approved-safe cache, each persisted under dataDir. All mutations are
// serialized through a single background goroutine (§5 "Learning Store is a
// single-writer task fed by a channel"); reads take a snapshot under a
// read-write mutex and never block on the writer.
type Store struct {
	dataDir string

	mu         sync.RWMutex
	candidates map[string]*Candidate
	approved   map[string]*Approved
	version    int64

	writes chan writeRequest
	closed chan struct{}
}

// NewStore loads persisted state from dataDir (if any) and starts the
// single-writer goroutine.
func NewStore(dataDir string) (*Store, error) {
	candidates, err := loadCandidates(dataDir)
	if err != nil {
		return nil, err
	}
	approved, err := loadApproved(dataDir)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dataDir:    dataDir,
		candidates: candidates,
		approved:   approved,
		writes:     make(chan writeRequest, 64),
		closed:     make(chan struct{}),
	}
	go s.runWriter()
	return s, nil
}

// Close stops the writer goroutine. Pending writes are drained first.
func (s *Store) Close() {
	close(s.writes)
	<-s.closed
}

func (s *Store) runWriter() {
	defer close(s.closed)
	for req := range s.writes {
		err := req.fn()
		req.done <- err
	}
}

func (s *Store) submit(fn func() error) error {
	done := make(chan error, 1)
	s.writes <- writeRequest{fn: fn, done: done}
	return <-done
}

// Queue implements §4.3's `queue` operation: idempotent insertion,
// incrementing timesQueued on duplicate. The candidate is staged locally and
// persisted before the in-memory map is touched, so a persistence failure
// leaves s.candidates exactly as it was (§4.3 "failures to persist return a
// structured error and do not update in-memory state").
func (s *Store) Queue(normalized, source string) (QueueResult, error) {
	var result QueueResult
	err := s.submit(func() error {
		s.mu.RLock()
		existing, ok := s.candidates[normalized]
		var staged Candidate
		now := timeNow()
		if ok {
			staged = *existing
			staged.LastSeen = now
			staged.TimesQueued++
			result = QueueResult{Added: 0, Skipped: 1}
		} else {
			staged = Candidate{
				Normalized:  normalized,
				FirstSeen:   now,
				LastSeen:    now,
				TimesQueued: 1,
				Source:      source,
			}
			result = QueueResult{Added: 1, Skipped: 0}
		}
		s.mu.RUnlock()

		if err := appendCandidateLine(s.dataDir, &staged); err != nil {
			return err
		}

		s.mu.Lock()
		s.candidates[normalized] = &staged
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return QueueResult{}, err
	}
	return result, nil
}

// ListQueue returns a newest-first snapshot copy of the candidate queue.
func (s *Store) ListQueue() []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		out = append(out, *c)
	}
	sortCandidatesNewestFirst(out)
	return out
}

// Approve implements §4.3's `approve` operation: moves entries from the
// queue to Approved-Safe, bumps the approved version, and persists the new
// approved-safe snapshot. The whole promotion is staged into a copy of the
// approved map first and persisted before anything in s.approved,
// s.candidates, or s.version is touched, so a failed write leaves the
// in-memory state untouched (§4.3, §4.10) rather than already-promoted
// entries dangling ahead of a failed save. The Classifier observes the
// version bump on its next Classify call and emits
// PATTERN_CACHE_INVALIDATED itself.
func (s *Store) Approve(normalized []string, source string) (ApproveResult, error) {
	var result ApproveResult
	err := s.submit(func() error {
		s.mu.RLock()
		approvedSnapshot := make(map[string]*Approved, len(s.approved)+len(normalized))
		for k, v := range s.approved {
			approvedSnapshot[k] = v
		}
		promoted := 0
		var notFound []string
		var newlyApproved []string
		now := timeNow()
		for _, n := range normalized {
			if _, already := approvedSnapshot[n]; already {
				continue
			}
			if _, ok := s.candidates[n]; !ok {
				notFound = append(notFound, n)
				continue
			}
			approvedSnapshot[n] = &Approved{
				Normalized: n,
				Pattern:    n,
				ApprovedAt: now,
				Source:     source,
			}
			newlyApproved = append(newlyApproved, n)
			promoted++
		}
		s.mu.RUnlock()

		result = ApproveResult{Promoted: promoted, NotFound: notFound}
		if promoted == 0 {
			return nil
		}

		if err := saveApproved(s.dataDir, approvedSnapshot); err != nil {
			log.Error("failed to persist approved-safe cache", "err", err)
			result = ApproveResult{}
			return err
		}

		s.mu.Lock()
		for _, n := range newlyApproved {
			s.approved[n] = approvedSnapshot[n]
			delete(s.candidates, n)
		}
		s.version++
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return ApproveResult{}, err
	}
	return result, nil
}

// Remove implements §4.3's `remove` operation on the candidate queue.
func (s *Store) Remove(normalized []string) error {
	return s.submit(func() error {
		s.mu.Lock()
		for _, n := range normalized {
			delete(s.candidates, n)
		}
		s.mu.Unlock()
		return nil
	})
}

// ApprovedVersion returns the monotonic counter bumped on every successful
// promotion (§4.3).
func (s *Store) ApprovedVersion() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Lookup implements classifier.ApprovedSafe.
func (s *Store) Lookup(normalized string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.approved[normalized]
	if !ok {
		return "", false
	}
	return a.Pattern, true
}

// Version implements classifier.ApprovedSafe.
func (s *Store) Version() int64 { return s.ApprovedVersion() }

func sortCandidatesNewestFirst(c []Candidate) {
	sort.Slice(c, func(i, j int) bool { return c[i].LastSeen.After(c[j].LastSeen) })
}

var timeNow = func() time.Time { return time.Now() }
