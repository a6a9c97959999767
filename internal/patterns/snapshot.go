package patterns

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
)

// Snapshot is an immutable, versioned view of the merged pattern tiers
// (§4.1). Readers hold a *Snapshot, which is never mutated in place;
// a reload or applyOverrides call produces a new one and the Store swaps
// its published pointer atomically.
type Snapshot struct {
	version int64
	hash    string
	byTier  map[Tier][]*Pattern
	all     []*Pattern
}

// Version is a monotonically increasing identifier bumped on every reload
// or override application, used by the classifier's merged-pattern cache key.
func (s *Snapshot) Version() int64 { return s.version }

// Hash is a content hash of the merged pattern set, exposed for
// `patterns export` and for cache diagnostics.
func (s *Snapshot) Hash() string { return s.hash }

// InTier returns the patterns for a tier, in scan order.
func (s *Snapshot) InTier(t Tier) []*Pattern { return s.byTier[t] }

// All returns every pattern across all tiers, grouped by severity order.
func (s *Snapshot) All() []*Pattern {
	out := make([]*Pattern, len(s.all))
	copy(out, s.all)
	return out
}

func newSnapshot(version int64, byTier map[Tier][]*Pattern) *Snapshot {
	s := &Snapshot{version: version, byTier: byTier}
	h := sha256.New()
	for _, tier := range SeverityOrder() {
		for _, p := range byTier[tier] {
			fmt.Fprintf(h, "%s|%s|%s\n", tier, p.ID, p.Expr)
			s.all = append(s.all, p)
		}
	}
	s.hash = hex.EncodeToString(h.Sum(nil))
	return s
}

// Store owns the process-wide merged pattern set: the built-in tiers plus
// config-driven additionalSafe/additionalBlocked/suppressPatterns overrides
// (§4.1). It is loaded once at startup and replaced atomically on config
// reload; the Classifier only ever observes a consistent Snapshot.
type Store struct {
	current atomic.Pointer[Snapshot]
	nextVer atomic.Int64
}

// NewStore builds a Store from the built-in pattern set with no overrides.
func NewStore() *Store {
	s := &Store{}
	s.load(nil, nil, nil)
	return s
}

// Overrides is the config-driven overlay applied on top of the built-in
// tiers (§4.1 merging rules, §6.6 `security.additionalSafe/additionalBlocked/suppressPatterns`).
type Overrides struct {
	AdditionalSafe     []string
	AdditionalBlocked  []string
	SuppressPatternIDs []string
}

// Load (re)builds the snapshot from the built-in set plus the given
// overrides and publishes it. Called once at startup and again on every
// config reload.
func (s *Store) Load(ov Overrides) (*Snapshot, error) {
	return s.load(ov.AdditionalSafe, ov.AdditionalBlocked, ov.SuppressPatternIDs)
}

// CurrentSnapshot returns the currently published snapshot.
func (s *Store) CurrentSnapshot() *Snapshot {
	return s.current.Load()
}

// ApplyOverrides produces and publishes a new snapshot layered on top of
// the built-in tiers, per §4.1's "applyOverrides" operation. It does not
// read the previously published snapshot's overrides — each call is
// absolute, mirroring a config reload replacing the whole overlay.
func (s *Store) ApplyOverrides(additionalSafe, additionalBlocked, suppress []string) (*Snapshot, error) {
	return s.load(additionalSafe, additionalBlocked, suppress)
}

func (s *Store) load(additionalSafe, additionalBlocked, suppress []string) (*Snapshot, error) {
	suppressed := make(map[string]bool, len(suppress))
	for _, id := range suppress {
		suppressed[id] = true
	}

	byTier := make(map[Tier][]*Pattern, len(severityOrder))
	for _, p := range Builtin() {
		if suppressed[p.ID] {
			continue
		}
		byTier[p.Tier] = append(byTier[p.Tier], p)
	}

	for i, expr := range additionalSafe {
		id := fmt.Sprintf("config-safe-%d", i)
		p, err := compile(id, TierSafe, "CONFIG_OVERRIDE", expr, "added via security.additionalSafe", "config")
		if err != nil {
			return nil, err
		}
		byTier[TierSafe] = append(byTier[TierSafe], p)
	}
	for i, expr := range additionalBlocked {
		id := fmt.Sprintf("config-blocked-%d", i)
		p, err := compile(id, TierBlocked, "CONFIG_OVERRIDE", expr, "added via security.additionalBlocked", "config")
		if err != nil {
			return nil, err
		}
		byTier[TierBlocked] = append(byTier[TierBlocked], p)
	}

	ver := s.nextVer.Add(1)
	snap := newSnapshot(ver, byTier)
	s.current.Store(snap)
	return snap, nil
}
