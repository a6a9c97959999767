package classifier

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
)

// ApprovedSafe is the read side of the Learning Store's Approved-Safe cache
// that the Classifier needs (§4.2 step 2, §4.3). Implemented by
// internal/learning.Store; declared here to avoid an import cycle.
type ApprovedSafe interface {
	Lookup(normalized string) (pattern string, ok bool)
	Version() int64
}

// Notifier receives audit events the Classifier itself raises. Implemented
// by internal/audit.Publisher.
type Notifier interface {
	PatternCacheInvalidated(reason string)
}

type noopNotifier struct{}

func (noopNotifier) PatternCacheInvalidated(string) {}

// Classifier implements C2. It is safe for concurrent use: Classify never
// awaits and holds its cache lock only across pure CPU work (§5 "Classifier
// must not await").
type Classifier struct {
	store    *patterns.Store
	approved ApprovedSafe
	notifier Notifier

	mu         sync.Mutex
	cacheSnapV int64
	cacheAppV  int64
	cacheValid bool
}

// New builds a Classifier over the given pattern store and approved-safe
// cache. If notifier is nil, cache invalidation events are dropped.
func New(store *patterns.Store, approved ApprovedSafe, notifier Notifier) *Classifier {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Classifier{store: store, approved: approved, notifier: notifier}
}

// Classify implements the §4.2 algorithm.
func (c *Classifier) Classify(commandText string) SecurityAssessment {
	normalized := Normalize(commandText)

	c.checkCache()

	if pattern, ok := c.approved.Lookup(normalized); ok {
		a := newAssessment(patterns.TierSafe, LearnedSafeCategory, "matched approved-safe cache")
		a.Normalized = normalized
		a.MatchedPattern = pattern
		return a
	}

	classifyText, originalAlias, resolvedCmdlet := resolvePipelineAliases(commandText)

	snap := c.store.CurrentSnapshot()
	for _, tier := range patterns.SeverityOrder() {
		for _, p := range snap.InTier(tier) {
			if p.Compiled.MatchString(classifyText) {
				a := newAssessment(tier, p.Category, p.Description)
				a.MatchedPattern = p.ID
				a.Normalized = normalized
				a.OriginalAlias = originalAlias
				a.ResolvedCmdlet = resolvedCmdlet
				return a
			}
		}
	}

	a := newAssessment(patterns.TierUnknown, "UNCLASSIFIED", "no pattern matched")
	a.Normalized = normalized
	a.OriginalAlias = originalAlias
	a.ResolvedCmdlet = resolvedCmdlet
	return a
}

// checkCache compares the current (snapshot version, approved version) pair
// against the last observed one; on any change it emits
// PATTERN_CACHE_INVALIDATED exactly once per distinct pair transition.
// Classification itself does not use a separate compiled cache beyond the
// Snapshot/ApprovedSafe the Store and Learning Store already own — "cache"
// here is the consistency check over that pair, per §4.2's merged-pattern
// cache description.
func (c *Classifier) checkCache() {
	snapV := c.store.CurrentSnapshot().Version()
	appV := c.approved.Version()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cacheValid && c.cacheSnapV == snapV && c.cacheAppV == appV {
		return
	}
	wasValid := c.cacheValid
	c.cacheSnapV = snapV
	c.cacheAppV = appV
	c.cacheValid = true

	if wasValid {
		log.Debug("pattern cache invalidated", "snapshotVersion", snapV, "approvedVersion", appV)
		c.notifier.PatternCacheInvalidated("snapshot_or_approved_version_changed")
	}
}
