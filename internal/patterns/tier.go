// Package patterns implements the regex pattern tiers that back command
// classification: the Config & Pattern Store.
package patterns

import (
	"fmt"
	"regexp"
)

// Tier is a severity class of patterns. Commands that matched nothing are
// classified as TierUnknown.
type Tier string

const (
	TierSafe      Tier = "SAFE"
	TierRisky     Tier = "RISKY"
	TierDangerous Tier = "DANGEROUS"
	TierCritical  Tier = "CRITICAL"
	TierBlocked   Tier = "BLOCKED"
	TierUnknown   Tier = "UNKNOWN"
)

// severityOrder lists tiers from highest to lowest severity, the order the
// classifier scans them in (§4.2 step 4).
var severityOrder = []Tier{TierBlocked, TierCritical, TierDangerous, TierRisky, TierSafe}

// SeverityOrder returns the tiers in the order classification scans them.
func SeverityOrder() []Tier {
	out := make([]Tier, len(severityOrder))
	copy(out, severityOrder)
	return out
}

// Blocked reports whether a tier causes a command to be rejected outright.
func (t Tier) Blocked() bool {
	switch t {
	case TierDangerous, TierCritical, TierBlocked:
		return true
	default:
		return false
	}
}

// RequiresConfirmationTier reports whether a tier requires caller confirmation
// before a spawn is attempted, independent of whether the caller supplied one.
func (t Tier) RequiresConfirmationTier() bool {
	return t == TierRisky || t == TierUnknown
}

// Pattern is a single regex rule tagged with a category label.
type Pattern struct {
	ID          string
	Tier        Tier
	Category    string
	Expr        string
	Compiled    *regexp.Regexp
	Description string
	Source      string // "builtin", "config", "learned"
}

func compile(id string, tier Tier, category, expr, description, source string) (*Pattern, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, fmt.Errorf("pattern %s: %w", id, err)
	}
	return &Pattern{
		ID:          id,
		Tier:        tier,
		Category:    category,
		Expr:        expr,
		Compiled:    re,
		Description: description,
		Source:      source,
	}, nil
}

// MustCompile compiles a built-in pattern and panics on error, mirroring the
// teacher's "built-in patterns must always be valid" contract (§4.10).
func MustCompile(id string, tier Tier, category, expr, description string) *Pattern {
	p, err := compile(id, tier, category, expr, description, "builtin")
	if err != nil {
		panic(err)
	}
	return p
}
