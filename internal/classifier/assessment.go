package classifier

import "github.com/opsgate/slb-mcp-gateway/internal/patterns"

// SecurityAssessment is the result of classification (§3).
type SecurityAssessment struct {
	Level                patterns.Tier `json:"level"`
	Category             string        `json:"category"`
	Reason               string        `json:"reason"`
	Blocked              bool          `json:"blocked"`
	RequiresConfirmation bool          `json:"requiresConfirmation"`
	MatchedPattern       string        `json:"matchedPattern,omitempty"`
	Normalized           string        `json:"normalized,omitempty"`
	OriginalAlias        string        `json:"originalAlias,omitempty"`
	ResolvedCmdlet       string        `json:"resolvedCmdlet,omitempty"`
}

// LearnedSafeCategory is the category assigned to commands matched purely
// through the Approved-Safe cache (§4.2 step 2).
const LearnedSafeCategory = "LEARNED_SAFE"

func newAssessment(level patterns.Tier, category, reason string) SecurityAssessment {
	return SecurityAssessment{
		Level:                level,
		Category:             category,
		Reason:               reason,
		Blocked:              level.Blocked(),
		RequiresConfirmation: level.RequiresConfirmationTier(),
	}
}
