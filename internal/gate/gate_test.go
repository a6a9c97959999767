package gate

import (
	"testing"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
)

func assessment(tier patterns.Tier) classifier.SecurityAssessment {
	return classifier.SecurityAssessment{
		Level:                tier,
		Blocked:              tier.Blocked(),
		RequiresConfirmation: tier.RequiresConfirmationTier(),
	}
}

func TestEvaluate_BlockedTierRejectsRegardlessOfFlags(t *testing.T) {
	v := Evaluate(assessment(patterns.TierCritical), CallerFlags{Confirmed: true, Override: true}, nil)
	if v.Decision != DecisionBlocked {
		t.Fatalf("expected blocked, got %s", v.Decision)
	}
}

func TestEvaluate_OverrideIsLoggedNotHonored(t *testing.T) {
	called := false
	v := Evaluate(assessment(patterns.TierDangerous), CallerFlags{Override: true}, func(classifier.SecurityAssessment) {
		called = true
	})
	if v.Decision != DecisionBlocked {
		t.Fatalf("expected blocked despite override, got %s", v.Decision)
	}
	if !called {
		t.Error("expected override to be logged")
	}
}

func TestEvaluate_RiskyWithoutConfirmationRequiresConfirmation(t *testing.T) {
	v := Evaluate(assessment(patterns.TierRisky), CallerFlags{}, nil)
	if v.Decision != DecisionConfirmationRequired {
		t.Fatalf("expected confirmation_required, got %s", v.Decision)
	}
}

func TestEvaluate_RiskyWithConfirmationProceeds(t *testing.T) {
	v := Evaluate(assessment(patterns.TierRisky), CallerFlags{Confirmed: true}, nil)
	if v.Decision != DecisionProceed {
		t.Fatalf("expected proceed, got %s", v.Decision)
	}
}

func TestEvaluate_SafeProceedsWithoutConfirmation(t *testing.T) {
	v := Evaluate(assessment(patterns.TierSafe), CallerFlags{}, nil)
	if v.Decision != DecisionProceed {
		t.Fatalf("expected proceed, got %s", v.Decision)
	}
}

func TestEvaluate_UnknownWithoutConfirmationRequiresConfirmation(t *testing.T) {
	v := Evaluate(assessment(patterns.TierUnknown), CallerFlags{}, nil)
	if v.Decision != DecisionConfirmationRequired {
		t.Fatalf("expected confirmation_required, got %s", v.Decision)
	}
}
