// Package gate implements the Confirmation Gate (C4): the decision of
// whether a classified command may proceed to execution.
package gate

import "github.com/opsgate/slb-mcp-gateway/internal/classifier"

// Decision is the gate's verdict for a single request.
type Decision string

const (
	// DecisionProceed means the request may continue to the Working-Directory
	// Policy and Execution Supervisor.
	DecisionProceed Decision = "proceed"
	// DecisionBlocked means the assessment's tier is a blocking tier.
	DecisionBlocked Decision = "blocked"
	// DecisionConfirmationRequired means the caller must resubmit with
	// confirmed=true.
	DecisionConfirmationRequired Decision = "confirmation_required"
)

// CallerFlags are the caller-supplied flags the gate consults (§4.4).
type CallerFlags struct {
	Confirmed bool
	Override  bool
}

// Verdict is the gate's result, carrying enough context for the Dispatcher
// to build an outcome-shaped response without re-deriving anything.
type Verdict struct {
	Decision   Decision
	Reason     string
	Assessment classifier.SecurityAssessment
}

// Evaluate implements §4.4:
//   - blocked tier: reject with BLOCKED. override is logged and otherwise
//     ignored — see DESIGN.md Open Question 1.
//   - RISKY/UNKNOWN without confirmed: reject with CONFIRMATION_REQUIRED.
//   - otherwise: proceed.
func Evaluate(a classifier.SecurityAssessment, flags CallerFlags, overrideLogger func(assessment classifier.SecurityAssessment)) Verdict {
	if a.Blocked {
		if flags.Override && overrideLogger != nil {
			overrideLogger(a)
		}
		return Verdict{Decision: DecisionBlocked, Reason: "blocked", Assessment: a}
	}
	if a.RequiresConfirmation && !flags.Confirmed {
		return Verdict{Decision: DecisionConfirmationRequired, Reason: "confirmation_required", Assessment: a}
	}
	return Verdict{Decision: DecisionProceed, Reason: "", Assessment: a}
}
