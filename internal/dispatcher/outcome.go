package dispatcher

import (
	"strings"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
	"github.com/opsgate/slb-mcp-gateway/internal/utils"
)

// wireOutcome is the §6.3 wire shape returned from run-powershell*. It is a
// distinct type from supervisor.Outcome because the supervisor keeps
// stdout/stderr as chunk slices (streaming-friendly, no JSON tags) while the
// wire contract flattens them to single strings and adds warnings/reason.
type wireOutcome struct {
	Success              bool                          `json:"success"`
	ExitCode             *int                          `json:"exitCode"`
	Stdout               string                        `json:"stdout"`
	Stderr               string                        `json:"stderr"`
	DurationMs           int64                         `json:"durationMs"`
	ConfiguredTimeoutMs  int64                         `json:"configuredTimeoutMs"`
	EffectiveTimeoutMs   int64                         `json:"effectiveTimeoutMs"`
	AdaptiveExtensions   int                           `json:"adaptiveExtensions"`
	AdaptiveExtended     bool                          `json:"adaptiveExtended"`
	AdaptiveMaxTotalMs   int64                         `json:"adaptiveMaxTotalMs"`
	TimedOut             bool                          `json:"timedOut"`
	Overflow             bool                          `json:"overflow"`
	OverflowStrategy     supervisor.OverflowStrategy   `json:"overflowStrategy"`
	Truncated            bool                          `json:"truncated"`
	TotalBytes           int64                         `json:"totalBytes"`
	TerminationReason    supervisor.TerminationReason  `json:"terminationReason"`
	InternalSelfDestruct bool                          `json:"internalSelfDestruct"`
	WatchdogTriggered    bool                          `json:"watchdogTriggered"`
	KillEscalated        bool                          `json:"killEscalated"`
	Reason               string                        `json:"reason,omitempty"`
	RetryAfterMs         int64                         `json:"retryAfterMs,omitempty"`
	Warnings             []string                      `json:"warnings"`
	SecurityAssessment   classifier.SecurityAssessment `json:"securityAssessment"`
	CommandHash          string                        `json:"commandHash,omitempty"`
}

// toWireOutcome builds the §6.3 response from a supervisor.Outcome, the
// assessment that authorized the run, and any deprecated-alias warnings
// collected while parsing arguments. commandText/cwd feed the command hash
// used to correlate this response with its execution-journal row.
func toWireOutcome(o supervisor.Outcome, a classifier.SecurityAssessment, warnings []string, commandText, cwd string) wireOutcome {
	w := wireOutcome{
		Success:              o.Success,
		ExitCode:             o.ExitCode,
		Stdout:               strings.Join(o.StdoutChunks, ""),
		Stderr:               strings.Join(o.StderrChunks, ""),
		DurationMs:           o.DurationMs,
		ConfiguredTimeoutMs:  o.ConfiguredTimeoutMs,
		EffectiveTimeoutMs:   o.EffectiveTimeoutMs,
		AdaptiveExtensions:   o.AdaptiveExtensions,
		AdaptiveExtended:     o.AdaptiveExtended,
		AdaptiveMaxTotalMs:   o.AdaptiveMaxTotalMs,
		TimedOut:             o.TimedOut,
		Overflow:             o.Overflow,
		OverflowStrategy:     o.OverflowStrategy,
		Truncated:            o.Truncated,
		TotalBytes:           o.TotalBytes,
		TerminationReason:    o.TerminationReason,
		InternalSelfDestruct: o.InternalSelfDestruct,
		WatchdogTriggered:    o.WatchdogTriggered,
		KillEscalated:        o.KillEscalated,
		Reason:               o.FailureReason,
		Warnings:             warnings,
		SecurityAssessment:   a,
		CommandHash:          utils.CommandHash(commandText, cwd, "pwsh", []string{commandText}),
	}
	if w.Warnings == nil {
		w.Warnings = []string{}
	}
	return w
}

// rejectedOutcome builds a zero-duration, non-executed outcome for an
// attempt that never reached the supervisor (blocked, confirmation
// required, rate limited, or a working-directory policy failure; §4.10).
func rejectedOutcome(reason string, a classifier.SecurityAssessment, warnings []string) wireOutcome {
	w := wireOutcome{
		Success:           false,
		TerminationReason: supervisor.ReasonKilled,
		Reason:            reason,
		Warnings:          warnings,
		SecurityAssessment: a,
	}
	if w.Warnings == nil {
		w.Warnings = []string{}
	}
	return w
}
