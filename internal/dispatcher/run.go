package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/gate"
	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
	"github.com/opsgate/slb-mcp-gateway/internal/workdir"
)

// handleRun implements run-powershell and run-powershellscript: the single
// path every executed command takes through C7 -> C2 -> C4 -> C6 -> C5 -> C8
// (§4.9). Rejections before spawn still publish an attempt event so audit
// coverage does not depend on how far a request got.
func (d *Dispatcher) handleRun(tool string, arguments json.RawMessage, isScript bool) (any, *rpctransport.Error) {
	args, warnings, err := parseExecuteArgs(arguments, isScript)
	if err != nil {
		return nil, invalidParams(err.Error())
	}

	limit := d.limiter.Allow(d.clientID())
	if !limit.Allowed {
		a := classifier.SecurityAssessment{}
		d.publisher.Attempt(tool, ReasonRateLimited, a)
		out := rejectedOutcome(ReasonRateLimited, a, warnings)
		out.RetryAfterMs = limit.RetryAfterMs
		return out, nil
	}

	assessment := d.classifier.Classify(args.Command)

	flags := gate.CallerFlags{Confirmed: args.Confirmed, Override: args.Override}
	verdict := gate.Evaluate(assessment, flags, overrideLogger)

	switch verdict.Decision {
	case gate.DecisionBlocked:
		d.publisher.Attempt(tool, ReasonBlocked, assessment)
		return rejectedOutcome(ReasonBlocked, assessment, warnings), nil
	case gate.DecisionConfirmationRequired:
		d.publisher.Attempt(tool, ReasonConfirmationRequired, assessment)
		return rejectedOutcome(ReasonConfirmationRequired, assessment, warnings), nil
	}
	if args.Confirmed && assessment.RequiresConfirmation {
		d.publisher.ConfirmationConversion()
	}

	policy := d.currentPolicy()
	cwd, wdErr := policy.ResolveAndCheck(args.WorkingDirectory)
	if wdErr != nil {
		reason := ReasonWorkingDirNotFound
		if wdErr == workdir.ErrOutOfRoot {
			reason = ReasonWorkingDirOutOfRoot
		}
		d.publisher.Attempt(tool, reason, assessment)
		return rejectedOutcome(reason, assessment, warnings), nil
	}

	d.publisher.Attempt(tool, "", assessment)

	timeoutSec := args.AIAgentTimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = d.cfg.Limits.DefaultTimeoutMs / 1000
	}
	if max := d.cfg.Limits.MaxTimeoutSeconds; max > 0 && timeoutSec > max {
		timeoutSec = max
	}

	req := supervisor.Request{
		CommandText:         args.Command,
		Cwd:                 cwd,
		TimeoutSec:          timeoutSec,
		Adaptive:            args.adaptiveParams(),
		OverflowStrategy:    d.env.OverflowStrategy,
		MaxOutputKB:         d.cfg.Limits.MaxOutputKB,
		MaxLines:            d.cfg.Limits.MaxLines,
		ChunkKB:             d.cfg.Limits.ChunkKB,
		HardKillOnOverflow:  d.cfg.Limits.HardKillOnOverflow,
		DisableSelfDestruct: d.env.DisableSelfDestruct,
	}

	outcome := d.supervisor.Execute(context.Background(), req)
	d.publisher.Completion(tool, assessment, outcome)

	if d.db != nil && d.sessionID != "" {
		if recErr := d.db.RecordExecution(d.sessionID, tool, assessment, outcome); recErr != nil {
			log.Warn("dispatcher: failed to record execution journal entry", "err", recErr)
		}
	}

	return toWireOutcome(outcome, assessment, warnings, args.Command, cwd), nil
}
