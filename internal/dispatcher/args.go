package dispatcher

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
)

// executeArgs is the parsed, normalized argument shape shared by
// `run-powershell` and `run-powershellscript` (§6.2). Deprecated aliases
// (`timeout`, `aiAgentTimeout`) are folded into AIAgentTimeoutSec here, at
// the Dispatcher boundary, with a warning recorded for the caller (§4.9).
type executeArgs struct {
	Command    string `json:"command"`
	Script     string `json:"script"`
	ScriptFile string `json:"scriptFile"`

	WorkingDirectory string `json:"workingDirectory"`

	AIAgentTimeoutSec int64 `json:"aiAgentTimeoutSec"`
	TimeoutDeprecated int64 `json:"timeout"`
	AIAgentTimeoutDep int64 `json:"aiAgentTimeout"`

	Confirmed bool `json:"confirmed"`
	Override  bool `json:"override"`

	ProgressAdaptive       bool  `json:"progressAdaptive"`
	AdaptiveExtendWindowMs int64 `json:"adaptiveExtendWindowMs"`
	AdaptiveExtendStepMs   int64 `json:"adaptiveExtendStepMs"`
	AdaptiveMaxTotalSec    int64 `json:"adaptiveMaxTotalSec"`
}

// parseExecuteArgs parses and normalizes arguments for a run-powershell*
// call. isScript selects `script`/`scriptFile` (run-powershellscript) over
// `command` (run-powershell); a scriptFile is inlined before classification
// per §6.2 so the classifier sees the actual script text.
func parseExecuteArgs(raw json.RawMessage, isScript bool) (executeArgs, []string, error) {
	var a executeArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return executeArgs{}, nil, fmt.Errorf("invalid arguments: %w", err)
	}

	var warnings []string

	commandText := a.Command
	if isScript {
		commandText = a.Script
		if a.ScriptFile != "" {
			contents, err := os.ReadFile(a.ScriptFile)
			if err != nil {
				return executeArgs{}, nil, fmt.Errorf("reading scriptFile: %w", err)
			}
			commandText = string(contents)
		}
	}
	if commandText == "" {
		if isScript {
			return executeArgs{}, nil, fmt.Errorf("one of script or scriptFile is required")
		}
		return executeArgs{}, nil, fmt.Errorf("command is required")
	}
	a.Command = commandText

	if a.AIAgentTimeoutSec == 0 {
		switch {
		case a.AIAgentTimeoutDep != 0:
			a.AIAgentTimeoutSec = a.AIAgentTimeoutDep
			warnings = append(warnings, "aiAgentTimeout is deprecated; use aiAgentTimeoutSec")
		case a.TimeoutDeprecated != 0:
			a.AIAgentTimeoutSec = a.TimeoutDeprecated
			warnings = append(warnings, "timeout is deprecated; use aiAgentTimeoutSec")
		}
	}

	return a, warnings, nil
}

// adaptiveParams builds supervisor.AdaptiveParams from the caller's
// progressAdaptive flags, using zero values (resolved to defaults by
// supervisor.AdaptiveParams.ResolveMaxTotalSec) when unset.
func (a executeArgs) adaptiveParams() supervisor.AdaptiveParams {
	return supervisor.AdaptiveParams{
		Enabled:        a.ProgressAdaptive,
		ExtendWindowMs: a.AdaptiveExtendWindowMs,
		ExtendStepMs:   a.AdaptiveExtendStepMs,
		MaxTotalSec:    a.AdaptiveMaxTotalSec,
	}
}
