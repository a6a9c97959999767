package dispatcher

// toolSpec describes one entry of the fixed tool catalog (§6.2). ListTools
// and the `help`/`agent-prompts` auxiliary tools are both generated from
// this single slice so the three can never drift from each other.
type toolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"inputSchema"`
}

func schema(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

var catalog = []toolSpec{
	{
		Name:        "run-powershell",
		Description: "Classify and, if permitted, execute a PowerShell command under the supervised child-process pipeline.",
		InputSchema: schema(nil, map[string]any{
			"command":                map[string]any{"type": "string"},
			"workingDirectory":       map[string]any{"type": "string"},
			"aiAgentTimeoutSec":      map[string]any{"type": "integer"},
			"confirmed":              map[string]any{"type": "boolean"},
			"progressAdaptive":       map[string]any{"type": "boolean"},
			"adaptiveExtendWindowMs": map[string]any{"type": "integer"},
			"adaptiveExtendStepMs":   map[string]any{"type": "integer"},
			"adaptiveMaxTotalSec":    map[string]any{"type": "integer"},
			"override":               map[string]any{"type": "boolean"},
		}),
	},
	{
		Name:        "run-powershellscript",
		Description: "Classify and, if permitted, execute an inline or file-sourced PowerShell script.",
		InputSchema: schema(nil, map[string]any{
			"script":                 map[string]any{"type": "string"},
			"scriptFile":             map[string]any{"type": "string"},
			"workingDirectory":       map[string]any{"type": "string"},
			"aiAgentTimeoutSec":      map[string]any{"type": "integer"},
			"confirmed":              map[string]any{"type": "boolean"},
			"progressAdaptive":       map[string]any{"type": "boolean"},
			"adaptiveExtendWindowMs": map[string]any{"type": "integer"},
			"adaptiveExtendStepMs":   map[string]any{"type": "integer"},
			"adaptiveMaxTotalSec":    map[string]any{"type": "integer"},
			"override":               map[string]any{"type": "boolean"},
		}),
	},
	{
		Name:        "powershell-syntax-check",
		Description: "Parse-check a script or file without spawning it for execution.",
		InputSchema: schema(nil, map[string]any{
			"script":   map[string]any{"type": "string"},
			"filePath": map[string]any{"type": "string"},
		}),
	},
	{
		Name:        "working-directory-policy",
		Description: "Read or update the working-directory enforcement policy.",
		InputSchema: schema([]string{"action"}, map[string]any{
			"action":            map[string]any{"type": "string", "enum": []string{"get", "set"}},
			"enabled":           map[string]any{"type": "boolean"},
			"allowedWriteRoots": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}),
	},
	{
		Name:        "server-stats",
		Description: "Return the current audit/metrics snapshot.",
		InputSchema: schema(nil, map[string]any{
			"verbose": map[string]any{"type": "boolean"},
		}),
	},
	{
		Name:        "learn",
		Description: "List, queue, approve, or remove Learning Store candidates.",
		InputSchema: schema([]string{"action"}, map[string]any{
			"action":     map[string]any{"type": "string", "enum": []string{"list", "queue", "approve", "remove"}},
			"normalized": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		}),
	},
	{
		Name:        "threat-analysis",
		Description: "Classify a command without executing it.",
		InputSchema: schema([]string{"command"}, map[string]any{
			"command": map[string]any{"type": "string"},
		}),
	},
	{
		Name:        "agent-prompts",
		Description: "Return boilerplate usage guidance for agents consuming this gateway.",
		InputSchema: schema(nil, map[string]any{}),
	},
	{
		Name:        "emit-log",
		Description: "Record a caller-supplied structured log line in the server's log stream.",
		InputSchema: schema([]string{"level", "message"}, map[string]any{
			"level":   map[string]any{"type": "string", "enum": []string{"debug", "info", "warn", "error"}},
			"message": map[string]any{"type": "string"},
		}),
	},
	{
		Name:        "help",
		Description: "Return the tool catalog with descriptions and argument shapes.",
		InputSchema: schema(nil, map[string]any{}),
	},
	{
		Name:        "ai-agent-tests",
		Description: "Return a fixed set of example command/expected-tier pairs agents can use to self-test classification expectations.",
		InputSchema: schema(nil, map[string]any{}),
	},
}
