package dispatcher

import (
	"encoding/json"

	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
)

type workdirPolicyArgs struct {
	Action            string   `json:"action"`
	Enabled           *bool    `json:"enabled"`
	AllowedWriteRoots []string `json:"allowedWriteRoots"`
}

// handleWorkdirPolicy implements `working-directory-policy` (§6.2): reading
// or runtime-mutating the in-process workdir.Policy. Mutations are
// process-lifetime only; they do not rewrite the configuration file, so a
// restart reverts to the file's configured policy.
func (d *Dispatcher) handleWorkdirPolicy(arguments json.RawMessage) (any, *rpctransport.Error) {
	var args workdirPolicyArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, invalidParams(err.Error())
	}

	switch args.Action {
	case "get", "":
		p := d.currentPolicy()
		return map[string]any{"enforce": p.Enforce, "allowedWriteRoots": p.AllowedWriteRoots}, nil

	case "set":
		d.policyMu.Lock()
		if args.Enabled != nil {
			d.policy.Enforce = *args.Enabled
		}
		if args.AllowedWriteRoots != nil {
			d.policy.AllowedWriteRoots = args.AllowedWriteRoots
		}
		updated := d.policy
		d.policyMu.Unlock()
		return map[string]any{"enforce": updated.Enforce, "allowedWriteRoots": updated.AllowedWriteRoots}, nil

	default:
		return nil, invalidParams("action must be one of get, set")
	}
}
