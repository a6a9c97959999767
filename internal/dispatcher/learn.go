package dispatcher

import (
	"encoding/json"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
)

type learnArgs struct {
	Action     string   `json:"action"`
	Normalized []string `json:"normalized"`
	Source     string   `json:"source"`
}

// handleLearn implements the `learn` tool (§6.2): list/queue/approve/remove
// against the Learning Store (C3). Queue also accepts a raw command text and
// normalizes it itself, so an agent can queue the exact string it attempted.
func (d *Dispatcher) handleLearn(arguments json.RawMessage) (any, *rpctransport.Error) {
	var args learnArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return nil, invalidParams(err.Error())
	}
	if args.Source == "" {
		args.Source = "agent"
	}

	switch args.Action {
	case "list":
		return map[string]any{"candidates": d.learning.ListQueue()}, nil

	case "queue":
		if len(args.Normalized) == 0 {
			return nil, invalidParams("normalized[] is required for action=queue")
		}
		added, skipped := 0, 0
		for _, raw := range args.Normalized {
			n := classifier.Normalize(raw)
			result, err := d.learning.Queue(n, args.Source)
			if err != nil {
				return nil, internalErr("queueing candidate: %v", err)
			}
			added += result.Added
			skipped += result.Skipped
		}
		return map[string]any{"added": added, "skipped": skipped}, nil

	case "approve":
		if len(args.Normalized) == 0 {
			return nil, invalidParams("normalized[] is required for action=approve")
		}
		result, err := d.learning.Approve(args.Normalized, args.Source)
		if err != nil {
			return nil, internalErr("approving candidates: %v", err)
		}
		return result, nil

	case "remove":
		if len(args.Normalized) == 0 {
			return nil, invalidParams("normalized[] is required for action=remove")
		}
		if err := d.learning.Remove(args.Normalized); err != nil {
			return nil, internalErr("removing candidates: %v", err)
		}
		return map[string]any{"removed": len(args.Normalized)}, nil

	default:
		return nil, invalidParams("action must be one of list, queue, approve, remove")
	}
}
