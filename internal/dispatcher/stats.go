package dispatcher

import (
	"encoding/json"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
)

type serverStatsArgs struct {
	Verbose bool `json:"verbose"`
}

// handleServerStats implements `server-stats` (§6.2): the same Snapshot the
// HTTP `/api/metrics` surface exposes, with an optional human-readable
// rendering for verbose agent consumption.
func (d *Dispatcher) handleServerStats(arguments json.RawMessage) (any, *rpctransport.Error) {
	var args serverStatsArgs
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, invalidParams(err.Error())
		}
	}

	snap := d.publisher.Registry().Snapshot()
	result := map[string]any{"stats": snap}
	if args.Verbose {
		result["summary"] = verboseSummary(snap.Attempts, snap.Executions, snap.AverageDurationMs, snap.P95DurationMs)
	}
	return result, nil
}

// verboseSummary renders count/duration figures the way an agent transcript
// reads best, mirroring the teacher's humanize-backed CLI output.
func verboseSummary(attempts, executions int64, avgMs, p95Ms float64) string {
	avg := time.Duration(avgMs * float64(time.Millisecond))
	p95 := time.Duration(p95Ms * float64(time.Millisecond))
	return humanize.Comma(attempts) + " attempts, " + humanize.Comma(executions) + " executions, avg " +
		avg.Round(time.Millisecond).String() + ", p95 " + p95.Round(time.Millisecond).String()
}
