package cli

import (
	"fmt"
	"sort"

	"github.com/opsgate/slb-mcp-gateway/internal/output"
	"github.com/opsgate/slb-mcp-gateway/internal/store"
	"github.com/spf13/cobra"
)

var flagStatsLimit int

func init() {
	statsCmd.Flags().IntVar(&flagStatsLimit, "limit", 20, "max recent executions to show")
}

// statsCmd reports on the durable execution journal (internal/store), the
// CLI-facing complement to the `server-stats` MCP tool (§6.2): that tool
// reports the live in-process metrics.Registry of a running `serve`
// process, while this command reads the sqlite journal so an operator can
// inspect history after the gateway has exited, grounded on the teacher's
// history.go/status.go pattern of opening the journal db directly from a
// cobra RunE.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show execution history from the durable journal",
	Long: `Show recent executions recorded in the session/execution journal
(~/.slb-mcp-gateway/history.db by default, or --db).

This reads the durable journal written by a running "serve" process; for
live in-process counters from a currently running gateway, use the
"server-stats" MCP tool instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := GetDB()
		if dbPath == "" {
			return fmt.Errorf("no journal database configured (set --db or SLB_MCP_DB_PATH)")
		}
		db, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening journal database: %w", err)
		}
		defer db.Close()

		summary, err := summarizeJournal(db, flagStatsLimit)
		if err != nil {
			return err
		}

		out := output.New(GetOutput())
		if GetOutput() == output.FormatText {
			fmt.Printf("Total executions: %d\n", summary.Total)
			fmt.Printf("Blocked:          %d\n", summary.Blocked)
			fmt.Printf("Confirmation req: %d\n", summary.ConfirmationRequired)
			fmt.Println("By tier:")
			for tier, n := range summary.ByTier {
				fmt.Printf("  %-10s %d\n", tier, n)
			}
			fmt.Println("Recent:")
			for _, rec := range summary.Recent {
				fmt.Printf("  [%s] %s tier=%s termination=%s duration=%dms\n",
					rec.RecordedAt.Format("2006-01-02 15:04:05"), rec.NormalizedCommand, rec.Tier, rec.TerminationReason, rec.DurationMs)
			}
			return nil
		}
		return out.Write(summary)
	},
}

type journalSummary struct {
	Total                int                      `json:"total"`
	Blocked              int                      `json:"blocked"`
	ConfirmationRequired int                      `json:"confirmationRequired"`
	ByTier               map[string]int           `json:"byTier"`
	Recent               []*store.ExecutionRecord `json:"recent"`
}

// summarizeJournal aggregates across every session in the journal; the
// store package's ListExecutions is scoped to one session (the shape the
// dispatcher needs at runtime), so this queries the shared sessions list
// and folds per-session history into one view.
func summarizeJournal(db *store.DB, limit int) (*journalSummary, error) {
	summary := &journalSummary{ByTier: make(map[string]int)}

	sessions, err := db.ListAllSessions()
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	seen := make(map[string]bool)
	var allRecords []*store.ExecutionRecord
	for _, s := range sessions {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		recs, err := db.ListExecutions(s.ID, 0)
		if err != nil {
			return nil, fmt.Errorf("listing executions for session %s: %w", s.ID, err)
		}
		allRecords = append(allRecords, recs...)
	}

	for _, rec := range allRecords {
		summary.Total++
		summary.ByTier[rec.Tier]++
		if rec.Blocked {
			summary.Blocked++
		}
		if rec.ConfirmationRequired {
			summary.ConfirmationRequired++
		}
	}

	sort.Slice(allRecords, func(i, j int) bool {
		return allRecords[i].RecordedAt.After(allRecords[j].RecordedAt)
	})

	if limit <= 0 || limit > len(allRecords) {
		limit = len(allRecords)
	}
	summary.Recent = allRecords[:limit]
	return summary, nil
}
