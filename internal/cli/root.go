// Package cli implements the Cobra command-line interface for
// slb-mcp-gateway: `serve` runs the JSON-RPC gateway, `patterns export`
// dumps the merged pattern set, `version` prints build info, and `stats`
// reports on the durable execution journal.
package cli

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/opsgate/slb-mcp-gateway/internal/output"
	"github.com/spf13/cobra"
)

var (
	flagConfig  string
	flagOutput  string
	flagProject string
	flagDB      string
)

var rootCmd = &cobra.Command{
	Use:   "slb-mcp-gateway",
	Short: "A security-enforced PowerShell execution gateway for AI agents",
	Long: `slb-mcp-gateway exposes a small, fixed set of MCP tools that let an AI
agent run PowerShell commands under supervision: every command is classified
by severity tier, risky commands require explicit confirmation, dangerous
ones are rejected (an override flag is logged and ignored), and everything
is audited.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to enterprise-config.json (overrides the user-level config)")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "output format for CLI-facing commands: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&flagProject, "project", "", "project directory to read .slb-mcp-gateway/enterprise-config.json from")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the session/execution journal sqlite database")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statsCmd)
}

// Execute runs the root command; cmd/slb-mcp-gateway's main is a thin
// wrapper around this.
func Execute() error {
	return rootCmd.Execute()
}

// GetOutput resolves the output format, flag over environment over default,
// matching the teacher's flag>env>default precedence for presentation-only
// settings (security/limits config goes through internal/config instead).
func GetOutput() output.Format {
	if flagOutput != "" {
		return output.Format(flagOutput)
	}
	if v := os.Getenv("SLB_MCP_OUTPUT_FORMAT"); v != "" {
		return output.Format(v)
	}
	return output.FormatText
}

// GetDB resolves the journal database path: the --db flag, else
// SLB_MCP_DB_PATH, else a project-relative `.slb-mcp-gateway/state.db` if
// --project is set, else `~/.slb-mcp-gateway/history.db`.
func GetDB() string {
	if flagDB != "" {
		return flagDB
	}
	if v := os.Getenv("SLB_MCP_DB_PATH"); v != "" {
		return v
	}
	if flagProject != "" {
		return filepath.Join(flagProject, ".slb-mcp-gateway", "state.db")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".slb-mcp-gateway", "history.db")
	}
	return ""
}

// GetActor identifies who/what is invoking the CLI, for session binding:
// SLB_ACTOR, then AGENT_NAME, then "$USER@$(hostname)".
func GetActor() string {
	if v := os.Getenv("SLB_ACTOR"); v != "" {
		return v
	}
	if v := os.Getenv("AGENT_NAME"); v != "" {
		return v
	}
	uname := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		uname = u.Username
	}
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s@%s", uname, host)
}
