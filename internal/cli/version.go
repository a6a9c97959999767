package cli

import (
	"runtime"

	"github.com/opsgate/slb-mcp-gateway/internal/dispatcher"
	"github.com/opsgate/slb-mcp-gateway/internal/output"
	"github.com/spf13/cobra"
)

// BuildCommit and BuildDate are set via -ldflags at release build time;
// they stay at their zero values for `go run`/dev builds.
var (
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the gateway version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := output.New(GetOutput())
		return out.Write(map[string]any{
			"version": dispatcher.Version,
			"commit":  BuildCommit,
			"date":    BuildDate,
			"go":      runtime.Version(),
			"os":      runtime.GOOS,
			"arch":    runtime.GOARCH,
		})
	},
}
