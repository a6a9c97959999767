// Command slb-mcp-gateway is the entrypoint: a thin wrapper around
// internal/cli.Execute, following the standard cobra main() shape used
// throughout the pack (a root command owns flag parsing and
// subcommand dispatch; main just reports the final error).
package main

import (
	"fmt"
	"os"

	"github.com/opsgate/slb-mcp-gateway/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
