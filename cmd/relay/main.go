// Command relay is a thin wiring demonstration for the agent reply loop:
// it loads a configuration file, constructs a provider and a system
// registry (optionally backed by MCP servers), and either runs one
// interactive reply loop over stdin/stdout or lists the tools an MCP
// server advertises.
//
// This is not a production CLI. Argument parsing beyond what's needed to
// exercise the core packages is out of scope; see run.go and mcp.go for
// the two commands it supports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "relay:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "relay",
		Short: "Minimal wiring demonstration for the relay agent loop",
	}
	root.AddCommand(buildRunCmd(), buildMCPCmd())
	return root
}
