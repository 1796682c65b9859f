package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mcpfuzz %s (commit: %s)\n", version, commit)
		fmt.Fprintf(cmd.OutOrStdout(), "protocol %s, %s %s/%s\n", mcp.ProtocolVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
