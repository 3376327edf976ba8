package main

import (
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect and call the configured tool servers",
	Long: `Commands for working with the tool servers configured under tool_servers.

Tool servers are subprocesses speaking newline-delimited JSON; their tools
become callable from action code under the name <server>_<tool>.`,
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
	rootCmd.AddCommand(toolsCmd)
}
