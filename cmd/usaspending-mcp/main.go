// Package main is the entry point for the usaspending-mcp CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "usaspending-mcp",
	Short: "MCP server for USAspending.gov award search",
	Long: `An MCP (Model Context Protocol) server exposing search over
USAspending.gov federal grant and financial assistance data.
Run "serve" to speak MCP over stdio, or "search" for a one-shot query.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
