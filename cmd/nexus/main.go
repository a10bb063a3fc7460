// Package main provides the CLI entry point for the agent runtime.
//
// nexus wires an LLM provider, a tool registry, and the turn engine into a
// DirectAgentHandle and runs a single task to completion, printing the
// streamed event log as it happens.
//
// # Basic usage
//
//	nexus run --prompt "what's 2+2?"
//	nexus run --prompt "summarize this repo" --react --max-turns 4
//
// # Environment variables
//
//   - VENICE_API_KEY: Venice AI API key (required)
//   - NEXUS_MODEL: model id to request (optional, provider default otherwise)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nexus",
		Short:        "nexus runs tasks through the agent turn engine",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(buildRunCmd())
	return rootCmd
}
