package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/providers/venice"
	"github.com/haasonsaas/nexus/pkg/models"
)

func buildRunCmd() *cobra.Command {
	var (
		prompt       string
		systemPrompt string
		model        string
		react        bool
		maxTurns     int
		stream       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a single task through a direct agent handle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return fmt.Errorf("--prompt is required")
			}

			apiKey := os.Getenv("VENICE_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("VENICE_API_KEY is required")
			}

			provider, err := venice.NewVeniceProvider(venice.VeniceConfig{
				APIKey:       apiKey,
				DefaultModel: model,
			})
			if err != nil {
				return fmt.Errorf("construct provider: %w", err)
			}

			config := agent.BasicTurnEngineConfig()
			if react {
				config = agent.ReActTurnEngineConfig(maxTurns)
			}

			handle, err := agent.NewAgentBuilder().
				WithLLM(provider).
				WithConfig(config).
				WithAgentConfig(agent.AgentConfig{Name: "nexus-cli"}).
				Build()
			if err != nil {
				return fmt.Errorf("build agent: %w", err)
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			task := models.NewTask(prompt)
			if systemPrompt != "" {
				task = task.WithSystemPrompt(systemPrompt)
			}

			if stream {
				return runStreaming(ctx, handle, task)
			}
			return runOnce(ctx, handle, task)
		},
	}

	cmd.Flags().StringVar(&prompt, "prompt", "", "user prompt to run (required)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt override")
	cmd.Flags().StringVar(&model, "model", "", "model id (provider default if empty)")
	cmd.Flags().BoolVar(&react, "react", false, "use the multi-turn tool-using profile instead of the single-turn profile")
	cmd.Flags().IntVar(&maxTurns, "max-turns", 6, "max turns for --react")
	cmd.Flags().BoolVar(&stream, "stream", false, "stream the response instead of waiting for completion")

	return cmd
}

func runOnce(ctx context.Context, handle *agent.DirectAgentHandle, task models.Task) error {
	out, err := handle.Run(ctx, task)
	if err != nil {
		return err
	}
	fmt.Println(out.Response.Content)
	return nil
}

func runStreaming(ctx context.Context, handle *agent.DirectAgentHandle, task models.Task) error {
	for delta := range handle.RunStream(ctx, task) {
		switch delta.Kind {
		case agent.DeltaText:
			fmt.Print(delta.Text)
		case agent.DeltaToolResults:
			for _, r := range delta.ToolResults {
				fmt.Fprintf(os.Stderr, "\n[tool %s success=%v]\n", r.ToolName, r.Success)
			}
		case agent.DeltaDone:
			fmt.Println()
			if delta.Err != nil {
				return delta.Err
			}
		}
	}
	return nil
}
