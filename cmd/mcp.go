package cmd

import (
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/codereview/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets MCP clients request reviews and browse history. Configure
the client with:

  {
    "mcpServers": {
      "codereview": { "command": "codereview", "args": ["mcp"] }
    }
  }

Available tools: review_code, list_reviews, get_review`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command) error {
	svc, s, err := newService()
	if err != nil {
		return err
	}
	if !svc.Available() {
		ui.Warning("No Anthropic API key configured; review_code will report an error")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
	defer stop()

	return mcp.NewServer(svc, s, buildVersion).ServeStdio(ctx)
}
