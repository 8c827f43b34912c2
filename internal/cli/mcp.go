package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yolodolo42/sitepilot/internal/agent"
	"github.com/yolodolo42/sitepilot/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the site tools over MCP (stdio)",
	Long: `Run a Model Context Protocol server on stdin/stdout so external agents can
read and edit the site with the same tools sitepilot's own agent uses.

Writes are audited with agent name "mcp". Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		repo, err := openRepo(context.Background(), cfg)
		if err != nil {
			return err
		}
		defer repo.Close()

		registry := agent.NewRegistry(agent.Deps{
			Repo:      repo,
			AgentName: "mcp",
			Logger:    slog.Default(),
		})
		return mcpserver.New(registry, Version, slog.Default()).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
