package cmd

import (
	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/mcpserver"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the query and extraction tools over MCP on stdio",
	Long: `Mcp exposes find_nodes, validate, serialize and extract as MCP tools.
When the profile directory loads, a resolve tool is added as well.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tools := &mcpserver.Tools{RootSelector: cfg.Snapshot.RootSelector}
		if eng, err := engine.LoadDir(cfg.Profiles.Dir); err != nil {
			logger.Warn("profiles not loaded, resolve tool disabled", "dir", cfg.Profiles.Dir, "error", err)
		} else {
			tools.Resolver = eng
		}
		return mcpserver.ServeStdio(mcpserver.New(version, tools))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
