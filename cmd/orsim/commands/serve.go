package commands

import (
	"github.com/spf13/cobra"

	"orsim/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve plan, simulate and replay tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

func serve(cmd *cobra.Command) error {
	h, err := loadHistory()
	if err != nil {
		return err
	}
	server := mcp.NewServer(h, *scenario, cfg, recorder, Version)
	return server.Serve(cmd.Context())
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
