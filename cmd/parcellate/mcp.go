package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpadapter "github.com/lunglab/parcellate/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long:  `Exposes resolution and hierarchy introspection as MCP tools, over stdio by default or SSE with --port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, _, _, err := setup(cmd, nil)
		if err != nil {
			return err
		}

		srv := mcpadapter.NewServer(engine)

		port, _ := cmd.Flags().GetInt("port")
		if port > 0 {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeSSE(ctx, port)
		}
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Int("port", 0, "Serve over SSE on this port instead of stdio")
}
