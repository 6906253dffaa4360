package cli

import (
	mcpadapter "orderdesk/internal/mcp"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the orderdesk MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(opts))
	return cmd
}

func newMCPServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the orderdesk MCP server (stdio)",
		Long:  "Start the MCP server over stdio so assistants can read menus and orders, move orders along and expire stale ones.",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol
			a, err := newApp(cmd.Context(), opts, quietLogs)
			if err != nil {
				return err
			}
			defer a.Close()

			s := mcpadapter.NewOrderdeskMCPServer(mcpadapter.Services{
				Orders: a.orders,
				Menu:   a.menu,
				Reaper: a.reaper,
			}, version)
			return server.ServeStdio(s)
		},
	}
}
