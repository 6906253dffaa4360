package mcp

import (
	"orderdesk/internal/service"

	"github.com/mark3labs/mcp-go/server"
)

// Services are the operations exposed as tools.
type Services struct {
	Orders service.OrderService
	Menu   service.MenuService
	Reaper *service.Reaper
}

// NewOrderdeskMCPServer creates an MCP server with the staff tools registered.
func NewOrderdeskMCPServer(svc Services, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"orderdesk",
		version,
		server.WithToolCapabilities(true),
	)

	registerTools(s, svc)

	return s
}
