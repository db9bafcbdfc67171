// Package mcp exposes the calendar controller as Model Context Protocol tools
// so an agent can read a user's schedule and record progress.
package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/julianstephens/cadence/internal/constants"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/logger"
)

// Server wraps the MCP server with the controller it drives.
type Server struct {
	mcpServer *mcp.Server
	ctrl      *controller.Controller
}

// NewServer creates an MCP server backed by a loaded controller.
func NewServer(ctrl *controller.Controller) (*Server, error) {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    constants.AppName,
			Version: constants.Version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		ctrl:      ctrl,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve runs the server over stdio until ctx is cancelled or the client hangs up.
func (s *Server) Serve(ctx context.Context) error {
	logger.Info("Starting MCP server", "transport", "stdio")
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
