// Package mcp exposes the place search as a Model Context Protocol tool.
package mcp

import (
	"context"
	"errors"

	"github.com/aimaps/maps-relay/internal/relay"
	"github.com/aimaps/maps-relay/internal/tools"
	"github.com/aimaps/maps-relay/internal/version"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// ServerName is reported to MCP clients during initialize.
const ServerName = "maps-relay"

// PlaceFinder runs a search and renders the markdown reply.
type PlaceFinder interface {
	SearchEnabled() bool
	SearchPlaces(ctx context.Context, query string) (relay.Result, error)
}

// Server wraps an MCP server with search_places registered.
type Server struct {
	srv    *server.MCPServer
	finder PlaceFinder
	logger *logrus.Entry
}

// NewServer wires finder into a new MCP server.
func NewServer(logger *logrus.Entry, finder PlaceFinder) *Server {
	s := &Server{
		srv: server.NewMCPServer(
			ServerName,
			version.Get().Version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
		finder: finder,
		logger: logger,
	}
	s.srv.AddTool(searchPlacesTool(), s.handleSearchPlaces)
	return s
}

// MCPServer returns the underlying server for transports other than stdio.
func (s *Server) MCPServer() *server.MCPServer { return s.srv }

// Run serves MCP over stdin/stdout until the input closes.
func (s *Server) Run() error {
	s.logger.Info("serving MCP over stdio")
	return server.ServeStdio(s.srv)
}

func searchPlacesTool() mcpgo.Tool {
	return mcpgo.NewTool(tools.SearchPlacesName,
		mcpgo.WithDescription(tools.SearchPlacesDescription),
		mcpgo.WithString("query",
			mcpgo.Required(),
			mcpgo.Description(tools.QueryDescription),
		),
	)
}

func (s *Server) handleSearchPlaces(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	if !s.finder.SearchEnabled() {
		return mcpgo.NewToolResultError(relay.MessageMissingKey), nil
	}
	query := mcpgo.ParseString(req, "query", "")
	res, err := s.finder.SearchPlaces(ctx, query)
	switch {
	case errors.Is(err, relay.ErrMissingQuery):
		return mcpgo.NewToolResultError("query is required"), nil
	case err != nil:
		s.logger.WithField("query", query).Errorf("search failed: %v", err)
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	return mcpgo.NewToolResultText(res.Content), nil
}
