package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/slidesage/slidesage/internal/search"
	"github.com/slidesage/slidesage/internal/session"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that lets agents query slide sessions.
type Server struct {
	sessions *session.Manager
	engine   *search.Engine
	mcp      *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies.
func NewServer(sessions *session.Manager, engine *search.Engine) *Server {
	s := &Server{
		sessions: sessions,
		engine:   engine,
	}

	s.mcp = server.NewMCPServer(
		"slidesage",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(searchSessionTool, s.handleSearchSession)
	s.mcp.AddTool(sessionReadyTool, s.handleSessionReady)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
