package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ngscope/internal/config"
	"ngscope/internal/logging"
	"ngscope/internal/scope"
	"ngscope/internal/search"
	"ngscope/internal/usage"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ServerName is reported to clients during initialization.
const ServerName = "ngscope"

// Tool is one MCP tool: its schema and its handler.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Server represents an MCP server instance using mcp-go
type Server struct {
	config    *config.Config
	logger    *logging.AppLogger
	version   string
	root      *scope.Root
	tools     []Tool
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, logger *logging.AppLogger, version string) *Server {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Server{
		config:  cfg,
		logger:  logger,
		version: version,
	}
}

// Init freezes the scan root and registers every tool. It is called by
// Start and may be called earlier to fail fast on a bad configuration.
func (s *Server) Init() error {
	if s.mcpServer != nil {
		return nil
	}
	if s.config == nil {
		return errors.New("server has no configuration")
	}

	root, err := scope.FromConfig(s.config)
	if err != nil {
		return fmt.Errorf("failed to open project root: %w", err)
	}
	s.root = root

	engine := search.NewEngine(root, s.config.SearchLimit, s.logger)
	builder := usage.NewBuilder(root, s.config.Categories, s.logger)

	s.tools = []Tool{
		NewSearchCodeTool(engine, s.logger),
		NewReadFileTool(root, s.logger),
		NewComponentUsageTool(builder, s.logger),
		NewFileStructureTool(root, s.logger),
		NewListComponentsTool(builder, s.logger),
		NewListServicesTool(builder, s.logger),
	}

	s.mcpServer = server.NewMCPServer(
		ServerName,
		s.version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions(root.Path())),
	)
	for _, t := range s.tools {
		s.mcpServer.AddTool(t.Definition(), t.Handle)
	}

	s.logger.Info("MCP server initialized", "root", root.Path(), "tools", len(s.tools))
	return nil
}

// Start initializes and serves the MCP protocol over stdin/stdout until ctx
// is cancelled or the client closes stdin.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Init(); err != nil {
		return err
	}

	s.logger.Info("Starting MCP server on stdio", "version", s.version)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(s.logger.StandardLog())

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the MCP server
func (s *Server) Stop() error {
	s.logger.Info("Stopping MCP server")
	// Listen returns once the context passed to Start is cancelled.
	return nil
}

// Root returns the frozen scan root, or nil before Init.
func (s *Server) Root() *scope.Root {
	return s.root
}

// MCPServer returns the underlying mcp-go server, or nil before Init.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func serverInstructions(root string) string {
	return "ngscope answers questions about the Angular project at " + root + ". " +
		"Use search_code to find text, read_file to view a file, extract_file_structure " +
		"for a summary of imports, exports and methods, and analyze_component_usage to " +
		"see where components are used. Paths are relative to the project root; " +
		"files outside it are never read."
}

// toolError converts an engine or guard failure into a tool-level error
// result that the client can show to the model.
func toolError(action string, err error) *mcp.CallToolResult {
	var msg string
	switch {
	case errors.Is(err, scope.ErrOutOfScope):
		msg = fmt.Sprintf("%s: access denied, %v", action, err)
	case errors.Is(err, scope.ErrDisallowedType):
		msg = fmt.Sprintf("%s: file type not allowed, %v", action, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		msg = fmt.Sprintf("%s: cancelled", action)
	default:
		msg = fmt.Sprintf("%s: %v", action, err)
	}
	return mcp.NewToolResultError(msg)
}
