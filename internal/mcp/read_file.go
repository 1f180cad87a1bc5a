package mcp

import (
	"context"
	"path/filepath"

	"ngscope/internal/extract"
	"ngscope/internal/logging"
	"ngscope/internal/report"
	"ngscope/internal/scope"

	"github.com/mark3labs/mcp-go/mcp"
)

// ReadFileTool handles the read_file tool.
type ReadFileTool struct {
	root   *scope.Root
	logger *logging.AppLogger
}

// NewReadFileTool creates a ReadFileTool.
func NewReadFileTool(root *scope.Root, logger *logging.AppLogger) *ReadFileTool {
	return &ReadFileTool{root: root, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *ReadFileTool) Definition() mcp.Tool {
	return mcp.NewTool("read_file",
		mcp.WithDescription(
			"Read a project file. Only files inside the project root with an allowed "+
				"extension can be read. Markdown files also report their YAML frontmatter.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("filePath",
			mcp.Required(),
			mcp.Description("Path of the file, relative to the project root."),
		),
	)
}

// Handle processes the read_file tool call.
func (t *ReadFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := req.GetString("filePath", "")
	t.logger.LogToolCall("read_file", map[string]any{"filePath": filePath})

	content, abs, err := t.root.ReadFile(filePath)
	if err != nil {
		return toolError("cannot read file", err), nil
	}

	var meta map[string]any
	if filepath.Ext(abs) == ".md" {
		if meta, err = extract.Frontmatter(content); err != nil {
			t.logger.Debug("No valid frontmatter found", "file", filePath, "error", err)
		}
	}

	return mcp.NewToolResultText(report.FileContent(t.root.Relative(abs), content, meta)), nil
}
