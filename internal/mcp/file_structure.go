package mcp

import (
	"context"

	"ngscope/internal/extract"
	"ngscope/internal/logging"
	"ngscope/internal/report"
	"ngscope/internal/scope"

	"github.com/mark3labs/mcp-go/mcp"
)

// FileStructureTool handles extract_file_structure.
type FileStructureTool struct {
	root   *scope.Root
	logger *logging.AppLogger
}

// NewFileStructureTool creates a FileStructureTool.
func NewFileStructureTool(root *scope.Root, logger *logging.AppLogger) *FileStructureTool {
	return &FileStructureTool{root: root, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *FileStructureTool) Definition() mcp.Tool {
	return mcp.NewTool("extract_file_structure",
		mcp.WithDescription(
			"Summarize a TypeScript or template file: imports, exports, interfaces and types, "+
				"methods, injected dependencies and referenced components. The summary is "+
				"pattern based and may miss unusual formatting.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("filePath",
			mcp.Required(),
			mcp.Description("Path of the file, relative to the project root."),
		),
		mcp.WithString("fileKind",
			mcp.Description("Which rules to run. Guessed from the file name when omitted; other kinds yield an empty summary."),
			mcp.Enum(string(extract.KindScript), string(extract.KindTemplate), string(extract.KindInterface)),
		),
	)
}

// Handle processes the extract_file_structure tool call.
func (t *FileStructureTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath := req.GetString("filePath", "")
	requested := req.GetString("fileKind", "")
	t.logger.LogToolCall("extract_file_structure", map[string]any{"filePath": filePath, "fileKind": requested})

	content, abs, err := t.root.ReadFile(filePath)
	if err != nil {
		return toolError("cannot extract structure", err), nil
	}

	kind := extract.ResolveKind(requested, abs)
	if !kind.Known() {
		t.logger.Debug("No extraction rules for file kind", "file", filePath, "kind", kind)
	}

	summary := extract.ExtractKind(string(content), kind)
	return mcp.NewToolResultText(report.Structure(t.root.Relative(abs), kind, summary)), nil
}
