package mcp

import (
	"context"
	"strconv"
	"time"

	"ngscope/internal/logging"
	"ngscope/internal/report"
	"ngscope/internal/search"

	"github.com/mark3labs/mcp-go/mcp"
)

// SearchCodeTool handles the search_code tool.
type SearchCodeTool struct {
	engine *search.Engine
	logger *logging.AppLogger
}

// NewSearchCodeTool creates a SearchCodeTool.
func NewSearchCodeTool(engine *search.Engine, logger *logging.AppLogger) *SearchCodeTool {
	return &SearchCodeTool{engine: engine, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *SearchCodeTool) Definition() mcp.Tool {
	return mcp.NewTool("search_code",
		mcp.WithDescription(
			"Search project files for a literal, case-insensitive substring. "+
				"Each result is one matching line with two lines of context on each side. "+
				"At most "+strconv.Itoa(t.engine.Limit())+" matches are returned; dependency, build "+
				"and hidden directories are never searched.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Text to look for. Matched literally, ignoring case."),
		),
		mcp.WithArray("fileTypes",
			mcp.Description("File suffixes to search, e.g. [\".ts\", \".html\"]. Defaults to every allowed type."),
			mcp.WithStringItems(),
		),
		mcp.WithString("directory",
			mcp.Description("Subdirectory to search, relative to the project root. Defaults to the whole project."),
		),
	)
}

// Handle processes the search_code tool call.
func (t *SearchCodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer t.logger.LogPerformance("search_code", start)

	sreq := search.Request{
		Query:     req.GetString("query", ""),
		Directory: req.GetString("directory", ""),
		FileTypes: req.GetStringSlice("fileTypes", nil),
	}
	t.logger.LogToolCall("search_code", map[string]any{
		"query": sreq.Query, "directory": sreq.Directory, "fileTypes": sreq.FileTypes,
	})

	res, err := t.engine.Search(ctx, sreq)
	if err != nil {
		return toolError("search failed", err), nil
	}

	total, err := t.engine.CountSearchableFiles(ctx, sreq.Directory, sreq.FileTypes)
	if err != nil {
		t.logger.Debug("Counting searchable files failed", "error", err)
		total = -1
	}

	return mcp.NewToolResultText(report.SearchResults(res, total)), nil
}
