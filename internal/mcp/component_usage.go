package mcp

import (
	"context"
	"time"

	"ngscope/internal/logging"
	"ngscope/internal/report"
	"ngscope/internal/usage"

	"github.com/mark3labs/mcp-go/mcp"
)

// ComponentUsageTool handles analyze_component_usage. Every call runs a full
// discovery and usage scan; nothing is cached between calls.
type ComponentUsageTool struct {
	builder *usage.Builder
	logger  *logging.AppLogger
}

// NewComponentUsageTool creates a ComponentUsageTool.
func NewComponentUsageTool(builder *usage.Builder, logger *logging.AppLogger) *ComponentUsageTool {
	return &ComponentUsageTool{builder: builder, logger: logger}
}

// Definition returns the MCP tool definition for registration.
func (t *ComponentUsageTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_component_usage",
		mcp.WithDescription(
			"Find every component declared in *.component.ts files and where each one is used: "+
				"as a tag in templates, in ES module imports and in standalone imports arrays. "+
				"Components are ordered by usage count, most used first.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("component",
			mcp.Description("Only report components whose class name or selector contains this text, ignoring case."),
		),
		mcp.WithString("groupBy",
			mcp.Description("Group components by folder category or list them together."),
			mcp.Enum(report.GroupByCategory, report.GroupByNone),
			mcp.DefaultString(report.GroupByCategory),
		),
		mcp.WithBoolean("showUnused",
			mcp.Description("List components that have no usages."),
			mcp.DefaultBool(true),
		),
	)
}

// Handle processes the analyze_component_usage tool call.
func (t *ComponentUsageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	defer t.logger.LogPerformance("analyze_component_usage", start)

	component := req.GetString("component", "")
	groupBy := req.GetString("groupBy", report.GroupByCategory)
	showUnused := req.GetBool("showUnused", true)
	t.logger.LogToolCall("analyze_component_usage", map[string]any{
		"component": component, "groupBy": groupBy, "showUnused": showUnused,
	})

	if groupBy != report.GroupByCategory && groupBy != report.GroupByNone {
		return mcp.NewToolResultError("groupBy must be \"category\" or \"none\", got " + groupBy), nil
	}

	components, err := t.builder.Build(ctx, usage.Options{Component: component})
	if err != nil {
		return toolError("component analysis failed", err), nil
	}

	return mcp.NewToolResultText(report.ComponentUsage(components, groupBy, showUnused)), nil
}
