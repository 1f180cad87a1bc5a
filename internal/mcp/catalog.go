package mcp

import (
	"context"
	"fmt"

	"ngscope/internal/logging"
	"ngscope/internal/report"
	"ngscope/internal/usage"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListComponentsTool handles list_components: discovery without the usage scan.
type ListComponentsTool struct {
	builder *usage.Builder
	logger  *logging.AppLogger
}

func NewListComponentsTool(builder *usage.Builder, logger *logging.AppLogger) *ListComponentsTool {
	return &ListComponentsTool{builder: builder, logger: logger}
}

func (t *ListComponentsTool) Definition() mcp.Tool {
	categories := make([]string, len(usage.Categories))
	for i, c := range usage.Categories {
		categories[i] = string(c)
	}
	return mcp.NewTool("list_components",
		mcp.WithDescription("List the components declared in the project with their selectors and categories."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("category",
			mcp.Description("Only list components in this category."),
			mcp.Enum(categories...),
		),
	)
}

func (t *ListComponentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	t.logger.LogToolCall("list_components", map[string]any{"category": category})

	if category != "" && !validCategory(category) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown category %q", category)), nil
	}

	components, err := t.builder.Discover(ctx)
	if err != nil {
		return toolError("component discovery failed", err), nil
	}
	if category != "" {
		components = usage.ByCategory(components)[usage.Category(category)]
	}

	return mcp.NewToolResultText(report.ComponentList(components, category)), nil
}

// ListServicesTool handles list_services.
type ListServicesTool struct {
	builder *usage.Builder
	logger  *logging.AppLogger
}

func NewListServicesTool(builder *usage.Builder, logger *logging.AppLogger) *ListServicesTool {
	return &ListServicesTool{builder: builder, logger: logger}
}

func (t *ListServicesTool) Definition() mcp.Tool {
	return mcp.NewTool("list_services",
		mcp.WithDescription("List the injectable services in *.service.ts files with their public methods and dependencies."),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func (t *ListServicesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.logger.LogToolCall("list_services", nil)

	services, err := t.builder.Services(ctx)
	if err != nil {
		return toolError("service discovery failed", err), nil
	}
	return mcp.NewToolResultText(report.ServiceList(services)), nil
}

func validCategory(name string) bool {
	for _, c := range usage.Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}
