package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ngscope/internal/config"
	"ngscope/internal/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectFiles = map[string]string{
	"src/app/shared/ui/button/button.component.ts": `import { Component } from '@angular/core';

@Component({
  selector: 'app-button',
  standalone: true,
  template: '<button><ng-content /></button>',
})
export class ButtonComponent {}
`,
	"src/app/layout/header.component.ts": `import { Component } from '@angular/core';
import { ButtonComponent } from '../shared/ui/button/button.component';

@Component({
  selector: 'app-header',
  standalone: true,
  imports: [ButtonComponent],
  templateUrl: './header.component.html',
})
export class HeaderComponent {}
`,
	"src/app/layout/header.component.html": "<header>\n  <app-button>Menu</app-button>\n</header>\n",
	"src/app/features/legacy/legacy.component.ts": `@Component({ selector: 'app-legacy' })
export class LegacyComponent {}
`,
	"src/app/app.component.html": "<app-header></app-header>\n<router-outlet />\n",
	"src/app/cart.service.ts": `import { Injectable, inject } from '@angular/core';
import { HttpClient } from '@angular/common/http';

@Injectable({ providedIn: 'root' })
export class CartService {
  private readonly http = inject(HttpClient);

  add(item: string) {
  }
}
`,
	"src/styles.scss":         "app-header { display: block; }\n/* <app-header> in HeaderComponent */\n",
	"docs/guide.md":             "---\ntitle: Guide\napplyTo: \"**/*.ts\"\n---\n# Guide\n",
	"docs/plain.md":             "# No frontmatter\n",
	"notes.txt":                 "not an allowed type",
	"node_modules/lib/index.ts": "export const ButtonComponent = 1;",
}

// newTestServer writes the fixture project below a temp dir and returns an
// initialized server rooted at <tmp>/project. A sibling <tmp>/secret.ts
// sits outside the root.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "project")
	for name, content := range projectFiles {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.ts"), []byte("password"), 0644))

	cfg := config.DefaultConfig()
	cfg.ProjectRoot = dir

	logger, _ := logging.NewTestLogger()
	s := NewServer(&cfg, logger, "test")
	require.NoError(t, s.Init())
	return s
}

func findTool(t *testing.T, s *Server, name string) Tool {
	t.Helper()
	for _, tool := range s.tools {
		if tool.Definition().Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not registered", name)
	return nil
}

func call(t *testing.T, s *Server, name string, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := findTool(t, s, name).Handle(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text, result.IsError
}

func TestToolDefinitions(t *testing.T) {
	s := newTestServer(t)

	required := map[string][]string{
		"search_code":             {"query"},
		"read_file":               {"filePath"},
		"analyze_component_usage": nil,
		"extract_file_structure":  {"filePath"},
		"list_components":         nil,
		"list_services":           nil,
	}

	require.Len(t, s.tools, len(required))
	for _, tool := range s.tools {
		def := tool.Definition()
		want, ok := required[def.Name]
		require.True(t, ok, "unexpected tool %s", def.Name)
		assert.ElementsMatch(t, want, def.InputSchema.Required, def.Name)
		assert.NotEmpty(t, def.Description, def.Name)
		require.NotNil(t, def.Annotations.ReadOnlyHint, def.Name)
		assert.True(t, *def.Annotations.ReadOnlyHint, def.Name)
	}
}

func TestSearchCodeTool(t *testing.T) {
	s := newTestServer(t)

	t.Run("finds matches case-insensitively", func(t *testing.T) {
		text, isErr := call(t, s, "search_code", map[string]any{"query": "buttoncomponent"})
		assert.False(t, isErr)
		assert.Contains(t, text, "## src/app/layout/header.component.ts")
		assert.Contains(t, text, "## src/app/shared/ui/button/button.component.ts")
		assert.NotContains(t, text, "node_modules")
	})

	t.Run("file types and directory", func(t *testing.T) {
		text, isErr := call(t, s, "search_code", map[string]any{
			"query":     "app-button",
			"fileTypes": []any{".html"},
			"directory": "src/app/layout",
		})
		assert.False(t, isErr)
		assert.Contains(t, text, "Found 1 match in 1 file (1 searchable files).")
		assert.Contains(t, text, "## src/app/layout/header.component.html")
	})

	t.Run("caps results", func(t *testing.T) {
		many := filepath.Join(s.Root().Path(), "src", "many.ts")
		require.NoError(t, os.WriteFile(many, []byte(strings.Repeat("needle\n", 60)), 0644))

		text, isErr := call(t, s, "search_code", map[string]any{"query": "needle"})
		assert.False(t, isErr)
		assert.Contains(t, text, "Found 50 matches")
		assert.Contains(t, text, "Showing the first 50 matches")
	})

	errorCases := []struct {
		name string
		args map[string]any
		want string
	}{
		{"missing query", map[string]any{}, "search query cannot be empty"},
		{"directory outside root", map[string]any{"query": "x", "directory": ".."}, "access denied"},
		{"missing directory", map[string]any{"query": "x", "directory": "nope"}, "directory is not available"},
		{"only disallowed types", map[string]any{"query": "x", "fileTypes": []any{".txt"}}, "file type not allowed"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			text, isErr := call(t, s, "search_code", tc.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tc.want)
		})
	}
}

func TestReadFileTool(t *testing.T) {
	s := newTestServer(t)

	t.Run("reads a template", func(t *testing.T) {
		text, isErr := call(t, s, "read_file", map[string]any{"filePath": "src/app/app.component.html"})
		assert.False(t, isErr)
		assert.Contains(t, text, "# src/app/app.component.html")
		assert.Contains(t, text, "```html\n<app-header></app-header>")
	})

	t.Run("markdown frontmatter", func(t *testing.T) {
		text, isErr := call(t, s, "read_file", map[string]any{"filePath": "docs/guide.md"})
		assert.False(t, isErr)
		assert.Contains(t, text, "## Frontmatter")
		assert.Contains(t, text, "- **title**: Guide")
		assert.Contains(t, text, "- **applyTo**: **/*.ts")
	})

	t.Run("markdown without frontmatter", func(t *testing.T) {
		text, isErr := call(t, s, "read_file", map[string]any{"filePath": "docs/plain.md"})
		assert.False(t, isErr)
		assert.NotContains(t, text, "Frontmatter")
	})

	rejected := []struct {
		name string
		path string
		want string
	}{
		{"traversal", "../secret.ts", "access denied"},
		{"absolute outside", filepath.Join(filepath.Dir(s.Root().Path()), "secret.ts"), "access denied"},
		{"disallowed type", "notes.txt", "file type not allowed"},
		{"missing file", "src/app/missing.ts", "cannot read file"},
		{"empty path", "", "cannot read file"},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			text, isErr := call(t, s, "read_file", map[string]any{"filePath": tc.path})
			assert.True(t, isErr)
			assert.Contains(t, text, tc.want)
			assert.NotContains(t, text, "password")
		})
	}
}

func TestComponentUsageTool(t *testing.T) {
	s := newTestServer(t)

	t.Run("grouped with unused", func(t *testing.T) {
		text, isErr := call(t, s, "analyze_component_usage", map[string]any{})
		assert.False(t, isErr)
		assert.Contains(t, text, "3 components, 2 used, 1 unused.")
		assert.Contains(t, text, "## UI components (1)")
		assert.Contains(t, text, "## Layout components (1)")
		assert.Contains(t, text, "- Usages: 3")
		assert.Contains(t, text, "`src/app/layout/header.component.html:2` (template)")
		assert.Contains(t, text, "## Unused components (1)")
		assert.Contains(t, text, "LegacyComponent")
		// The most used component comes first.
		assert.Less(t, strings.Index(text, "### ButtonComponent"), strings.Index(text, "### HeaderComponent"))
	})

	t.Run("flat and hiding unused", func(t *testing.T) {
		text, isErr := call(t, s, "analyze_component_usage", map[string]any{"groupBy": "none", "showUnused": false})
		assert.False(t, isErr)
		assert.Contains(t, text, "## Components (2)")
		assert.NotContains(t, text, "LegacyComponent")
	})

	t.Run("filtered by selector", func(t *testing.T) {
		text, isErr := call(t, s, "analyze_component_usage", map[string]any{"component": "APP-HEADER"})
		assert.False(t, isErr)
		assert.Contains(t, text, "1 component, 1 used, 0 unused.")
		assert.Contains(t, text, "### HeaderComponent")
	})

	t.Run("invalid groupBy", func(t *testing.T) {
		text, isErr := call(t, s, "analyze_component_usage", map[string]any{"groupBy": "folder"})
		assert.True(t, isErr)
		assert.Contains(t, text, "groupBy")
	})
}

func TestFileStructureTool(t *testing.T) {
	s := newTestServer(t)

	t.Run("kind guessed from name", func(t *testing.T) {
		text, isErr := call(t, s, "extract_file_structure", map[string]any{"filePath": "src/app/layout/header.component.ts"})
		assert.False(t, isErr)
		assert.Contains(t, text, "Kind: script")
		assert.Contains(t, text, "## Imports (2)")
		assert.Contains(t, text, "- `ButtonComponent`")
		assert.Contains(t, text, "## Dependencies (1)")
	})

	t.Run("template kind", func(t *testing.T) {
		text, isErr := call(t, s, "extract_file_structure", map[string]any{"filePath": "src/app/app.component.html"})
		assert.False(t, isErr)
		assert.Contains(t, text, "Kind: template")
		assert.Contains(t, text, "- `app-header`")
	})

	t.Run("explicit interface kind", func(t *testing.T) {
		text, isErr := call(t, s, "extract_file_structure", map[string]any{
			"filePath": "src/app/cart.service.ts",
			"fileKind": "interface",
		})
		assert.False(t, isErr)
		assert.Contains(t, text, "Kind: interface")
		assert.NotContains(t, text, "## Methods")
	})

	t.Run("unknown kind yields an empty summary", func(t *testing.T) {
		text, isErr := call(t, s, "extract_file_structure", map[string]any{
			"filePath": "src/app/cart.service.ts",
			"fileKind": "style",
		})
		assert.False(t, isErr)
		assert.Contains(t, text, "Kind: style (no extraction rules apply)")
		assert.Contains(t, text, "No structural elements found.")
	})

	t.Run("unguessable kinds are not treated as scripts", func(t *testing.T) {
		for _, file := range []string{"src/styles.scss", "docs/guide.md"} {
			text, isErr := call(t, s, "extract_file_structure", map[string]any{"filePath": file})
			assert.False(t, isErr, file)
			assert.NotContains(t, text, "Kind: script", file)
			assert.Contains(t, text, "Kind: unrecognized", file)
			assert.Contains(t, text, "No structural elements found.", file)
		}
	})

	t.Run("outside root", func(t *testing.T) {
		text, isErr := call(t, s, "extract_file_structure", map[string]any{"filePath": "../secret.ts"})
		assert.True(t, isErr)
		assert.Contains(t, text, "access denied")
	})
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)

	text, isErr := call(t, s, "list_components", map[string]any{})
	assert.False(t, isErr)
	assert.Contains(t, text, "3 components.")
	assert.Contains(t, text, "| HeaderComponent | `app-header` | layout |")

	text, isErr = call(t, s, "list_components", map[string]any{"category": "feature"})
	assert.False(t, isErr)
	assert.Contains(t, text, "1 component.")
	assert.Contains(t, text, "LegacyComponent")
	assert.NotContains(t, text, "HeaderComponent")

	text, isErr = call(t, s, "list_components", map[string]any{"category": "widgets"})
	assert.True(t, isErr)
	assert.Contains(t, text, `unknown category "widgets"`)

	text, isErr = call(t, s, "list_services", map[string]any{})
	assert.False(t, isErr)
	assert.Contains(t, text, "## CartService")
	assert.Contains(t, text, "- Provided in: `root`")
	assert.Contains(t, text, "- Methods: `add`")
	assert.Contains(t, text, "- Dependencies: `HttpClient`")
}

func TestToolsHonourCancellation(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range []string{"search_code", "analyze_component_usage", "list_components", "list_services"} {
		var req mcp.CallToolRequest
		req.Params.Arguments = map[string]any{"query": "x"}

		result, err := findTool(t, s, name).Handle(ctx, req)
		require.NoError(t, err, name)
		assert.True(t, result.IsError, name)
		assert.Contains(t, fmt.Sprint(result.Content[0].(mcp.TextContent).Text), "cancelled", name)
	}
}
