// Package report renders engine results as markdown.
//
// The same text is returned to MCP clients and rendered for the terminal by
// the CLI, so nothing here knows about either surface.
package report

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"ngscope/internal/extract"
	"ngscope/internal/search"
	"ngscope/internal/usage"
)

// GroupBy values accepted by ComponentUsage.
const (
	GroupByCategory = "category"
	GroupByNone     = "none"
)

var categoryTitles = map[usage.Category]string{
	usage.CategoryUI:       "UI components",
	usage.CategoryLayout:   "Layout components",
	usage.CategoryFeature:  "Feature components",
	usage.CategoryExternal: "Other components",
}

// SearchResults renders hits grouped by file. totalFiles is the number of
// searchable files in the same scope; pass a negative value when unknown.
func SearchResults(res *search.Result, totalFiles int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Search results for %q\n\n", res.Query)

	files := hitFiles(res.Hits)
	fmt.Fprintf(&b, "Found %d %s in %d %s", len(res.Hits), plural(len(res.Hits), "match", "matches"),
		len(files), plural(len(files), "file", "files"))
	if totalFiles >= 0 {
		fmt.Fprintf(&b, " (%d searchable files)", totalFiles)
	}
	b.WriteString(".\n")

	if res.Directory != "" && res.Directory != "." {
		fmt.Fprintf(&b, "\nDirectory: `%s`\n", res.Directory)
	}
	if len(res.FileTypes) > 0 {
		fmt.Fprintf(&b, "\nFile types: %s\n", strings.Join(res.FileTypes, ", "))
	}
	if res.FilesSkipped > 0 {
		fmt.Fprintf(&b, "\nSkipped %d unreadable or oversized %s.\n", res.FilesSkipped, plural(res.FilesSkipped, "file", "files"))
	}
	if res.Truncated {
		fmt.Fprintf(&b, "\n> Showing the first %d matches. Narrow the query, directory or file types to see the rest.\n", len(res.Hits))
	}

	for _, file := range files {
		fmt.Fprintf(&b, "\n## %s\n", file)
		lang := language(file)
		for _, h := range res.Hits {
			if h.File != file {
				continue
			}
			fmt.Fprintf(&b, "\n**Line %d:** `%s`\n\n", h.Line, inlineCode(h.Context))
			writeFence(&b, lang, h.Excerpt)
		}
	}
	return b.String()
}

// FileContent renders a file body in a code fence. meta is frontmatter parsed
// from markdown files and may be nil.
func FileContent(rel string, content []byte, meta map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rel)
	fmt.Fprintf(&b, "Size: %d bytes\n", len(content))

	if len(meta) > 0 {
		b.WriteString("\n## Frontmatter\n\n")
		keys := make([]string, 0, len(meta))
		for k := range meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s**: %v\n", k, meta[k])
		}
	}

	b.WriteString("\n")
	writeFence(&b, language(rel), string(content))
	return b.String()
}

// ComponentUsage renders the usage graph. With groupBy "category" components
// are listed under their category in declaration order of the categories;
// otherwise as one list. Components with no usages go to a trailing section
// when showUnused is set and are omitted otherwise.
func ComponentUsage(components []usage.Component, groupBy string, showUnused bool) string {
	var used, unused []usage.Component
	for _, c := range components {
		if c.TotalUsages > 0 {
			used = append(used, c)
		} else {
			unused = append(unused, c)
		}
	}

	var b strings.Builder
	b.WriteString("# Component usage\n\n")
	fmt.Fprintf(&b, "%d %s, %d used, %d unused.\n", len(components), plural(len(components), "component", "components"),
		len(used), len(unused))

	if len(components) == 0 {
		b.WriteString("\nNo components found.\n")
		return b.String()
	}

	if groupBy == GroupByCategory {
		grouped := usage.ByCategory(used)
		for _, cat := range usage.Categories {
			list := grouped[cat]
			if len(list) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n## %s (%d)\n", categoryTitles[cat], len(list))
			for _, c := range list {
				writeComponent(&b, c)
			}
		}
	} else if len(used) > 0 {
		fmt.Fprintf(&b, "\n## Components (%d)\n", len(used))
		for _, c := range used {
			writeComponent(&b, c)
		}
	}

	if showUnused && len(unused) > 0 {
		fmt.Fprintf(&b, "\n## Unused components (%d)\n\n", len(unused))
		for _, c := range unused {
			fmt.Fprintf(&b, "- **%s** (`%s`) in `%s`\n", c.Name, c.Selector, c.SourcePath)
		}
	}
	return b.String()
}

func writeComponent(b *strings.Builder, c usage.Component) {
	fmt.Fprintf(b, "\n### %s\n\n", c.Name)
	fmt.Fprintf(b, "- Selector: `%s`\n", c.Selector)
	fmt.Fprintf(b, "- Source: `%s`\n", c.SourcePath)
	fmt.Fprintf(b, "- Category: %s\n", c.Category)
	fmt.Fprintf(b, "- Usages: %d\n", c.TotalUsages)
	if len(c.UsedIn) == 0 {
		return
	}
	b.WriteString("\n")
	for _, loc := range c.UsedIn {
		fmt.Fprintf(b, "- `%s:%d` (%s) %s: `%s`\n", loc.File, loc.Line, loc.Kind, loc.Description, inlineCode(loc.Context))
	}
}

// Structure renders an extraction summary. Empty lists are left out.
func Structure(rel string, kind extract.FileKind, s extract.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Structure of %s\n\n", rel)
	if kind.Known() {
		fmt.Fprintf(&b, "Kind: %s\n", kind)
	} else {
		label := string(kind)
		if label == "" {
			label = "unrecognized"
		}
		fmt.Fprintf(&b, "Kind: %s (no extraction rules apply)\n", label)
	}

	if s.Empty() {
		b.WriteString("\nNo structural elements found.\n")
		return b.String()
	}

	sections := []struct {
		title string
		items []string
	}{
		{"Imports", s.Imports},
		{"Exports", s.Exports},
		{"Interfaces and types", s.Interfaces},
		{"Methods", s.Methods},
		{"Dependencies", s.Dependencies},
		{"Component references", s.ComponentRefs},
	}
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", sec.title, len(sec.items))
		for _, item := range sec.items {
			fmt.Fprintf(&b, "- `%s`\n", item)
		}
	}
	return b.String()
}

// ComponentList renders discovered components as a table.
func ComponentList(components []usage.Component, category string) string {
	var b strings.Builder
	b.WriteString("# Components\n\n")
	if category != "" {
		fmt.Fprintf(&b, "Category: %s\n\n", category)
	}
	if len(components) == 0 {
		b.WriteString("No components found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d %s.\n\n", len(components), plural(len(components), "component", "components"))
	b.WriteString("| Name | Selector | Category | Source |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, c := range components {
		fmt.Fprintf(&b, "| %s | `%s` | %s | `%s` |\n", c.Name, tableCell(c.Selector), c.Category, c.SourcePath)
	}
	return b.String()
}

// ServiceList renders services with their public methods and dependencies.
func ServiceList(services []usage.Service) string {
	var b strings.Builder
	b.WriteString("# Services\n\n")
	if len(services) == 0 {
		b.WriteString("No services found.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d %s.\n", len(services), plural(len(services), "service", "services"))
	for _, s := range services {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Name)
		fmt.Fprintf(&b, "- Source: `%s`\n", s.SourcePath)
		if s.ProvidedIn != "" {
			fmt.Fprintf(&b, "- Provided in: `%s`\n", s.ProvidedIn)
		}
		if len(s.Methods) > 0 {
			fmt.Fprintf(&b, "- Methods: %s\n", codeList(s.Methods))
		}
		if len(s.Dependencies) > 0 {
			fmt.Fprintf(&b, "- Dependencies: %s\n", codeList(s.Dependencies))
		}
	}
	return b.String()
}

// hitFiles returns the distinct files of hits in first-seen order.
func hitFiles(hits []search.Hit) []string {
	var files []string
	seen := make(map[string]bool)
	for _, h := range hits {
		if !seen[h.File] {
			seen[h.File] = true
			files = append(files, h.File)
		}
	}
	return files
}

func language(name string) string {
	switch path.Ext(name) {
	case ".ts":
		return "typescript"
	case ".js":
		return "javascript"
	case ".html":
		return "html"
	case ".scss":
		return "scss"
	case ".css":
		return "css"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	default:
		return ""
	}
}

// writeFence writes body in a code fence longer than any backtick run it
// contains.
func writeFence(b *strings.Builder, lang, body string) {
	fence := strings.Repeat("`", max(3, longestRun(body, '`')+1))
	fmt.Fprintf(b, "%s%s\n%s", fence, lang, body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence + "\n")
}

func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}

func inlineCode(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "`", "'")
}

func tableCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func codeList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "`" + it + "`"
	}
	return strings.Join(quoted, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
