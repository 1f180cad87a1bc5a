// Package search implements literal, case-insensitive code search over the
// project tree.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ngscope/internal/config"
	"ngscope/internal/logging"
	"ngscope/internal/scope"
	"ngscope/pkg/fileops"
)

// ErrEmptyQuery is returned when the query has no non-space characters.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// ExcerptRadius is the number of lines shown on each side of a hit.
const ExcerptRadius = 2

// Request describes one search.
type Request struct {
	// Query is matched as a literal substring, ignoring case.
	Query string

	// Directory limits the search to a subtree. Empty means the project root.
	Directory string

	// FileTypes restricts the suffixes searched. Empty means every allowed suffix.
	FileTypes []string
}

// Hit is one matching line.
type Hit struct {
	File    string `json:"file"` // slash-separated, relative to the project root
	Line    int    `json:"line"` // 1-based
	Context string `json:"context"`
	Excerpt string `json:"excerpt"`
}

// Result holds the hits of a search and what the walk saw on the way.
type Result struct {
	Query     string
	Directory string
	FileTypes []string
	Hits      []Hit

	FilesScanned int
	FilesSkipped int

	// Truncated is set when more hits existed past the limit.
	Truncated bool
}

// Engine runs searches confined to a scope.Root.
type Engine struct {
	root   *scope.Root
	limit  int
	logger *logging.AppLogger
}

// NewEngine creates a search engine. The limit can only lower the hard cap
// of config.DefaultSearchLimit hits; a limit <= 0 selects the cap itself.
func NewEngine(root *scope.Root, limit int, logger *logging.AppLogger) *Engine {
	if limit <= 0 || limit > config.DefaultSearchLimit {
		limit = config.DefaultSearchLimit
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Engine{root: root, limit: limit, logger: logger}
}

// Limit returns the maximum number of hits a search returns.
func (e *Engine) Limit() int {
	return e.limit
}

// Search walks the requested directory depth first and collects matching
// lines in visit order. The walk stops as soon as a hit beyond the limit is
// found, so the returned hits are exactly the first Limit() in traversal order.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	defer e.logger.LogPerformance("search", start)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	types, err := e.root.FilterExtensions(req.FileTypes)
	if err != nil {
		return nil, err
	}
	_, relDir, err := e.root.ResolveDir(req.Directory)
	if err != nil {
		return nil, err
	}

	walker, err := e.root.NewWalker(suffixFilter(types))
	if err != nil {
		return nil, err
	}
	defer walker.Close()

	result := &Result{
		Query:     req.Query,
		Directory: relDir,
		FileTypes: types,
		Hits:      []Hit{},
	}
	needle := strings.ToLower(req.Query)
	maxSize := e.root.MaxFileSize()
	var ctxErr error

	stats, err := walker.Walk(relDir, func(f fileops.FileInfo) error {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			return fileops.ErrStopWalk
		}
		if f.Size > maxSize {
			e.logger.Debug("Skipping oversized file", "file", f.Path, "size", f.Size)
			return fmt.Errorf("file exceeds size limit")
		}

		data, err := walker.ReadFile(f.Path)
		if err != nil {
			e.logger.Debug("Skipping unreadable file", "file", f.Path, "error", err)
			return err
		}

		for _, hit := range matchLines(f.Path, string(data), needle) {
			if len(result.Hits) == e.limit {
				result.Truncated = true
				return fileops.ErrStopWalk
			}
			result.Hits = append(result.Hits, hit)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scope.ErrDirectoryUnavailable, err)
	}
	if ctxErr != nil {
		return nil, ctxErr
	}

	result.FilesScanned = stats.FilesVisited
	result.FilesSkipped = stats.FilesSkipped

	e.logger.Debug("Search completed",
		"root", walker.RootPath(),
		"query", req.Query,
		"directory", relDir,
		"hits", len(result.Hits),
		"scanned", result.FilesScanned,
		"skipped", result.FilesSkipped,
		"truncated", result.Truncated)

	return result, nil
}

// CountSearchableFiles counts the files a search over dir and types would
// consider. File contents are not read.
func (e *Engine) CountSearchableFiles(ctx context.Context, dir string, types []string) (int, error) {
	types, err := e.root.FilterExtensions(types)
	if err != nil {
		return 0, err
	}
	_, relDir, err := e.root.ResolveDir(dir)
	if err != nil {
		return 0, err
	}

	walker, err := e.root.NewWalker(suffixFilter(types))
	if err != nil {
		return 0, err
	}
	defer walker.Close()

	var ctxErr error
	stats, err := walker.Walk(relDir, func(fileops.FileInfo) error {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			return fileops.ErrStopWalk
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", scope.ErrDirectoryUnavailable, err)
	}
	if ctxErr != nil {
		return 0, ctxErr
	}
	return stats.FilesVisited, nil
}

func suffixFilter(types []string) func(string) bool {
	return func(name string) bool {
		return fileops.HasAllowedSuffix(name, types)
	}
}

// matchLines returns one hit per line of text containing needle, which must
// already be lower case.
func matchLines(file, text, needle string) []Hit {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	var hits []Hit
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}
		hits = append(hits, Hit{
			File:    file,
			Line:    i + 1,
			Context: strings.TrimSpace(line),
			Excerpt: excerpt(lines, i),
		})
	}
	return hits
}

// excerpt joins the lines within ExcerptRadius of index i, clamped to the
// bounds of lines.
func excerpt(lines []string, i int) string {
	from := max(0, i-ExcerptRadius)
	to := min(len(lines), i+ExcerptRadius+1)
	return strings.Join(lines[from:to], "\n")
}
