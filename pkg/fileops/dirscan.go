package fileops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ErrStopWalk can be returned by a VisitFunc to end a walk early.
// Walk does not report it as an error.
var ErrStopWalk = errors.New("stop walk")

// WalkOptions configures the behavior of a Walker.
type WalkOptions struct {
	// MaxDepth limits the maximum recursion depth for directory traversal.
	// This prevents runaway recursion on pathological trees.
	MaxDepth int

	// IncludeHidden determines whether to include files and directories that start with '.'
	IncludeHidden bool

	// SkipNames contains entry names that are never visited or descended into.
	// These are exact matches against entry names (not full paths).
	SkipNames []string

	// FileFilter is an optional function that determines whether a file is handed
	// to the visitor. Filtered files are neither visited nor counted as skipped.
	FileFilter func(name string) bool
}

// FileInfo describes a regular file found during a walk.
type FileInfo struct {
	// Name is the base filename without path components
	Name string

	// Path is the slash-separated path relative to the walker root
	Path string

	// Size is the file size in bytes
	Size int64

	// ModTime is the last modification time
	ModTime time.Time
}

// WalkStats counts what happened during a walk. A skipped file is one the
// visitor rejected or that could not be stat'ed; a skipped directory is one
// that could not be opened or read.
type WalkStats struct {
	FilesVisited int
	FilesSkipped int
	DirsSkipped  int
}

// VisitFunc is called once per regular file. Returning an error marks the file
// as skipped and the walk continues, except for ErrStopWalk.
type VisitFunc func(file FileInfo) error

// Walker performs depth-first, pre-order traversals confined to an os.Root.
//
// Every open goes through the root, so neither ".." entries nor symlinks can
// lead a walk outside of it. Symlinked directories that stay inside the root
// are walked after the real tree, and only when their target was not already
// visited; a set of visited real paths breaks cycles.
type Walker struct {
	// root defines the security boundary for walk operations
	root *os.Root

	opts WalkOptions

	// rootPath is the absolute path of the walker root
	rootPath string
}

// NewWalker creates a Walker confined to rootPath.
//
// Usage example:
//
//	w, err := fileops.NewWalker("/project", nil)
//	if err != nil {
//	    return fmt.Errorf("failed to create walker: %w", err)
//	}
//	defer w.Close()
//	stats, err := w.Walk("src", func(f fileops.FileInfo) error {
//	    fmt.Println(f.Path)
//	    return nil
//	})
func NewWalker(rootPath string, opts *WalkOptions) (*Walker, error) {
	if opts == nil {
		opts = DefaultWalkOptions()
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultWalkOptions().MaxDepth
	}

	if strings.TrimSpace(rootPath) == "" {
		return nil, fmt.Errorf("walk root cannot be empty")
	}

	absPath, err := filepath.Abs(ExpandPath(rootPath))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve walk root: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access walk root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("walk root is not a directory: %s", absPath)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("cannot create secure walk root: %w", err)
	}

	return &Walker{
		root:     root,
		opts:     *opts,
		rootPath: absPath,
	}, nil
}

// DefaultWalkOptions returns the options used for project scans:
// hidden entries, node_modules and dist are skipped.
func DefaultWalkOptions() *WalkOptions {
	return &WalkOptions{
		MaxDepth:      64,
		IncludeHidden: false,
		SkipNames:     DefaultSkipNames(),
	}
}

// DefaultSkipNames returns the dependency and build output directory names.
func DefaultSkipNames() []string {
	return []string{"node_modules", "dist"}
}

// Close releases resources associated with the walker.
func (w *Walker) Close() error {
	if w.root != nil {
		err := w.root.Close()
		w.root = nil
		return err
	}
	return nil
}

// RootPath returns the absolute path the walker is confined to.
func (w *Walker) RootPath() string {
	return w.rootPath
}

// Walk visits every regular file below start (slash-separated, relative to
// the walker root; "" or "." means the root itself). Entries are visited in
// name order. Only a failure to open start itself is returned as an error;
// unreadable subdirectories and files are counted in WalkStats and skipped.
func (w *Walker) Walk(start string, visit VisitFunc) (WalkStats, error) {
	var stats WalkStats
	if w.root == nil {
		return stats, fmt.Errorf("walker has been closed")
	}

	startPath := filepath.Clean(filepath.FromSlash(start))
	if startPath == "" {
		startPath = "."
	}

	info, err := w.root.Stat(startPath)
	if err != nil {
		return stats, fmt.Errorf("cannot access directory %s: %w", start, err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("not a directory: %s", start)
	}

	t := &traversal{
		walker:  w,
		visit:   visit,
		stats:   &stats,
		visited: make(map[string]bool),
	}
	err = t.walkDir(startPath, 1)
	// Links queued while walking may queue further links
	for i := 0; err == nil && i < len(t.links); i++ {
		err = t.walkDir(t.links[i].path, t.links[i].depth)
	}
	if errors.Is(err, ErrStopWalk) {
		err = nil
	}
	return stats, err
}

// ReadFile reads a file relative to the walker root.
func (w *Walker) ReadFile(rel string) ([]byte, error) {
	if w.root == nil {
		return nil, fmt.Errorf("walker has been closed")
	}
	f, err := w.root.Open(filepath.FromSlash(rel))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type traversal struct {
	walker  *Walker
	visit   VisitFunc
	stats   *WalkStats
	visited map[string]bool
	links   []linkedDir
}

// linkedDir is a symlinked directory deferred until the real tree is walked.
type linkedDir struct {
	path  string
	depth int
}

// walkDir only ever returns ErrStopWalk; every other failure is absorbed.
func (t *traversal) walkDir(dirPath string, depth int) error {
	if depth > t.walker.opts.MaxDepth {
		return nil
	}

	// Symlink cycle guard keyed on the real directory path
	key := dirPath
	if real, err := filepath.EvalSymlinks(filepath.Join(t.walker.rootPath, dirPath)); err == nil {
		key = real
	}
	if t.visited[key] {
		return nil
	}
	t.visited[key] = true

	dir, err := t.walker.root.Open(dirPath)
	if err != nil {
		t.stats.DirsSkipped++
		return nil
	}
	entries, err := dir.ReadDir(-1)
	dir.Close()
	if err != nil {
		t.stats.DirsSkipped++
		return nil
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})

	for _, entry := range entries {
		if t.skipName(entry.Name()) {
			continue
		}
		entryPath := filepath.Join(dirPath, entry.Name())

		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			// root.Stat follows the link but refuses targets outside the root
			target, err := t.walker.root.Stat(entryPath)
			if err != nil {
				t.stats.FilesSkipped++
				continue
			}
			if target.IsDir() {
				t.links = append(t.links, linkedDir{path: entryPath, depth: depth + 1})
				continue
			}
		}

		if isDir {
			if err := t.walkDir(entryPath, depth+1); err != nil {
				return err
			}
			continue
		}

		if err := t.visitFile(entry.Name(), entryPath); err != nil {
			return err
		}
	}

	return nil
}

func (t *traversal) visitFile(name, entryPath string) error {
	if t.walker.opts.FileFilter != nil && !t.walker.opts.FileFilter(name) {
		return nil
	}

	info, err := t.walker.root.Stat(entryPath)
	if err != nil || !info.Mode().IsRegular() {
		t.stats.FilesSkipped++
		return nil
	}

	err = t.visit(FileInfo{
		Name:    name,
		Path:    filepath.ToSlash(entryPath),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
	switch {
	case errors.Is(err, ErrStopWalk):
		t.stats.FilesVisited++
		return err
	case err != nil:
		t.stats.FilesSkipped++
	default:
		t.stats.FilesVisited++
	}
	return nil
}

// skipName determines if an entry should be ignored based on configured rules.
func (t *traversal) skipName(name string) bool {
	if !t.walker.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return slices.Contains(t.walker.opts.SkipNames, name)
}
