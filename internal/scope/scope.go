// Package scope confines every file access to a single project root.
//
// A Root is built once at startup from configuration and never changes. All
// caller-supplied paths go through Resolve or ResolveDir before anything is
// opened. Rejections are reported with the sentinel errors below, wrapped with
// the offending path, so callers can match them with errors.Is.
package scope

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"ngscope/internal/config"
	"ngscope/internal/logging"
	"ngscope/pkg/fileops"
)

var (
	// ErrOutOfScope means the path resolves outside the project root.
	ErrOutOfScope = errors.New("path is outside the project root")

	// ErrDisallowedType means the file suffix is not in the allowed set.
	ErrDisallowedType = errors.New("file type is not allowed")

	// ErrNotAccessible means the path is missing, unreadable or not a regular file.
	ErrNotAccessible = errors.New("file is not accessible")

	// ErrDirectoryUnavailable means a scan directory is missing or unreadable.
	ErrDirectoryUnavailable = errors.New("directory is not available")
)

// Root is the fixed traversal boundary for all operations.
type Root struct {
	path        string // absolute, cleaned
	realPath    string // path with symlinks resolved
	extensions  []string
	maxFileSize int64
}

// New creates a Root for projectRoot. The directory must exist.
func New(projectRoot string, extensions []string, maxFileSize int64) (*Root, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, fmt.Errorf("project root cannot be empty")
	}

	abs, err := filepath.Abs(fileops.ExpandPath(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root: %w", err)
	}
	abs = filepath.Clean(abs)

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot access project root %s: %v", ErrDirectoryUnavailable, abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: project root is not a directory: %s", ErrDirectoryUnavailable, abs)
	}

	real, err := fileops.ResolveSymlink(abs)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root: %w", err)
	}

	if len(extensions) == 0 {
		extensions = config.DefaultAllowedExtensions
	}
	if maxFileSize <= 0 {
		maxFileSize = config.DefaultMaxFileSize
	}

	logging.Debug("Project root established", "path", abs, "real", real, "extensions", extensions)

	return &Root{
		path:        abs,
		realPath:    real,
		extensions:  slices.Clone(extensions),
		maxFileSize: maxFileSize,
	}, nil
}

// FromConfig creates a Root from the loaded configuration.
func FromConfig(cfg *config.Config) (*Root, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return New(cfg.ProjectRoot, cfg.AllowedExtensions, cfg.MaxFileSize)
}

// Path returns the absolute project root.
func (r *Root) Path() string {
	return r.path
}

// Extensions returns a copy of the allowed suffixes in configured order.
func (r *Root) Extensions() []string {
	return slices.Clone(r.extensions)
}

// MaxFileSize returns the largest file, in bytes, that may be read.
func (r *Root) MaxFileSize() int64 {
	return r.maxFileSize
}

// IsAllowed reports whether name carries one of the allowed suffixes.
func (r *Root) IsAllowed(name string) bool {
	return fileops.HasAllowedSuffix(name, r.extensions)
}

// FilterExtensions keeps the requested suffixes that are also allowed, in
// request order. An empty request yields the full allowed set. When nothing
// survives the filter the result is empty and ErrDisallowedType is returned.
func (r *Root) FilterExtensions(requested []string) ([]string, error) {
	if len(requested) == 0 {
		return r.Extensions(), nil
	}

	var kept []string
	for _, ext := range requested {
		ext = strings.TrimSpace(ext)
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if slices.Contains(r.extensions, ext) && !slices.Contains(kept, ext) {
			kept = append(kept, ext)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDisallowedType, strings.Join(requested, ", "))
	}
	return kept, nil
}

// Resolve validates a file path and returns its absolute form. Checks run in
// a fixed order: containment, then file type, then accessibility.
func (r *Root) Resolve(p string) (string, error) {
	// FIRST: the cleaned path and any symlink chain must stay inside the root
	abs, err := r.contain(p)
	if err != nil {
		return "", err
	}

	// SECOND: suffix allow-list
	if !r.IsAllowed(filepath.Base(abs)) {
		return "", fmt.Errorf("%w: %s", ErrDisallowedType, p)
	}

	// THIRD: existing readable regular file
	if err := fileops.ValidateFileAccess(abs); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotAccessible, p, err)
	}

	return abs, nil
}

// ResolveDir validates a scan directory. An empty path means the root. It
// returns the absolute path and the slash-separated path relative to the root.
func (r *Root) ResolveDir(p string) (string, string, error) {
	if strings.TrimSpace(p) == "" {
		p = "."
	}

	abs, err := r.contain(p)
	if err != nil {
		return "", "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, p, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", ErrDirectoryUnavailable, p)
	}
	dir, err := os.Open(abs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %v", ErrDirectoryUnavailable, p, err)
	}
	dir.Close()

	return abs, r.Relative(abs), nil
}

// ReadFile resolves p, enforces the configured size limit and returns the
// file content together with the absolute path.
func (r *Root) ReadFile(p string) ([]byte, string, error) {
	abs, err := r.Resolve(p)
	if err != nil {
		return nil, "", err
	}

	if err := fileops.ValidateFileSizeLimit(abs, r.maxFileSize); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrNotAccessible, p, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrNotAccessible, p, err)
	}
	return data, abs, nil
}

// Relative returns abs as a slash-separated path relative to the root.
// Paths outside the root are returned unchanged.
func (r *Root) Relative(abs string) string {
	_, rel, err := fileops.ContainedPath(r.path, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

// NewWalker opens a Walker confined to the root with the default skip rules.
// Only files whose name passes filter are visited; a nil filter admits every
// allowed suffix.
func (r *Root) NewWalker(filter func(name string) bool) (*fileops.Walker, error) {
	opts := fileops.DefaultWalkOptions()
	opts.FileFilter = filter
	if filter == nil {
		opts.FileFilter = r.IsAllowed
	}
	w, err := fileops.NewWalker(r.path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return w, nil
}

// contain resolves p against the root and rejects escapes, including
// symlinks whose final target lies outside the root.
func (r *Root) contain(p string) (string, error) {
	abs, _, err := fileops.ContainedPath(r.path, fileops.ExpandPath(strings.TrimSpace(p)))
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutOfScope, p)
	}

	// A link at the leaf must resolve inside the root; dangling links fail too
	if isLink, err := fileops.IsSymlink(abs); err == nil && isLink {
		if err := fileops.ValidateSymlinkSecurity(abs, []string{r.realPath}); err != nil {
			logging.Debug("Rejected symlink leaving project root", "path", p, "error", err)
			return "", fmt.Errorf("%w: %s", ErrOutOfScope, p)
		}
	}

	// Linked directories along the way
	if real, err := fileops.ResolveSymlink(abs); err == nil {
		if _, _, err := fileops.ContainedPath(r.realPath, real); err != nil {
			logging.Debug("Rejected path through symlinked directory", "path", p, "target", real)
			return "", fmt.Errorf("%w: %s", ErrOutOfScope, p)
		}
	}

	return abs, nil
}
