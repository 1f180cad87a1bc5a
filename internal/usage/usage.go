// Package usage discovers Angular components and services and records where
// each component is used.
//
// Build runs in two strictly ordered phases over fresh walks of the project:
// discovery registers every component declared in a *.component.ts file, then
// the usage scan appends locations to those entries. The usage scan receives a
// frozen index and cannot register new components.
package usage

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"ngscope/internal/config"
	"ngscope/internal/extract"
	"ngscope/internal/logging"
	"ngscope/internal/scope"
	"ngscope/pkg/fileops"
)

// Category places a component in the project layout.
type Category string

const (
	CategoryUI       Category = "ui"
	CategoryLayout   Category = "layout"
	CategoryFeature  Category = "feature"
	CategoryExternal Category = "external"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryUI, CategoryLayout, CategoryFeature, CategoryExternal}

// Kind tells how a usage was detected.
type Kind string

const (
	KindTemplate Kind = "template"
	KindScript   Kind = "script"
)

const (
	componentSuffix = ".component.ts"
	serviceSuffix   = ".service.ts"
)

// Location is one place a component is referenced.
type Location struct {
	File        string `json:"file"`
	Kind        Kind   `json:"kind"`
	Line        int    `json:"line"`
	Context     string `json:"context"`
	Description string `json:"description"`
}

// Component is a declared component and its usages. TotalUsages always equals
// len(UsedIn).
type Component struct {
	Name        string     `json:"name"`
	Selector    string     `json:"selector"`
	SourcePath  string     `json:"sourcePath"`
	Category    Category   `json:"category"`
	UsedIn      []Location `json:"usedIn"`
	TotalUsages int        `json:"totalUsages"`
}

// Service is an injectable class found in a *.service.ts file.
type Service struct {
	Name         string   `json:"name"`
	SourcePath   string   `json:"sourcePath"`
	ProvidedIn   string   `json:"providedIn,omitempty"`
	Methods      []string `json:"methods"`
	Dependencies []string `json:"dependencies"`
}

// Options controls Build.
type Options struct {
	// Component keeps only components whose name or selector contains it,
	// ignoring case. The filter runs after both phases.
	Component string
}

// Builder runs discovery and usage scans against a scope.Root.
type Builder struct {
	root       *scope.Root
	categories config.Categories
	logger     *logging.AppLogger
}

// NewBuilder creates a Builder. Empty category prefixes fall back to the defaults.
func NewBuilder(root *scope.Root, categories config.Categories, logger *logging.AppLogger) *Builder {
	defaults := config.DefaultCategories()
	if categories.UI == "" {
		categories.UI = defaults.UI
	}
	if categories.Layout == "" {
		categories.Layout = defaults.Layout
	}
	if categories.Feature == "" {
		categories.Feature = defaults.Feature
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Builder{root: root, categories: categories, logger: logger}
}

// Build discovers components, scans the project for their usages and returns
// them sorted by usage count, most used first. Equal counts keep discovery order.
func (b *Builder) Build(ctx context.Context, opts Options) ([]Component, error) {
	start := time.Now()
	defer b.logger.LogPerformance("usage build", start)

	reg, err := b.discover(ctx)
	if err != nil {
		return nil, err
	}

	idx := reg.freeze()
	if err := b.scanUsages(ctx, idx); err != nil {
		return nil, err
	}

	result := idx.snapshot()
	slices.SortStableFunc(result, func(a, c Component) int {
		return c.TotalUsages - a.TotalUsages
	})

	if f := strings.TrimSpace(opts.Component); f != "" {
		result = Filter(result, f)
	}

	b.logger.Debug("Usage graph built", "components", len(result), "filter", opts.Component)
	return result, nil
}

// Discover returns declared components in discovery order without scanning
// for usages.
func (b *Builder) Discover(ctx context.Context) ([]Component, error) {
	reg, err := b.discover(ctx)
	if err != nil {
		return nil, err
	}
	return reg.freeze().snapshot(), nil
}

// Services lists injectable classes from *.service.ts files in walk order.
func (b *Builder) Services(ctx context.Context) ([]Service, error) {
	var services []Service

	err := b.walk(ctx, hasSuffix(serviceSuffix), func(f fileops.FileInfo, text string) {
		name := extract.ClassName(text)
		if name == "" {
			b.logger.Debug("No exported class in service file", "file", f.Path)
			return
		}
		services = append(services, Service{
			Name:         name,
			SourcePath:   f.Path,
			ProvidedIn:   extract.ProvidedIn(text),
			Methods:      nonNil(extract.Methods(text)),
			Dependencies: nonNil(extract.Dependencies(text)),
		})
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

// Filter keeps components whose name or selector contains filter, ignoring case.
func Filter(components []Component, filter string) []Component {
	needle := strings.ToLower(filter)
	var kept []Component
	for _, c := range components {
		if strings.Contains(strings.ToLower(c.Name), needle) || strings.Contains(strings.ToLower(c.Selector), needle) {
			kept = append(kept, c)
		}
	}
	return kept
}

// ByCategory groups components by category, keeping their relative order.
func ByCategory(components []Component) map[Category][]Component {
	groups := make(map[Category][]Component)
	for _, c := range components {
		groups[c.Category] = append(groups[c.Category], c)
	}
	return groups
}

// Categorize maps a source path to a category. Prefixes are checked in the
// order ui, layout, feature.
func (b *Builder) Categorize(sourcePath string) Category {
	switch {
	case strings.HasPrefix(sourcePath, b.categories.UI):
		return CategoryUI
	case strings.HasPrefix(sourcePath, b.categories.Layout):
		return CategoryLayout
	case strings.HasPrefix(sourcePath, b.categories.Feature):
		return CategoryFeature
	default:
		return CategoryExternal
	}
}

// discover is phase one.
func (b *Builder) discover(ctx context.Context) (*registry, error) {
	reg := newRegistry()

	err := b.walk(ctx, hasSuffix(componentSuffix), func(f fileops.FileInfo, text string) {
		name := extract.ComponentName(text)
		if name == "" {
			b.logger.Debug("No exported component class", "file", f.Path)
			return
		}
		reg.register(&Component{
			Name:       name,
			Selector:   extract.Selector(text),
			SourcePath: f.Path,
			Category:   b.Categorize(f.Path),
			UsedIn:     []Location{},
		})
	})
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Component discovery finished", "components", len(reg.order))
	return reg, nil
}

var (
	scriptImportRe = regexp.MustCompile(`import\s*\{([^}]+)\}`)
	scriptArrayRe  = regexp.MustCompile(`imports\s*:\s*\[([^\]]*)\]`)
)

// scanUsages is phase two.
func (b *Builder) scanUsages(ctx context.Context, idx *frozenIndex) error {
	return b.walk(ctx, nil, func(f fileops.FileInfo, text string) {
		switch {
		case strings.HasSuffix(f.Name, ".ts"):
			scanScript(idx, f.Path, text)
		case strings.HasSuffix(f.Name, ".html"):
			scanTemplate(idx, f.Path, text)
		}
	})
}

func scanScript(idx *frozenIndex, file, text string) {
	for i, line := range splitLines(text) {
		if m := scriptImportRe.FindStringSubmatch(line); m != nil {
			for _, name := range identifiers(m[1]) {
				idx.record(name, Location{
					File:        file,
					Kind:        KindScript,
					Line:        i + 1,
					Context:     strings.TrimSpace(line),
					Description: "Imported via ES module import",
				})
			}
		}
		if m := scriptArrayRe.FindStringSubmatch(line); m != nil {
			for _, name := range identifiers(m[1]) {
				idx.record(name, Location{
					File:        file,
					Kind:        KindScript,
					Line:        i + 1,
					Context:     strings.TrimSpace(line),
					Description: "Declared in standalone imports array",
				})
			}
		}
	}
}

func scanTemplate(idx *frozenIndex, file, text string) {
	for i, line := range splitLines(text) {
		for _, e := range idx.entries {
			if e.tag == nil || !e.tag.MatchString(line) {
				continue
			}
			e.add(Location{
				File:        file,
				Kind:        KindTemplate,
				Line:        i + 1,
				Context:     strings.TrimSpace(line),
				Description: fmt.Sprintf("Used as <%s> in template", e.c.Selector),
			})
		}
	}
}

// walk visits files below the root that pass filter (nil means every allowed
// suffix) and hands their text to fn. Unreadable and oversized files are skipped.
func (b *Builder) walk(ctx context.Context, filter func(string) bool, fn func(fileops.FileInfo, string)) error {
	walker, err := b.root.NewWalker(filter)
	if err != nil {
		return err
	}
	defer walker.Close()

	maxSize := b.root.MaxFileSize()
	var ctxErr error

	stats, err := walker.Walk(".", func(f fileops.FileInfo) error {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			return fileops.ErrStopWalk
		}
		if !b.root.IsAllowed(f.Name) {
			return nil
		}
		if f.Size > maxSize {
			return fmt.Errorf("file exceeds size limit")
		}
		data, err := walker.ReadFile(f.Path)
		if err != nil {
			b.logger.Debug("Skipping unreadable file", "file", f.Path, "error", err)
			return err
		}
		fn(f, string(data))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", scope.ErrDirectoryUnavailable, err)
	}
	if ctxErr != nil {
		return ctxErr
	}
	if stats.FilesSkipped > 0 || stats.DirsSkipped > 0 {
		b.logger.Debug("Walk skipped entries", "root", walker.RootPath(), "files", stats.FilesSkipped, "dirs", stats.DirsSkipped)
	}
	return nil
}

// registry is the mutable discovery map. Names collide last-write-wins; the
// replacement keeps the position of the first declaration.
type registry struct {
	byName map[string]int
	order  []*Component
}

func newRegistry() *registry {
	return &registry{byName: make(map[string]int)}
}

func (r *registry) register(c *Component) {
	if i, ok := r.byName[c.Name]; ok {
		r.order[i] = c
		return
	}
	r.byName[c.Name] = len(r.order)
	r.order = append(r.order, c)
}

func (r *registry) freeze() *frozenIndex {
	idx := &frozenIndex{byName: make(map[string]*entry, len(r.order))}
	for _, c := range r.order {
		e := &entry{c: c}
		if c.Selector != extract.UnknownSelector {
			e.tag = regexp.MustCompile(`<` + regexp.QuoteMeta(c.Selector) + `(\s|>|$)`)
		}
		idx.entries = append(idx.entries, e)
		idx.byName[c.Name] = e
	}
	return idx
}

// frozenIndex is the discovery result as seen by the usage scan. Lookups only;
// there is no way to add a component.
type frozenIndex struct {
	byName  map[string]*entry
	entries []*entry
}

type entry struct {
	c   *Component
	tag *regexp.Regexp
}

func (e *entry) add(loc Location) {
	e.c.UsedIn = append(e.c.UsedIn, loc)
	e.c.TotalUsages = len(e.c.UsedIn)
}

// record appends loc to the component called name, if one was discovered.
func (idx *frozenIndex) record(name string, loc Location) {
	if e, ok := idx.byName[name]; ok {
		e.add(loc)
	}
}

func (idx *frozenIndex) snapshot() []Component {
	out := make([]Component, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, *e.c)
	}
	return out
}

// identifiers splits "A, B as C, type D" into the imported names A, B, D.
func identifiers(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "type" && len(fields) > 1 {
			fields = fields[1:]
		}
		names = append(names, fields[0])
	}
	return names
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	return lines
}

func hasSuffix(suffix string) func(string) bool {
	return func(name string) bool {
		return strings.HasSuffix(name, suffix)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
