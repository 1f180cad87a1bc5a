// Package extract pulls structural facts out of Angular TypeScript and
// template source with regular expressions.
//
// Every rule is a pure function of the source text. The patterns are
// heuristics: they do not parse the language and will over- or under-match on
// unusual formatting such as multi-line signatures or nested braces. Each
// result list is deduplicated and keeps first-seen order.
package extract

import (
	"regexp"
	"slices"
	"strings"
)

// UnknownSelector is reported for components whose metadata has no selector.
const UnknownSelector = "unknown"

// FileKind selects which rules ExtractKind runs.
type FileKind string

const (
	KindScript    FileKind = "script"
	KindTemplate  FileKind = "template"
	KindInterface FileKind = "interface"
)

// Summary is the structure of one file.
type Summary struct {
	Imports       []string `json:"imports"`
	Exports       []string `json:"exports"`
	Interfaces    []string `json:"interfaces"`
	Methods       []string `json:"methods"`
	Dependencies  []string `json:"dependencies"`
	ComponentRefs []string `json:"componentRefs"`
}

// Empty reports whether no rule produced anything.
func (s Summary) Empty() bool {
	return len(s.Imports) == 0 && len(s.Exports) == 0 && len(s.Interfaces) == 0 &&
		len(s.Methods) == 0 && len(s.Dependencies) == 0 && len(s.ComponentRefs) == 0
}

var (
	namedImportRe     = regexp.MustCompile(`import\s*(?:type\s+)?(?:[A-Za-z_$][\w$]*\s*,\s*)?\{([^}]*)\}\s*from\s*['"][^'"]+['"]`)
	namespaceImportRe = regexp.MustCompile(`import\s*(?:type\s+)?\*\s*as\s+([A-Za-z_$][\w$]*)\s+from`)
	defaultImportRe   = regexp.MustCompile(`import\s+(?:type\s+)?([A-Za-z_$][\w$]*)\s*(?:,|\s+from\b)`)

	declExportRe = regexp.MustCompile(`export\s+(?:default\s+)?(?:declare\s+)?(?:abstract\s+)?(?:async\s+)?(?:class|interface|function\*?|const|let|var|enum|type)\s+([A-Za-z_$][\w$]*)`)
	reExportRe   = regexp.MustCompile(`export\s*(?:type\s+)?\{([^}]*)\}`)

	interfaceRe = regexp.MustCompile(`\binterface\s+([A-Za-z_$][\w$]*)`)
	typeAliasRe = regexp.MustCompile(`\btype\s+([A-Za-z_$][\w$]*)\s*(?:<[^=]*>)?\s*=`)

	methodRe = regexp.MustCompile(`(?m)^[ \t]*(?:(?:public|private|protected|static|readonly|async|override|get|set)\s+)*([A-Za-z_$][\w$]*)\s*\([^()]*\)\s*(?::\s*[^{;=]+)?\{`)

	importsArrayRe = regexp.MustCompile(`imports\s*:\s*\[([^\]]*)\]`)
	injectRe       = regexp.MustCompile(`\binject\s*(?:<[^>]*>)?\(\s*([A-Z][\w$]*)`)
	constructorRe  = regexp.MustCompile(`\bconstructor\s*\(([^)]*)\)`)
	ctorParamRe    = regexp.MustCompile(`:\s*([A-Z][\w$]*(?:Service|Client))\b`)

	tagRefRe      = regexp.MustCompile(`<(app-[\w-]+)`)
	componentIDRe = regexp.MustCompile(`\b([A-Z][\w$]*Component)\b`)

	selectorRe      = regexp.MustCompile("selector\\s*:\\s*['\"`]([^'\"`]+)['\"`]")
	componentNameRe = regexp.MustCompile(`export\s+(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*Component)\b`)
	providedInRe    = regexp.MustCompile(`providedIn\s*:\s*['"]([^'"]+)['"]`)
	classNameRe     = regexp.MustCompile(`export\s+(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)`)

	identRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

// lifecycleHooks are framework callbacks, not component API.
var lifecycleHooks = []string{
	"constructor",
	"ngOnChanges",
	"ngOnInit",
	"ngDoCheck",
	"ngAfterContentInit",
	"ngAfterContentChecked",
	"ngAfterViewInit",
	"ngAfterViewChecked",
	"ngOnDestroy",
}

// keywords look like calls followed by a block.
var keywords = []string{"if", "for", "while", "switch", "catch", "function", "return", "with", "do", "else"}

// dependencySuffixes mark identifiers in an imports array that are dependencies.
var dependencySuffixes = []string{"Component", "Directive", "Pipe", "Module"}

// Extract runs every rule over text.
func Extract(text string) Summary {
	return Summary{
		Imports:       Imports(text),
		Exports:       Exports(text),
		Interfaces:    Interfaces(text),
		Methods:       Methods(text),
		Dependencies:  Dependencies(text),
		ComponentRefs: ComponentRefs(text),
	}
}

// ExtractKind runs the rules relevant to kind. Unknown kinds yield an empty
// summary.
func ExtractKind(text string, kind FileKind) Summary {
	switch kind {
	case KindScript:
		return Extract(text)
	case KindInterface:
		return Summary{
			Imports:    Imports(text),
			Exports:    Exports(text),
			Interfaces: Interfaces(text),
		}
	case KindTemplate:
		return Summary{ComponentRefs: ComponentRefs(text)}
	default:
		return Summary{}
	}
}

// Known reports whether ExtractKind has rules for k.
func (k FileKind) Known() bool {
	return k == KindScript || k == KindTemplate || k == KindInterface
}

// ResolveKind picks the kind for a file: the requested kind when one is
// given, otherwise the guess from the file name. The result may be empty or
// unknown, in which case ExtractKind yields an empty summary.
func ResolveKind(requested, name string) FileKind {
	if k := FileKind(strings.TrimSpace(requested)); k != "" {
		return k
	}
	return KindForPath(name)
}

// KindForPath guesses the kind of a file from its name. Names that match no
// kind, such as stylesheets, return "".
func KindForPath(name string) FileKind {
	switch {
	case strings.HasSuffix(name, ".html"):
		return KindTemplate
	case strings.HasSuffix(name, ".interface.ts"), strings.HasSuffix(name, ".model.ts"),
		strings.HasSuffix(name, ".types.ts"), strings.HasSuffix(name, ".d.ts"):
		return KindInterface
	case strings.HasSuffix(name, ".ts"), strings.HasSuffix(name, ".js"):
		return KindScript
	default:
		return ""
	}
}

// Imports returns imported identifiers: names from brace lists, namespace
// aliases and default imports. Module paths are not included.
func Imports(text string) []string {
	var s orderedSet
	for _, m := range namedImportRe.FindAllStringSubmatch(text, -1) {
		for _, name := range splitBraceList(m[1], false) {
			s.add(name)
		}
	}
	for _, m := range namespaceImportRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	for _, m := range defaultImportRe.FindAllStringSubmatch(text, -1) {
		if m[1] != "type" {
			s.add(m[1])
		}
	}
	return s.items
}

// Exports returns names introduced by export declarations and re-export
// lists. For "a as b" the exported name b is returned.
func Exports(text string) []string {
	var s orderedSet
	for _, m := range declExportRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	for _, m := range reExportRe.FindAllStringSubmatch(text, -1) {
		for _, name := range splitBraceList(m[1], true) {
			s.add(name)
		}
	}
	return s.items
}

// Interfaces returns interface and type alias names, exported or not.
func Interfaces(text string) []string {
	var s orderedSet
	for _, m := range interfaceRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	for _, m := range typeAliasRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	return s.items
}

// Methods returns names of the form "name(args) {" at the start of a line,
// skipping lifecycle hooks, the constructor and control-flow keywords.
func Methods(text string) []string {
	var s orderedSet
	for _, m := range methodRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if slices.Contains(lifecycleHooks, name) || slices.Contains(keywords, name) {
			continue
		}
		s.add(name)
	}
	return s.items
}

// Dependencies returns declarables listed in an imports array, types passed
// to inject() and constructor parameters typed as a Service or Client.
func Dependencies(text string) []string {
	var s orderedSet
	for _, m := range importsArrayRe.FindAllStringSubmatch(text, -1) {
		for _, name := range splitArray(m[1]) {
			if hasAnySuffix(name, dependencySuffixes) {
				s.add(name)
			}
		}
	}
	for _, m := range injectRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	for _, m := range constructorRe.FindAllStringSubmatch(text, -1) {
		for _, p := range ctorParamRe.FindAllStringSubmatch(m[1], -1) {
			s.add(p[1])
		}
	}
	return s.items
}

// ComponentRefs returns app- prefixed tags followed by identifiers ending in
// Component. Plain text that happens to match is included.
func ComponentRefs(text string) []string {
	var s orderedSet
	for _, m := range tagRefRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	for _, m := range componentIDRe.FindAllStringSubmatch(text, -1) {
		s.add(m[1])
	}
	return s.items
}

// Selector returns the first selector declared in component metadata, or
// UnknownSelector.
func Selector(text string) string {
	if m := selectorRe.FindStringSubmatch(text); m != nil {
		if sel := strings.TrimSpace(m[1]); sel != "" {
			return sel
		}
	}
	return UnknownSelector
}

// ComponentName returns the first exported class whose name ends in
// Component, or "".
func ComponentName(text string) string {
	if m := componentNameRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ClassName returns the first exported class name, or "".
func ClassName(text string) string {
	if m := classNameRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// ProvidedIn returns the providedIn scope of an injectable, or "".
func ProvidedIn(text string) string {
	if m := providedInRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

// splitBraceList splits "a, type b, c as d" into identifiers. With
// exported set the alias is returned, otherwise the original name.
func splitBraceList(list string, exported bool) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(stripComments(part))
		part = strings.TrimPrefix(part, "type ")
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if exported && len(fields) == 3 && fields[1] == "as" {
			name = fields[2]
		}
		if identRe.MatchString(name) {
			names = append(names, name)
		}
	}
	return names
}

// splitArray splits the body of an array literal into bare identifiers.
// Spread elements and call expressions are ignored.
func splitArray(body string) []string {
	var names []string
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(stripComments(part))
		if identRe.MatchString(part) {
			names = append(names, part)
		}
	}
	return names
}

func stripComments(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		rest := s[i:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			return s[:i] + rest[nl:]
		}
		return s[:i]
	}
	return s
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}

// orderedSet collects unique strings in insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}
