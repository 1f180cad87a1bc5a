package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ngscope/internal/config"
	"ngscope/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupProject writes a small Angular project and points the config lookup at
// a file that does not exist, so defaults are used.
func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv(config.ConfigPathEnv, filepath.Join(t.TempDir(), "config.yaml"))

	dir := t.TempDir()
	files := map[string]string{
		"src/app/shared/ui/card.component.ts": "@Component({ selector: 'app-card' })\nexport class CardComponent {}\n",
		"src/app/features/home/home.component.ts": "import { CardComponent } from '../../shared/ui/card.component';\n" +
			"@Component({ selector: 'app-home', imports: [CardComponent] })\nexport class HomeComponent {\n  refresh() {\n  }\n}\n",
		"src/app/features/home/home.component.html": "<app-card></app-card>\n",
		"src/app/api.service.ts":                    "@Injectable({ providedIn: 'root' })\nexport class ApiService {\n  get(url: string) {\n  }\n}\n",
		"README.md":                                 "---\ntitle: Shop\n---\n# Shop\n",
	}
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	return dir
}

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute("test", append([]string{"--plain"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestSearchCommand(t *testing.T) {
	dir := setupProject(t)

	out, errOut, code := run(t, "--root", dir, "search", "cardcomponent", "--type", ".ts")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `# Search results for "cardcomponent"`)
	assert.Contains(t, out, "## src/app/features/home/home.component.ts")
	assert.Contains(t, out, "## src/app/shared/ui/card.component.ts")

	out, _, code = run(t, "--root", dir, "search", "app-card", "--dir", "src/app/features")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Found 1 match in 1 file")
}

func TestReadCommand(t *testing.T) {
	dir := setupProject(t)

	out, errOut, code := run(t, "--root", dir, "read", "README.md")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "- **title**: Shop")
	assert.Contains(t, out, "```markdown\n---\ntitle: Shop")

	_, errOut, code = run(t, "--root", dir, "read", "../outside.ts")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error: path is outside the project root")
}

func TestUsageCommand(t *testing.T) {
	dir := setupProject(t)

	out, errOut, code := run(t, "--root", dir, "usage")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "2 components, 1 used, 1 unused.")
	assert.Contains(t, out, "## UI components (1)")
	assert.Contains(t, out, "- Usages: 3")
	assert.Contains(t, out, "## Unused components (1)")

	out, _, code = run(t, "--root", dir, "usage", "home", "--group-by", "none", "--hide-unused")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "1 component, 0 used, 1 unused.")
	assert.NotContains(t, out, "Unused components")

	_, errOut, code = run(t, "--root", dir, "usage", "--group-by", "folder")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--group-by must be")
}

func TestStructureCommand(t *testing.T) {
	dir := setupProject(t)

	out, errOut, code := run(t, "--root", dir, "structure", "src/app/features/home/home.component.ts")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Kind: script")
	assert.Contains(t, out, "## Methods (1)\n\n- `refresh`")

	out, _, code = run(t, "--root", dir, "structure", "src/app/features/home/home.component.ts", "--kind", "interface")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "## Methods")

	out, errOut, code = run(t, "--root", dir, "structure", "src/app/api.service.ts", "--kind", "yaml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Kind: yaml (no extraction rules apply)")
	assert.Contains(t, out, "No structural elements found.")

	out, errOut, code = run(t, "--root", dir, "structure", "README.md")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Kind: unrecognized")
}

func TestCatalogCommands(t *testing.T) {
	dir := setupProject(t)

	out, errOut, code := run(t, "--root", dir, "components", "--category", "feature")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "| HomeComponent | `app-home` | feature |")
	assert.NotContains(t, out, "CardComponent")

	_, errOut, code = run(t, "--root", dir, "components", "--category", "widgets")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown category "widgets"`)

	out, errOut, code = run(t, "--root", dir, "services")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "## ApiService")
	assert.Contains(t, out, "- Methods: `get`")
}

func TestConfigCommands(t *testing.T) {
	dir := setupProject(t)
	cfgPath := filepath.Join(t.TempDir(), "ngscope.yaml")

	out, errOut, code := run(t, "--config", cfgPath, "--root", dir, "config", "init")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Wrote "+cfgPath)

	loaded, err := config.LoadFrom(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, dir, loaded.ProjectRoot)

	// The saved root is used when --root is not given.
	out, errOut, code = run(t, "--config", cfgPath, "config", "show")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "project_root: "+dir)
	assert.Contains(t, out, "search_limit: 50")

	out, errOut, code = run(t, "--config", cfgPath, "services")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ApiService")

	_, errOut, code = run(t, "config", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "--root is required")
}

func TestConfigInitDefaultLocation(t *testing.T) {
	dir := setupProject(t)
	defaultPath := os.Getenv(config.ConfigPathEnv)

	out, errOut, code := run(t, "--root", dir, "config", "init")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Wrote "+defaultPath)

	loaded, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, dir, loaded.ProjectRoot)
	assert.NotZero(t, loaded.InitTime)

	// Subsequent commands pick up the saved root without flags.
	out, errOut, code = run(t, "services")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "ApiService")
}

func TestRootErrors(t *testing.T) {
	setupProject(t)

	_, errOut, code := run(t, "--root", filepath.Join(t.TempDir(), "missing"), "services")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "cannot open project root")

	_, errOut, code = run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "services")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "failed to open config file")

	_, _, code = run(t, "search")
	assert.Equal(t, 1, code)
}

func TestVersionFlag(t *testing.T) {
	out, _, code := run(t, "--version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "test")
}

type stopFunc func() error

func (f stopFunc) Stop() error { return f() }

func TestStopLogsFailure(t *testing.T) {
	logger, buf := logging.NewTestLogger()
	a := &app{logger: logger}

	a.stop(stopFunc(func() error { return nil }))
	assert.NotContains(t, buf.String(), "Failed to stop")

	a.stop(stopFunc(func() error { return errors.New("listener busy") }))
	assert.Contains(t, buf.String(), "Failed to stop MCP server")
	assert.Contains(t, buf.String(), "listener busy")
}
