package scope

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProject(t *testing.T) (string, *Root) {
	t.Helper()
	parent := t.TempDir()
	dir := filepath.Join(parent, "shop")

	files := map[string]string{
		"src/app/app.component.ts":   "export class AppComponent {}",
		"src/app/app.component.html": "<app-header></app-header>",
		"notes.exe":                  "MZ",
		"README.md":                  "---\ntitle: Shop\n---\n# Shop",
		"README.MD":                  "upper",
	}
	for name, content := range files {
		full := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "assets.ts"), 0755))

	root, err := New(dir, nil, 0)
	require.NoError(t, err)
	return dir, root
}

func TestNew(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "missing"), nil, 0)
		assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "main.ts")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
		_, err := New(file, nil, 0)
		assert.ErrorIs(t, err, ErrDirectoryUnavailable)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := New("  ", nil, 0)
		assert.Error(t, err)
	})

	t.Run("defaults applied", func(t *testing.T) {
		root, err := New(t.TempDir(), nil, 0)
		require.NoError(t, err)
		assert.Contains(t, root.Extensions(), ".ts")
		assert.Equal(t, int64(5*1024*1024), root.maxFileSize)
	})
}

func TestResolve(t *testing.T) {
	dir, root := newProject(t)

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "component file", path: "src/app/app.component.ts"},
		{name: "template file", path: "src/app/app.component.html"},
		{name: "dot segments inside root", path: "src/../README.md"},
		{name: "absolute inside root", path: filepath.Join(dir, "README.md")},
		{name: "traversal", path: "../../etc/passwd", wantErr: ErrOutOfScope},
		{name: "absolute outside root", path: "/etc/passwd", wantErr: ErrOutOfScope},
		{name: "sibling sharing the root prefix", path: "../shop-old/main.ts", wantErr: ErrOutOfScope},
		{name: "disallowed extension", path: "notes.exe", wantErr: ErrDisallowedType},
		{name: "case sensitive extension", path: "README.MD", wantErr: ErrDisallowedType},
		{name: "missing file", path: "src/missing.ts", wantErr: ErrNotAccessible},
		{name: "directory with allowed suffix", path: "src/assets.ts", wantErr: ErrNotAccessible},
		{name: "traversal checked before type", path: "../secret.exe", wantErr: ErrOutOfScope},
		{name: "type checked before access", path: "missing.exe", wantErr: ErrDisallowedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, err := root.Resolve(tt.path)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				assert.Empty(t, abs)
				return
			}
			require.NoError(t, err)
			want := tt.path
			if !filepath.IsAbs(want) {
				want = filepath.Join(dir, want)
			}
			assert.Equal(t, filepath.Clean(want), abs)
		})
	}
}

func TestResolve_SiblingDirectoryIsOutOfScope(t *testing.T) {
	dir, root := newProject(t)

	sibling := dir + "-old"
	require.NoError(t, os.MkdirAll(sibling, 0755))
	target := filepath.Join(sibling, "main.ts")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0644))

	_, err := root.Resolve(target)
	assert.ErrorIs(t, err, ErrOutOfScope)
}

func TestResolve_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink tests require unix")
	}
	dir, root := newProject(t)

	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.ts")
	require.NoError(t, os.WriteFile(secret, []byte("token"), 0644))

	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "src", "secret.ts")))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "src", "vendor")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "README.md"), filepath.Join(dir, "src", "readme.md")))

	_, err := root.Resolve("src/secret.ts")
	assert.ErrorIs(t, err, ErrOutOfScope, "file link leaving the root")

	_, err = root.Resolve("src/vendor/secret.ts")
	assert.ErrorIs(t, err, ErrOutOfScope, "directory link leaving the root")

	abs, err := root.Resolve("src/readme.md")
	require.NoError(t, err, "link inside the root")
	assert.Equal(t, filepath.Join(dir, "src", "readme.md"), abs)

	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.ts"), filepath.Join(dir, "src", "dangling.ts")))
	_, err = root.Resolve("src/dangling.ts")
	assert.ErrorIs(t, err, ErrOutOfScope, "dangling link")
}

func TestResolveDir(t *testing.T) {
	dir, root := newProject(t)

	abs, rel, err := root.ResolveDir("")
	require.NoError(t, err)
	assert.Equal(t, dir, abs)
	assert.Equal(t, ".", rel)

	abs, rel, err = root.ResolveDir("src/app")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src", "app"), abs)
	assert.Equal(t, "src/app", rel)

	_, _, err = root.ResolveDir("../")
	assert.ErrorIs(t, err, ErrOutOfScope)

	_, _, err = root.ResolveDir("src/nope")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)

	_, _, err = root.ResolveDir("README.md")
	assert.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "small.ts"), []byte("ok"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big.ts"), make([]byte, 64), 0644))

	root, err := New(dir, []string{".ts"}, 32)
	require.NoError(t, err)

	data, abs, err := root.ReadFile("small.ts")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, filepath.Join(dir, "small.ts"), abs)

	_, _, err = root.ReadFile("big.ts")
	assert.ErrorIs(t, err, ErrNotAccessible)
	assert.ErrorContains(t, err, "exceeds limit")

	_, _, err = root.ReadFile("../../etc/passwd")
	assert.ErrorIs(t, err, ErrOutOfScope)
}

func TestFilterExtensions(t *testing.T) {
	root, err := New(t.TempDir(), []string{".ts", ".html", ".md"}, 0)
	require.NoError(t, err)

	tests := []struct {
		name      string
		requested []string
		want      []string
		wantErr   bool
	}{
		{name: "empty means all", requested: nil, want: []string{".ts", ".html", ".md"}},
		{name: "subset keeps request order", requested: []string{".html", ".ts"}, want: []string{".html", ".ts"}},
		{name: "missing dot is added", requested: []string{"ts"}, want: []string{".ts"}},
		{name: "unknown dropped", requested: []string{".ts", ".exe"}, want: []string{".ts"}},
		{name: "duplicates collapsed", requested: []string{".ts", ".ts"}, want: []string{".ts"}},
		{name: "nothing allowed", requested: []string{".exe", ".sh"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := root.FilterExtensions(tt.requested)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDisallowedType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRelative(t *testing.T) {
	dir, root := newProject(t)

	assert.Equal(t, "src/app/app.component.ts", root.Relative(filepath.Join(dir, "src", "app", "app.component.ts")))
	assert.Equal(t, ".", root.Relative(dir))
	assert.Equal(t, "/elsewhere/x.ts", root.Relative("/elsewhere/x.ts"))
}
