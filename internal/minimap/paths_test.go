package minimap

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "client-data", "tools")
	root := filepath.Dir(workDir)

	paths := Resolve(workDir, MapName("007-1.tmx"), DefaultLayout())

	assert.Equal(t, filepath.Join(root, "maps", "007-1.tmx"), paths.Source)
	assert.Equal(t, filepath.Join(root, "graphics", "minimaps", "007-1.png"), paths.Dest)
	assert.True(t, filepath.IsAbs(paths.Source))
	assert.NotContains(t, paths.Source, "..")
	assert.True(t, strings.HasSuffix(filepath.ToSlash(paths.Source), "maps/007-1.tmx"))
	assert.True(t, strings.HasSuffix(filepath.ToSlash(paths.Dest), "graphics/minimaps/007-1.png"))
}

func TestResolve_CustomLayout(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "client-data", "tools")
	layout := Layout{MapsDir: "levels", MinimapsDir: "thumbs"}

	paths := Resolve(workDir, MapName("001-2.tmx"), layout)
	assert.Equal(t, "levels", filepath.Base(filepath.Dir(paths.Source)))
	assert.Equal(t, filepath.Join(filepath.Dir(workDir), "thumbs", "001-2.png"), paths.Dest)
}

func TestPathsProgress(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "client-data", "tools")
	paths := Resolve(workDir, MapName("007-1.tmx"), DefaultLayout())

	want := filepath.Join("maps", "007-1.tmx") + " -> " + filepath.Join("graphics", "minimaps", "007-1.png")
	assert.Equal(t, want, paths.Progress())
}

func TestCommonDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX paths")
	}
	tests := []struct {
		a, b, want string
	}{
		{"/x/client-data/maps/a.tmx", "/x/client-data/graphics/minimaps/a.png", "/x/client-data"},
		{"/x/maps/a.tmx", "/x/maps/a.png", "/x/maps"},
		{"/a/m.tmx", "/b/m.png", "/"},
		// Shared name prefixes that are not whole components do not count.
		{"/x/mapsrc/a.tmx", "/x/maps/a.png", "/x"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, commonDir(tt.a, tt.b), "commonDir(%q, %q)", tt.a, tt.b)
	}

	assert.Equal(t, "m.tmx -> m.png", Paths{Source: "/a/m.tmx", Dest: "/a/m.png"}.Progress())
	assert.Equal(t, "a/m.tmx -> b/m.png", Paths{Source: "/a/m.tmx", Dest: "/b/m.png"}.Progress())
}
