package minimap

import (
	"path/filepath"
	"strings"
)

// Layout locates maps and minimaps relative to the project root, the
// parent of the working directory.
type Layout struct {
	MapsDir     string
	MinimapsDir string
}

// DefaultLayout is the client-data layout.
func DefaultLayout() Layout {
	return Layout{
		MapsDir:     "maps",
		MinimapsDir: filepath.Join("graphics", "minimaps"),
	}
}

// Paths is the source map and destination image of one render.
type Paths struct {
	Source string
	Dest   string
}

// Resolve derives the paths for name from the working directory. Nothing
// is checked for existence.
func Resolve(workDir string, name MapName, layout Layout) Paths {
	root := filepath.Join(workDir, "..")
	return Paths{
		Source: filepath.Clean(filepath.Join(root, layout.MapsDir, name.String())),
		Dest:   filepath.Clean(filepath.Join(root, layout.MinimapsDir, name.Number()+".png")),
	}
}

// Progress renders "src -> dst" with both paths shortened to what follows
// their common directory.
func (p Paths) Progress() string {
	prefix := commonDir(p.Source, p.Dest)
	return relTo(prefix, p.Source) + " -> " + relTo(prefix, p.Dest)
}

// commonDir returns the longest directory that contains both a and b.
func commonDir(a, b string) string {
	as := strings.Split(filepath.Dir(a), string(filepath.Separator))
	bs := strings.Split(filepath.Dir(b), string(filepath.Separator))
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	dir := strings.Join(as[:n], string(filepath.Separator))
	if dir == "" && filepath.IsAbs(a) {
		// Only the root is shared.
		return filepath.VolumeName(a) + string(filepath.Separator)
	}
	return dir
}

func relTo(base, target string) string {
	if base == "" {
		return target
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return target
	}
	return rel
}
