package minimap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MapsDir is the absolute maps directory for workDir.
func MapsDir(workDir string, layout Layout) string {
	return filepath.Clean(filepath.Join(workDir, "..", layout.MapsDir))
}

// Discover lists the .tmx files in the maps directory, sorted by name.
// Names are returned as found; validation is left to the caller.
func Discover(workDir string, layout Layout) ([]string, error) {
	dir := MapsDir(workDir, layout)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), MapExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}
