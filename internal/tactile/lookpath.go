package tactile

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"

	"minimaprender/internal/logging"
)

// ErrNotFound is returned by LookPath when no executable matches.
var ErrNotFound = errors.New("executable not found")

// LookPath resolves name the way the host shell would: a name containing a
// path separator is checked directly, a bare name is searched on PATH (with
// PATHEXT on Windows). The result is absolute.
func LookPath(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty program name: %w", ErrNotFound)
	}

	path, err := exec.LookPath(name)
	if errors.Is(err, exec.ErrDot) {
		// A PATH entry of "." matched; running it from the working directory is what the user asked for.
		err = nil
	}
	if err != nil {
		logging.TactileDebug("LookPath %q failed: %v", name, err)
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	logging.TactileDebug("LookPath %q -> %s", name, abs)
	return abs, nil
}
