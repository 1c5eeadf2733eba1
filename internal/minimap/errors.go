package minimap

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidMapName marks a name not of the NNN-D[.tmx] form.
	ErrInvalidMapName = errors.New("invalid map name")

	// ErrMapTooLarge is reported when the rasterizer produces an empty
	// image, which in practice means the map exceeded what it can draw.
	ErrMapTooLarge = errors.New("map too large to be rendered")

	// ErrUnreadableMinimap is reported when the written minimap does not
	// decode as an image.
	ErrUnreadableMinimap = errors.New("minimap output is not a readable image")
)

// ToolError reports an external program that ran and failed.
type ToolError struct {
	Program  string
	ExitCode int
	Stderr   string
	Killed   string
}

func (e *ToolError) Error() string {
	if e.Killed != "" {
		return fmt.Sprintf("%s was killed: %s", e.Program, e.Killed)
	}
	msg := fmt.Sprintf("%s returned non-zero exit status %d", e.Program, e.ExitCode)
	if detail := lastLine(e.Stderr); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// MissingProgramError reports a required program absent from PATH.
type MissingProgramError struct {
	Program string
	Err     error
}

func (e *MissingProgramError) Error() string {
	return fmt.Sprintf("The required %q program is missing from your PATH.", e.Program)
}

func (e *MissingProgramError) Unwrap() error { return e.Err }

// lastLine returns the last non-blank line of s, trimmed.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
