package minimap

import (
	"minimaprender/internal/config"
	"minimaprender/internal/logging"
	"minimaprender/internal/tactile"
)

// Programs names the two external executables a render needs.
type Programs struct {
	Rasterizer string
	Convert    string
}

// ProgramsFor picks the program names for goos from cfg, falling back to
// the default entry for platforms without one.
func ProgramsFor(cfg *config.Config, goos string) Programs {
	p := cfg.ProgramsFor(goos)
	return Programs{Rasterizer: p.Rasterizer, Convert: p.Convert}
}

// names lists the programs in lookup order.
func (p Programs) names() []string {
	return []string{p.Rasterizer, p.Convert}
}

// LocateFunc resolves a program name to an executable path.
type LocateFunc func(name string) (string, error)

// Locate resolves every program with lookup and returns their absolute
// paths. The first missing program aborts with *MissingProgramError.
func Locate(p Programs, lookup LocateFunc) (Programs, error) {
	if lookup == nil {
		lookup = tactile.LookPath
	}
	resolved := make([]string, 0, 2)
	for _, name := range p.names() {
		path, err := lookup(name)
		if err != nil {
			return Programs{}, &MissingProgramError{Program: name, Err: err}
		}
		logging.BootDebug("Located %s at %s", name, path)
		resolved = append(resolved, path)
	}
	return Programs{Rasterizer: resolved[0], Convert: resolved[1]}, nil
}
