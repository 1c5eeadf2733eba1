package minimap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"time"

	"minimaprender/internal/config"
	"minimaprender/internal/logging"
	"minimaprender/internal/tactile"
	"minimaprender/internal/ui"
)

// Process exit statuses.
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitMaxFailures    = 125
	ExitMissingProgram = 126
	ExitUsage          = 127
)

// Driver renders batches of maps and reports an exit status: the number
// of maps that failed (capped at ExitMaxFailures), or one of the fatal
// Exit* codes.
type Driver struct {
	// WorkDir must be <ProjectRootName>/tools.
	WorkDir         string
	ProjectRootName string
	Layout          Layout

	Programs Programs
	Scale    float64
	Options  RenderOptions

	Executor tactile.Executor
	Lookup   LocateFunc

	// WatchDebounce coalesces bursts of filesystem events in Watch.
	WatchDebounce time.Duration

	// ProgramName is shown in the usage text.
	ProgramName string

	Stdout io.Writer
	Stderr io.Writer

	styles ui.Styles
}

// NewDriver builds a driver from cfg for the current platform.
func NewDriver(cfg *config.Config, workDir string, stdout, stderr io.Writer) *Driver {
	execCfg := tactile.DefaultExecutorConfig()
	execCfg.AllowedEnvironment = cfg.Execution.AllowedEnvVars
	execCfg.DefaultTimeout = cfg.GetTimeout()
	executor := tactile.NewDirectExecutorWithConfig(execCfg)
	executor.SetAuditCallback(logAudit)

	return &Driver{
		WorkDir:         filepath.Clean(workDir),
		ProjectRootName: cfg.ProjectRootName,
		Layout: Layout{
			MapsDir:     cfg.Layout.MapsDir,
			MinimapsDir: cfg.Layout.MinimapsDir,
		},
		Programs: ProgramsFor(cfg, runtime.GOOS),
		Scale:    cfg.Render.Scale,
		Options: RenderOptions{
			EdgeThresholdPercent: cfg.Render.EdgeThresholdPercent,
			DissolvePercent:      cfg.Render.DissolvePercent,
			TempDir:              cfg.Render.TempDir,
		},
		Executor:      executor,
		Lookup:        tactile.LookPath,
		WatchDebounce: 250 * time.Millisecond,
		ProgramName:   "minimap-render",
		Stdout:        stdout,
		Stderr:        stderr,
		styles:        ui.NewStyles(stderr),
	}
}

func logAudit(ev tactile.AuditEvent) {
	if ev.Result == nil {
		logging.TactileDebug("[%s] %s: %s", ev.Command.RequestID, ev.Type, ev.Command.CommandString())
		return
	}
	var cpu time.Duration
	if ev.Result.ResourceUsage != nil {
		cpu = time.Duration(ev.Result.ResourceUsage.TotalCPUTimeMs()) * time.Millisecond
	}
	logging.TactileDebug("[%s] %s: %s (exit=%d, wall=%s, cpu=%s)",
		ev.Command.RequestID, ev.Type, ev.Command.Binary, ev.Result.ExitCode, ev.Result.Duration, cpu)
}

// failureStatus turns a failure count into an exit status that cannot
// wrap to zero or collide with the fatal codes.
func failureStatus(failures int) int {
	return min(failures, ExitMaxFailures)
}

// Run renders each named map in order.
func (d *Driver) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		d.Usage()
		return ExitUsage
	}
	renderer, code := d.prepare()
	if renderer == nil {
		return code
	}
	return failureStatus(d.batch(ctx, renderer, args))
}

// RunAll renders every map found in the maps directory.
func (d *Driver) RunAll(ctx context.Context) int {
	renderer, code := d.prepare()
	if renderer == nil {
		return code
	}
	names, err := Discover(d.WorkDir, d.Layout)
	if err != nil {
		d.styles.Errorf(d.Stderr, "%v", err)
		return ExitFailure
	}
	if len(names) == 0 {
		d.styles.Warnf(d.Stderr, "No maps found in %s.", MapsDir(d.WorkDir, d.Layout))
		return ExitOK
	}

	failures := d.batch(ctx, renderer, names)
	if failures == 0 {
		d.styles.Successf(d.Stderr, "Rendered all %d maps.", len(names))
	} else {
		d.styles.Warnf(d.Stderr, "Rendered %d of %d maps.", len(names)-failures, len(names))
	}
	return failureStatus(failures)
}

// Usage writes the usage text to Stderr.
func (d *Driver) Usage() {
	WriteUsage(d.Stderr, d.ProgramName)
}

// WriteUsage writes the usage text for program to w.
func WriteUsage(w io.Writer, program string) {
	fmt.Fprintf(w, `Usage: %[1]s MAP_NAME...

    Example:
        $ %[1]s 007-1
    will render the map at maps/007-1.tmx in the graphics/minimaps directory.

    For convenience,
        $ %[1]s 007-1.tmx
    is also acceptable, and
        $ %[1]s --all
    renders every map in the maps directory.

    The exit status is the number of maps that failed, at most 125.

`, program)
}

// CheckWorkDir verifies the driver runs from <ProjectRootName>/tools.
func (d *Driver) CheckWorkDir() error {
	if filepath.Base(filepath.Dir(d.WorkDir)) != d.ProjectRootName {
		return fmt.Errorf("This tool must be run from %s/tools.", d.ProjectRootName)
	}
	return nil
}

// prepare runs the fatal checks. A nil renderer comes with the exit code.
func (d *Driver) prepare() (*Renderer, int) {
	if err := d.CheckWorkDir(); err != nil {
		fmt.Fprintln(d.Stderr, err)
		return nil, ExitFailure
	}

	programs, err := Locate(d.Programs, d.Lookup)
	if err != nil {
		var missing *MissingProgramError
		if errors.As(err, &missing) {
			logging.Get(logging.CategoryBoot).Debugw("Program lookup failed", "program", missing.Program, "error", missing.Err)
		}
		fmt.Fprintln(d.Stderr, err)
		return nil, ExitMissingProgram
	}

	return NewRenderer(d.Executor, programs, d.Options), ExitOK
}

// batch renders names sequentially and counts their failures.
func (d *Driver) batch(ctx context.Context, renderer *Renderer, names []string) int {
	failures := 0
	for i, name := range names {
		if ctx.Err() != nil {
			logging.RenderWarn("Interrupted, %d map(s) not rendered", len(names)-i)
			return failures + len(names) - i
		}
		failures += d.renderOne(ctx, renderer, name)
	}
	return failures
}

// renderOne validates, resolves and renders one map; 1 means it failed.
func (d *Driver) renderOne(ctx context.Context, renderer *Renderer, arg string) int {
	name, err := ParseMapName(arg)
	if err != nil {
		d.styles.Warnf(d.Stderr, "Invalid map name: %s. Skipping.", arg)
		return ExitFailure
	}

	paths := Resolve(d.WorkDir, name, d.Layout)
	fmt.Fprintln(d.Stdout, paths.Progress())

	if err := renderer.Render(ctx, NewJob(name, d.Scale), paths); err != nil {
		d.styles.Errorf(d.Stderr, "Error while rendering %s: %v", name, err)
		return ExitFailure
	}
	return ExitOK
}
