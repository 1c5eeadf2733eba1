package minimap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"minimaprender/internal/logging"
	"minimaprender/internal/tactile"
)

// DefaultScale renders one output pixel per 32px map tile.
const DefaultScale = 0.03125

// Job is one map to render.
type Job struct {
	Name  MapName
	Scale float64

	// ID correlates the job's log lines and subprocess audit events.
	ID string
}

// NewJob creates a job with a fresh ID.
func NewJob(name MapName, scale float64) Job {
	return Job{Name: name, Scale: scale, ID: uuid.NewString()}
}

// RenderOptions tune the image-processing passes.
type RenderOptions struct {
	// EdgeThresholdPercent binarizes the auto-leveled edge map.
	EdgeThresholdPercent float64

	// DissolvePercent is the edge map's weight in the final composite.
	DissolvePercent float64

	// TempDir holds the intermediate images, and ImageMagick's own
	// scratch files; empty means os.TempDir().
	TempDir string

	// Timeout bounds each subprocess; zero means no limit.
	Timeout time.Duration
}

// DefaultRenderOptions returns the stock cell-shading parameters.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		EdgeThresholdPercent: 2.8,
		DissolvePercent:      35,
	}
}

// Renderer runs the rasterize → edge map → dissolve pipeline.
type Renderer struct {
	executor tactile.Executor
	programs Programs
	opts     RenderOptions
}

// NewRenderer creates a renderer invoking the given (resolved) programs.
func NewRenderer(executor tactile.Executor, programs Programs, opts RenderOptions) *Renderer {
	return &Renderer{executor: executor, programs: programs, opts: opts}
}

// Render draws job's map at paths.Source into paths.Dest. Intermediate
// images are removed on every return path.
func (r *Renderer) Render(ctx context.Context, job Job, paths Paths) error {
	timer := logging.StartTimer(logging.CategoryRender, "Render "+job.Name.String())
	defer timer.Stop()

	logging.RenderDebug("[%s] %s -> %s", job.ID, paths.Source, paths.Dest)

	raster, err := r.tempFile("minimap-raster-*.png")
	if err != nil {
		return err
	}
	defer removeTemp(raster)

	if err := r.run(ctx, job, r.programs.Rasterizer, RasterizeArgs(job.Scale, paths.Source, raster)); err != nil {
		return err
	}
	info, err := os.Stat(raster)
	if err != nil {
		return fmt.Errorf("stat raster: %w", err)
	}
	if info.Size() == 0 {
		return ErrMapTooLarge
	}

	edges, err := r.tempFile("minimap-edges-*.png")
	if err != nil {
		return err
	}
	defer removeTemp(edges)

	if err := r.run(ctx, job, r.programs.Convert, EdgeMapArgs(raster, edges, r.opts.EdgeThresholdPercent)); err != nil {
		return err
	}
	if err := r.run(ctx, job, r.programs.Convert, DissolveArgs(raster, edges, paths.Dest, r.opts.DissolvePercent)); err != nil {
		return err
	}

	size, err := VerifyMinimap(paths.Dest)
	if err != nil {
		return err
	}
	logging.Render("Rendered %s (%dx%d)", paths.Dest, size.X, size.Y)
	return nil
}

// run executes one pipeline stage and maps its outcome to an error.
func (r *Renderer) run(ctx context.Context, job Job, binary string, args []string) error {
	program := filepath.Base(binary)
	result, err := r.executor.Execute(ctx, tactile.Command{
		Binary:      binary,
		Arguments:   args,
		Environment: r.environment(),
		Timeout:     r.opts.Timeout,
		RequestID:   job.ID,
	})
	if err != nil {
		return fmt.Errorf("run %s: %w", program, err)
	}
	switch {
	case result.IsError():
		return fmt.Errorf("run %s: %s", program, result.Error)
	case result.Killed:
		return &ToolError{Program: program, Killed: result.KillReason}
	case result.ExitCode != 0:
		return &ToolError{Program: program, ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil
}

// environment is added to the inherited environment of every stage.
func (r *Renderer) environment() []string {
	if r.opts.TempDir == "" {
		return nil
	}
	return []string{"MAGICK_TEMPORARY_PATH=" + r.opts.TempDir}
}

// tempFile reserves an empty temporary file and returns its path.
func (r *Renderer) tempFile(pattern string) (string, error) {
	f, err := os.CreateTemp(r.opts.TempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		removeTemp(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.RenderWarn("Could not remove temp file %s: %v", path, err)
	}
}

// RasterizeArgs are the rasterizer arguments drawing src into dst.
func RasterizeArgs(scale float64, src, dst string) []string {
	return []string{"--scale", formatNumber(scale), src, dst}
}

// EdgeMapArgs extract dark outlines from raster into edges: a Laplacian
// edge detect, binarized at thresholdPercent, with the background made
// transparent.
func EdgeMapArgs(raster, edges string, thresholdPercent float64) []string {
	return []string{
		raster,
		"-set", "option:convolve:scale", "-1!",
		"-morphology", "Convolve", "Laplacian:0",
		"-colorspace", "gray",
		"-auto-level",
		"-threshold", formatNumber(thresholdPercent) + "%",
		"-negate",
		"-transparent", "white",
		edges,
	}
}

// DissolveArgs blend edges over raster at dissolvePercent into dest.
func DissolveArgs(raster, edges, dest string, dissolvePercent float64) []string {
	return []string{
		raster, edges,
		"-compose", "Dissolve",
		"-define", "compose:args=" + formatNumber(dissolvePercent),
		"-composite",
		dest,
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
