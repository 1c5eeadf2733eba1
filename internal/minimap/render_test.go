package minimap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minimaprender/internal/tactile"
)

func TestPipelineArgs(t *testing.T) {
	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{
			name: "rasterize",
			got:  RasterizeArgs(DefaultScale, "/cd/maps/007-1.tmx", "/tmp/r.png"),
			want: []string{"--scale", "0.03125", "/cd/maps/007-1.tmx", "/tmp/r.png"},
		},
		{
			name: "edge map",
			got:  EdgeMapArgs("/tmp/r.png", "/tmp/e.png", 2.8),
			want: []string{
				"/tmp/r.png",
				"-set", "option:convolve:scale", "-1!",
				"-morphology", "Convolve", "Laplacian:0",
				"-colorspace", "gray",
				"-auto-level",
				"-threshold", "2.8%",
				"-negate",
				"-transparent", "white",
				"/tmp/e.png",
			},
		},
		{
			name: "dissolve",
			got:  DissolveArgs("/tmp/r.png", "/tmp/e.png", "/cd/graphics/minimaps/007-1.png", 35),
			want: []string{
				"/tmp/r.png", "/tmp/e.png",
				"-compose", "Dissolve",
				"-define", "compose:args=35",
				"-composite",
				"/cd/graphics/minimaps/007-1.png",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func newShellRenderer(t *testing.T, p *project) *Renderer {
	t.Helper()
	programs, err := Locate(Programs{Rasterizer: "tmxrasterizer", Convert: "convert"}, nil)
	require.NoError(t, err)
	opts := DefaultRenderOptions()
	opts.TempDir = p.tmp
	return NewRenderer(tactile.NewDirectExecutor(), programs, opts)
}

func TestRenderer_Render(t *testing.T) {
	p := newProject(t)
	p.addMaps(t, "007-1.tmx")
	r := newShellRenderer(t, p)

	paths := Resolve(p.tools, MapName("007-1.tmx"), DefaultLayout())
	require.NoError(t, r.Render(context.Background(), NewJob("007-1.tmx", DefaultScale), paths))

	size, err := VerifyMinimap(paths.Dest)
	require.NoError(t, err)
	assert.Equal(t, 6, size.X)
	assert.Equal(t, 4, size.Y)

	calls := strings.Split(strings.TrimSpace(p.calls(t)), "\n")
	require.Len(t, calls, 3)
	assert.True(t, strings.HasPrefix(calls[0], "tmxrasterizer --scale 0.03125 "+paths.Source+" "))
	assert.Contains(t, calls[1], "Laplacian:0")
	assert.True(t, strings.HasSuffix(calls[2], " "+paths.Dest))

	assert.Empty(t, p.tempFiles(t), "intermediate images must be removed")
}

// envRasterizer records the variables a desktop Tiled install depends on,
// then behaves like fakeRasterizer.
const envRasterizer = `#!/bin/sh
dir=$(dirname "$0")
echo "XAUTHORITY=$XAUTHORITY LD_LIBRARY_PATH=$LD_LIBRARY_PATH QT_PLUGIN_PATH=$QT_PLUGIN_PATH MAGICK_TEMPORARY_PATH=$MAGICK_TEMPORARY_PATH" > "$dir/env.log"
cp "$dir/fixture.png" "$4"
`

func TestDriver_ToolsInheritEnvironment(t *testing.T) {
	p := newProject(t)
	p.addMaps(t, "007-1.tmx")
	require.NoError(t, os.WriteFile(filepath.Join(p.bin, "tmxrasterizer"), []byte(envRasterizer), 0755))
	t.Setenv("XAUTHORITY", "/home/dev/.Xauthority")
	t.Setenv("LD_LIBRARY_PATH", "/opt/tiled/lib")
	t.Setenv("QT_PLUGIN_PATH", "/opt/tiled/plugins")

	require.Equal(t, ExitOK, p.driver().Run(context.Background(), []string{"007-1"}))

	env, err := os.ReadFile(filepath.Join(p.bin, "env.log"))
	require.NoError(t, err)
	assert.Equal(t,
		"XAUTHORITY=/home/dev/.Xauthority LD_LIBRARY_PATH=/opt/tiled/lib QT_PLUGIN_PATH=/opt/tiled/plugins MAGICK_TEMPORARY_PATH="+p.tmp+"\n",
		string(env))
}

func TestDriver_AllowedEnvironment(t *testing.T) {
	p := newProject(t)
	p.addMaps(t, "007-1.tmx")
	require.NoError(t, os.WriteFile(filepath.Join(p.bin, "tmxrasterizer"), []byte(envRasterizer), 0755))
	t.Setenv("XAUTHORITY", "/home/dev/.Xauthority")
	t.Setenv("QT_PLUGIN_PATH", "/opt/tiled/plugins")
	p.cfg.Execution.AllowedEnvVars = []string{"PATH", "QT_PLUGIN_PATH"}

	require.Equal(t, ExitOK, p.driver().Run(context.Background(), []string{"007-1"}))

	env, err := os.ReadFile(filepath.Join(p.bin, "env.log"))
	require.NoError(t, err)
	assert.Contains(t, string(env), "XAUTHORITY= ")
	assert.Contains(t, string(env), "QT_PLUGIN_PATH=/opt/tiled/plugins ")
}

func TestRenderer_MapTooLarge(t *testing.T) {
	p := newProject(t)
	p.addMaps(t, "024-4.tmx")
	r := newShellRenderer(t, p)

	paths := Resolve(p.tools, MapName("024-4.tmx"), DefaultLayout())
	err := r.Render(context.Background(), NewJob("024-4.tmx", DefaultScale), paths)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMapTooLarge))
	assert.Equal(t, 1, strings.Count(p.calls(t), "\n"), "convert must not run")
	assert.NoFileExists(t, paths.Dest)
	assert.Empty(t, p.tempFiles(t))
}

func TestRenderer_ToolFailure(t *testing.T) {
	p := newProject(t)
	p.addMaps(t, "007-1.tmx")
	p.failConvert(t)
	r := newShellRenderer(t, p)

	paths := Resolve(p.tools, MapName("007-1.tmx"), DefaultLayout())
	err := r.Render(context.Background(), NewJob("007-1.tmx", DefaultScale), paths)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr), "got %v", err)
	assert.Equal(t, "convert", toolErr.Program)
	assert.Equal(t, 2, toolErr.ExitCode)
	assert.Equal(t, "convert returned non-zero exit status 2: convert: unable to open image", err.Error())
	assert.Empty(t, p.tempFiles(t), "intermediate images must be removed on failure too")
}

func TestRenderer_MissingSource(t *testing.T) {
	p := newProject(t)
	r := newShellRenderer(t, p)

	paths := Resolve(p.tools, MapName("099-9.tmx"), DefaultLayout())
	err := r.Render(context.Background(), NewJob("099-9.tmx", DefaultScale), paths)

	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, "tmxrasterizer", toolErr.Program)
	assert.Equal(t, 1, toolErr.ExitCode)
	assert.Contains(t, err.Error(), "Failed to open map")
	assert.Empty(t, p.tempFiles(t))
}

// stubExecutor answers every command with a canned result after letting
// write produce the command's output file (its last argument).
type stubExecutor struct {
	commands []tactile.Command
	write    func(out string) error
	result   tactile.ExecutionResult
	err      error
}

func (s *stubExecutor) Execute(_ context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	s.commands = append(s.commands, cmd)
	if s.err != nil {
		return nil, s.err
	}
	if s.write != nil {
		if err := s.write(cmd.Arguments[len(cmd.Arguments)-1]); err != nil {
			return nil, err
		}
	}
	res := s.result
	return &res, nil
}

func (s *stubExecutor) Validate(tactile.Command) error { return nil }

func writeText(out string) error {
	return os.WriteFile(out, []byte("not an image"), 0644)
}

func TestRenderer_UnreadableOutput(t *testing.T) {
	tmp := t.TempDir()
	stub := &stubExecutor{write: writeText, result: tactile.ExecutionResult{Success: true}}
	opts := DefaultRenderOptions()
	opts.TempDir = tmp
	opts.Timeout = time.Minute
	r := NewRenderer(stub, Programs{Rasterizer: "/opt/bin/tmxrasterizer", Convert: "/opt/bin/convert"}, opts)

	job := NewJob("007-1.tmx", 0.0625)
	dest := filepath.Join(tmp, "007-1.png")
	err := r.Render(context.Background(), job, Paths{Source: "/maps/007-1.tmx", Dest: dest})

	assert.True(t, errors.Is(err, ErrUnreadableMinimap), "got %v", err)
	require.Len(t, stub.commands, 3)
	for _, cmd := range stub.commands {
		assert.Equal(t, job.ID, cmd.RequestID)
		assert.Equal(t, time.Minute, cmd.Timeout)
		assert.Equal(t, []string{"MAGICK_TEMPORARY_PATH=" + tmp}, cmd.Environment)
	}
	assert.Equal(t, "/opt/bin/tmxrasterizer", stub.commands[0].Binary)
	assert.Equal(t, "0.0625", stub.commands[0].Arguments[1])

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "007-1.png", entries[0].Name())
}

func TestRenderer_KilledAndInfrastructureErrors(t *testing.T) {
	paths := Paths{Source: "/maps/007-1.tmx", Dest: filepath.Join(t.TempDir(), "007-1.png")}
	opts := DefaultRenderOptions()
	opts.TempDir = t.TempDir()
	progs := Programs{Rasterizer: "tmxrasterizer", Convert: "convert"}

	killed := &stubExecutor{result: tactile.ExecutionResult{Success: true, Killed: true, KillReason: "timeout after 1s"}}
	err := NewRenderer(killed, progs, opts).Render(context.Background(), NewJob("007-1.tmx", DefaultScale), paths)
	assert.EqualError(t, err, "tmxrasterizer was killed: timeout after 1s")

	broken := &stubExecutor{result: tactile.ExecutionResult{Error: "fork/exec: permission denied"}}
	err = NewRenderer(broken, progs, opts).Render(context.Background(), NewJob("007-1.tmx", DefaultScale), paths)
	assert.EqualError(t, err, "run tmxrasterizer: fork/exec: permission denied")

	sentinel := errors.New("binary is required")
	failing := &stubExecutor{err: sentinel}
	err = NewRenderer(failing, progs, opts).Render(context.Background(), NewJob("007-1.tmx", DefaultScale), paths)
	assert.True(t, errors.Is(err, sentinel))

	entries, readErr := os.ReadDir(opts.TempDir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestNewJob(t *testing.T) {
	a := NewJob("007-1.tmx", DefaultScale)
	b := NewJob("007-1.tmx", DefaultScale)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, DefaultScale, a.Scale)
}
