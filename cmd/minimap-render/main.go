package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"minimaprender/internal/config"
	"minimaprender/internal/logging"
	"minimaprender/internal/minimap"
)

const programName = "minimap-render"

// options holds the flags shared by all commands.
type options struct {
	verbose    bool
	configPath string
	renderAll  bool
	scale      float64

	cfg *config.Config
}

// exitStatus carries a process exit code out of cobra.
type exitStatus int

func (s exitStatus) Error() string {
	return fmt.Sprintf("exit status %d", int(s))
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   programName + " MAP_NAME...",
		Short: "Render Tiled maps into stylized minimap thumbnails",
		Long: `Renders maps/NNN-D.tmx into graphics/minimaps/NNN-D.png.

Each map is drawn by tmxrasterizer at 1px per 32px tile, then ImageMagick
extracts an edge map from the raster and dissolves it back over the raster
to outline walls and paths. Must be run from client-data/tools.

Exit status is the number of maps that failed (at most 125), 127 without
arguments, 126 when a required program is missing, and 1 when run from
the wrong directory.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Usage only; leave the filesystem alone.
			if !cmd.HasParent() && len(args) == 0 && !opts.renderAll {
				return nil
			}
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Config file")
	flags.Float64Var(&opts.scale, "scale", minimap.DefaultScale, "Output pixels per map pixel (overrides render.scale)")
	rootCmd.Flags().BoolVarP(&opts.renderAll, "all", "a", false, "Render every map in the maps directory")

	rootCmd.AddCommand(newWatchCmd(opts), newInitConfigCmd(opts))
	return rootCmd
}

// setup loads the config and installs the logger.
func (o *options) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("scale") {
		cfg.Render.Scale = o.scale
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", o.configPath, err)
	}
	o.cfg = cfg

	level := logging.ParseLevel(cfg.Logging.Level)
	if o.verbose {
		level = zapcore.DebugLevel
	}
	logger, err := logging.New(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetLogger(logger)
	logging.BootDebug("Config %s: scale=%v root=%s", o.configPath, cfg.Render.Scale, cfg.ProjectRootName)
	return nil
}

// driver builds a driver for the current working directory.
func (o *options) driver(cmd *cobra.Command) (*minimap.Driver, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	d := minimap.NewDriver(o.cfg, wd, cmd.OutOrStdout(), cmd.ErrOrStderr())
	d.ProgramName = programName
	return d, nil
}

func runRender(cmd *cobra.Command, opts *options, args []string) error {
	if len(args) == 0 && !opts.renderAll {
		minimap.WriteUsage(cmd.ErrOrStderr(), programName)
		return exitStatus(minimap.ExitUsage)
	}

	d, err := opts.driver(cmd)
	if err != nil {
		return err
	}

	var status int
	if opts.renderAll {
		if len(args) > 0 {
			return fmt.Errorf("--all does not take map names")
		}
		status = d.RunAll(cmd.Context())
	} else {
		status = d.Run(cmd.Context(), args)
	}
	if status != minimap.ExitOK {
		return exitStatus(status)
	}
	return nil
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	_ = logging.Root().Sync()
	logging.SetLogger(nil)

	var status exitStatus
	switch {
	case errors.As(err, &status):
		return int(status)
	case err != nil:
		fmt.Fprintln(stderr, err)
		return minimap.ExitFailure
	}
	return minimap.ExitOK
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
