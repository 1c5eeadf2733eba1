package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minimaprender/internal/config"
)

func newInitConfigCmd(opts *options) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		Long: `Writes the built-in defaults to the --config path (minimap-render.yaml
by default) as a starting point for local overrides. An existing file is
kept unless --force is given.`,
		Args: cobra.NoArgs,
		// The file being written may not exist or parse yet.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			}
			if err := config.DefaultConfig().Save(opts.configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}
