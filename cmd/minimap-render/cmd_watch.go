package main

import (
	"github.com/spf13/cobra"

	"minimaprender/internal/minimap"
)

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-render maps as their .tmx files change",
		Long: `Watches the maps directory and re-renders every NNN-D.tmx that is
created or saved, one map at a time, until interrupted.

Exit status is the number of renders that failed, at most 125.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.driver(cmd)
			if err != nil {
				return err
			}
			if status := d.Watch(cmd.Context()); status != minimap.ExitOK {
				return exitStatus(status)
			}
			return nil
		},
	}
}
