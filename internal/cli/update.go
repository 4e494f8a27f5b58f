package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/keypack/internal/pack"
)

// newUpdateCommand builds the update subcommand.
func newUpdateCommand(flags *rootFlags) *cobra.Command {
	var force, offline bool

	cmd := &cobra.Command{
		Use:   "update [name]...",
		Short: "Update installed plugins",
		Long: `Fetch remote changes and update plugins to their resolved versions.

Without --force, a review screen shows pending updates; individual plugins
can be dropped from the set before applying. With no names, all known
plugins are updated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(flags)
			if err != nil {
				return err
			}
			return mgr.Update(cmd.Context(), args, pack.UpdateOptions{
				Force:   force,
				Offline: offline,
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "apply updates without confirmation")
	cmd.Flags().BoolVar(&offline, "offline", false, "skip the remote fetch")

	return cmd
}
