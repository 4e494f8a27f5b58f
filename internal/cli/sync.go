package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/keypack/internal/luaconf"
	"github.com/dshills/keypack/internal/pack"
)

// newSyncCommand builds the sync subcommand.
func newSyncCommand(flags *rootFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Install plugins declared in the spec file",
		Long: `Read the Lua plugin spec file and install every declared plugin that
is not yet present on disk. Plugins on disk but absent from the file are
left alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := luaconf.Load(flags.SpecFile)
			if err != nil {
				return fmt.Errorf("load %s: %w", flags.SpecFile, err)
			}
			if len(specs) == 0 {
				fmt.Println("spec file declares no plugins")
				return nil
			}
			slog.Debug("loaded spec file", "path", flags.SpecFile, "specs", len(specs))

			mgr, err := newManager(flags)
			if err != nil {
				return err
			}
			return mgr.Add(cmd.Context(), specs, pack.AddOptions{Force: force})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-checkout plugins that are already installed")

	return cmd
}
