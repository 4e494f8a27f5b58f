package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newListCommand builds the list subcommand.
func newListCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known plugins",
		Long: `List every known plugin: the session registry merged with on-disk
discovery. Plugins whose directories were removed out-of-band are still
shown, marked as missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newManager(flags)
			if err != nil {
				return err
			}

			infos := mgr.Get()
			if len(infos) == 0 {
				fmt.Println("no plugins installed")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tHEAD\tSTATE\tSOURCE")
			for _, info := range infos {
				state := "installed"
				if !info.Installed {
					state = "missing"
				}
				version := info.Version
				if version == "" {
					version = "any"
				}
				head := info.Head
				if len(head) > 7 {
					head = head[:7]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					info.Name, version, head, state, info.Source)
			}
			return w.Flush()
		},
	}
}
