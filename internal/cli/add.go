package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/dshills/keypack/internal/pack"
)

// newAddCommand builds the add subcommand.
func newAddCommand(flags *rootFlags) *cobra.Command {
	var force bool
	var name, version string

	cmd := &cobra.Command{
		Use:   "add <spec>...",
		Short: "Install plugins",
		Long: `Install one or more plugins into the package root.

A spec is a source URI, optionally a JSON object with source, name, and
version fields:

  keypack add https://github.com/owner/plugin
  keypack add '{"source":"https://github.com/owner/plugin","version":"^1.0"}'

The --name and --version flags apply when exactly one spec is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]pack.Spec, 0, len(args))
			for _, arg := range args {
				specs = append(specs, parseSpecArg(arg))
			}

			if len(specs) == 1 {
				if name != "" {
					specs[0].Name = name
				}
				if version != "" {
					specs[0].Version = version
				}
			}

			mgr, err := newManager(flags)
			if err != nil {
				return err
			}
			return mgr.Add(cmd.Context(), specs, pack.AddOptions{Force: force})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "re-checkout plugins that are already installed")
	cmd.Flags().StringVar(&name, "name", "", "override the plugin directory name")
	cmd.Flags().StringVar(&version, "version", "", "version constraint (commit, tag, branch, range, or frozen)")

	return cmd
}

// parseSpecArg interprets a command-line spec argument: a JSON object or a
// bare source string.
func parseSpecArg(arg string) pack.Spec {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "{") && gjson.Valid(trimmed) {
		return pack.Spec{
			Source:  gjson.Get(trimmed, "source").String(),
			Name:    gjson.Get(trimmed, "name").String(),
			Version: gjson.Get(trimmed, "version").String(),
		}
	}
	return pack.ParseSpec(arg)
}
