// Package cli implements the keypack command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/keypack/internal/pack"
	"github.com/dshills/keypack/internal/tui"
)

// rootFlags holds flags shared by every subcommand.
type rootFlags struct {
	Root        string
	SpecFile    string
	Concurrency int
	Timeout     time.Duration
	Verbose     bool
}

// NewRootCommand builds the keypack command tree.
func NewRootCommand(version string) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "keypack",
		Short: "keypack - git-driven plugin package manager",
		Long: `keypack installs and updates editor plugins by driving git directly.

Plugins live under a single package root, one directory per plugin, with
directory presence as the install-state source of truth. Updates are
reviewed interactively before anything moves unless --force is given.`,
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if flags.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.Root, "root", defaultRoot(), "package root directory")
	pf.StringVar(&flags.SpecFile, "config", defaultSpecFile(), "plugin spec file (Lua)")
	pf.IntVar(&flags.Concurrency, "concurrency", 0, "parallel job limit (0 = auto)")
	pf.DurationVar(&flags.Timeout, "timeout", 0, "per-job timeout (0 = default)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newAddCommand(flags))
	rootCmd.AddCommand(newUpdateCommand(flags))
	rootCmd.AddCommand(newListCommand(flags))
	rootCmd.AddCommand(newSyncCommand(flags))

	return rootCmd
}

// newManager constructs the pack manager from shared flags.
func newManager(flags *rootFlags) (*pack.Manager, error) {
	slog.Debug("creating manager", "root", flags.Root)

	return pack.New(pack.Config{
		Root:        flags.Root,
		Concurrency: flags.Concurrency,
		Timeout:     flags.Timeout,
		Notify: func(msg string) {
			fmt.Println(msg)
		},
		Confirm: tui.NewConfirmer(),
	})
}

// defaultRoot returns the package root, honoring KEYPACK_ROOT.
func defaultRoot() string {
	if root := os.Getenv("KEYPACK_ROOT"); root != "" {
		return root
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "keypack"
	}
	return filepath.Join(home, ".local", "share", "keypack")
}

// defaultSpecFile returns the plugin spec file location, honoring
// KEYPACK_CONFIG.
func defaultSpecFile() string {
	if cfg := os.Getenv("KEYPACK_CONFIG"); cfg != "" {
		return cfg
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "plugins.lua"
	}
	return filepath.Join(dir, "keypack", "plugins.lua")
}
