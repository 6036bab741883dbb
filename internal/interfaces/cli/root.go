// Package cli defines the casetrack command tree: the API server, the
// background expiry worker, schema migrations, and version reporting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medregula/casetrack/internal/config"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root cobra command with all subcommands.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "casetrack",
		Short:   "Regulatory deadline and compliance engine for procedure authorization cases",
		Long:    "casetrack tracks authorization cases against their competency windows,\nregistration deadlines, and obligatory procedure checklists, raising tiered\nalerts as deadlines approach and expiring cases that miss them.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment variables only)")

	cmd.AddCommand(
		newServeCmd(opts),
		newWorkerCmd(opts),
		newMigrateCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// loadConfig resolves configuration from the --config file when given,
// otherwise from CASETRACK_* environment variables alone.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.Load(opts.ConfigPath)
	}
	return config.LoadFromEnv()
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
