package main

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagOrg        string
	flagToken      string
	flagConfigFile string
	flagDryRun     bool
	flagVerbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "forksync",
	Short: "Keeps every fork of a GitHub organization in sync with its upstream",
	Long: `A batch tool that walks all forked repositories of a GitHub organization,
merges upstream changes into each fork, and keeps timestamped zip backups
of every repository that changed.

Each run:
- Lists all forks of the organization
- Merges the upstream default branch into each fork
- Downloads a zip archive of repositories that changed (or have no backup yet)
- Prunes old archives beyond the retention count
- Optionally updates repository descriptions and the org profile README`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context())
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOrg, "org", "o", "", "GitHub organization to sync (or set ORG env var)")
	rootCmd.PersistentFlags().StringVarP(&flagToken, "token", "t", "", "GitHub access token (or set GITHUB_TOKEN env var)")
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "Show what would be done without making changes")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose output")
}
