// Package commands implements the barkeep CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root CLI command with all subcommands
// registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "barkeep",
		Short: "barkeep - chat-command bot for Discord",
		Long: `barkeep is a Discord bot driven by chat commands: multi-provider
AI chat, per-channel music queues, clip extraction with size previews,
and web/computational search.

Examples:
  barkeep serve
  barkeep serve --config ./config.yaml
  barkeep db stats`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newDBCmd(),
		newKeyCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
