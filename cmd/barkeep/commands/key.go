package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jholhewres/barkeep/pkg/barkeep/provider"
)

// newKeyCmd creates the `barkeep key` commands for managing provider
// API keys in the OS keyring. Keys stored here win over the config file
// but lose to environment variables.
func newKeyCmd() *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys in the OS keyring",
	}

	keyCmd.AddCommand(
		&cobra.Command{
			Use:   "set <provider> [value]",
			Short: "Store a provider's API key",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				value := ""
				if len(args) == 2 {
					value = args[1]
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "API key for %s: ", args[0])
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil {
						return err
					}
					value = strings.TrimSpace(line)
				}
				if value == "" {
					return fmt.Errorf("empty API key")
				}
				if err := provider.StoreKey(args[0], value); err != nil {
					return fmt.Errorf("storing key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key for %s stored in the OS keyring.\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "unset <provider>",
			Short: "Remove a provider's API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := provider.DeleteKey(args[0]); err != nil {
					return fmt.Errorf("removing key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key for %s removed from the OS keyring.\n", args[0])
				return nil
			},
		},
	)
	return keyCmd
}
