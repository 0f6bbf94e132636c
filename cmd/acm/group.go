package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage profile groups",
}

var groupToggleCmd = &cobra.Command{
	Use:   "toggle <group>",
	Short: "Collapse or expand a group in the interactive list",
	Long: `Collapse or expand a group. The state is remembered.

Examples:
  acm group toggle openrouter`,
	Args: cobra.ExactArgs(1),
	RunE: runGroupToggle,
}

func init() {
	groupCmd.AddCommand(groupToggleCmd)
	rootCmd.AddCommand(groupCmd)
}

func runGroupToggle(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	if svc.Profiles().ToggleGroup(args[0]) {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Collapsed group: %s\n", args[0])
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Expanded group: %s\n", args[0])
	return nil
}
