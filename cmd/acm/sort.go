package main

import (
	"encoding/json"
	"fmt"

	"acm/internal/domain"

	"github.com/spf13/cobra"
)

var sortCmd = &cobra.Command{
	Use:   "sort [group|usage|name]",
	Short: "Show or set the profile list order",
	Long: `Show or set how profiles are ordered.

  group  groups ranked by combined use this week, lone profiles mixed in
  usage  most used this week first
  name   alphabetical

Examples:
  acm sort
  acm sort usage`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(domain.SortGroup), string(domain.SortUsage), string(domain.SortName)},
	RunE:      runSort,
}

func init() {
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	var mode domain.SortMode
	if len(args) == 1 {
		var ok bool
		if mode, ok = domain.ParseSortMode(args[0]); !ok {
			return fmt.Errorf("unknown sort mode %q (use group, usage or name)", args[0])
		}
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	m := svc.Profiles()
	if mode != "" {
		m.SetSortMode(mode)
	}
	current := m.SortMode()

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"sort": string(current)})
	}
	if mode != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Sorting by %s\n", current)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sorting by %s\n", current)
	return nil
}
