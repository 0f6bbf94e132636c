package main

import (
	"context"
	"fmt"

	"acm/internal/tui"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse and apply profiles interactively",
	Long: `Open the interactive profile list.

The list reloads when the host's settings change on disk, so the ON marker
follows connections switched elsewhere.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	// Log output would tear the full-screen view
	if err := setupLogging(svc.ConfigDir(), true); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var changes <-chan struct{}
	if h := svc.Host(); h != nil {
		if changes, err = h.Watch(ctx); err != nil {
			log.WithError(err).Warn("watching host settings")
			changes = nil
		}
	}

	return tui.Run(svc.Profiles(), tui.NewKeyMap(svc.Config().Keybindings), changes)
}
