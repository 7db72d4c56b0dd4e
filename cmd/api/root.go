package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rsvphub",
	Short: "rsvphub event and RSVP API",
	Long: `rsvphub serves the event RSVP API: accounts, event management and
capacity-capped RSVPs over Postgres, MongoDB or an in-memory store.

Configuration is read from the environment (and a .env file when present).`,
	SilenceUsage: true,
	// no subcommand means serve
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
