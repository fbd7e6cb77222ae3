package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile tab timers with the browser",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}
	if err := client.SyncTimers(); err != nil {
		return err
	}
	fmt.Println("⚡ timers synced")
	return nil
}
