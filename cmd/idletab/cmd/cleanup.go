package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Close inactive tabs now",
	RunE:  runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}

	result, err := client.ForceCleanup()
	if err != nil {
		return err
	}

	fmt.Print(formatCleanup(result))
	return nil
}
