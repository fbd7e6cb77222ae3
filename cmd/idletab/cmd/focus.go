package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var focusCmd = &cobra.Command{
	Use:   "focus <tab-id>",
	Short: "Bring a tab to the front",
	Args:  cobra.ExactArgs(1),
	RunE:  runFocus,
}

func runFocus(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid tab id %q", args[0])
	}
	client, err := daemonClient()
	if err != nil {
		return err
	}
	return client.FocusTab(id)
}
