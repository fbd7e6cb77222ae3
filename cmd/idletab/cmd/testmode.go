package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testModeCmd = &cobra.Command{
	Use:   "testmode",
	Short: "Open test tabs that the next cleanup will close",
	Long: "Opens background tabs already past the inactivity threshold. Run 'idletab cleanup'\n" +
		"afterwards to watch them close.",
	RunE: runTestMode,
}

func runTestMode(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}
	res, err := client.StartTestMode()
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("test mode: %s", res.Error)
	}
	fmt.Printf("⚡ opened %d test tabs — run 'idletab cleanup' to close them\n", res.Created)
	return nil
}
