package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	setDays    int
	setEnable  bool
	setDisable bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change sweeper settings",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current settings",
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the settings",
	Long:  "Changes only the given values. --days must be between 1 and 365.",
	RunE:  runSettingsSet,
}

func init() {
	settingsSetCmd.Flags().IntVar(&setDays, "days", 0, "inactivity threshold in days (1-365)")
	settingsSetCmd.Flags().BoolVar(&setEnable, "enable", false, "enable automatic closing")
	settingsSetCmd.Flags().BoolVar(&setDisable, "disable", false, "disable automatic closing")
	settingsSetCmd.MarkFlagsMutuallyExclusive("enable", "disable")

	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	client, err := daemonClient()
	if err != nil {
		return err
	}
	set, err := client.Settings()
	if err != nil {
		return err
	}
	fmt.Print(formatSettings(set))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("days") && !setEnable && !setDisable {
		return fmt.Errorf("nothing to change: pass --days, --enable, or --disable")
	}
	client, err := daemonClient()
	if err != nil {
		return err
	}
	set, err := client.Settings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("days") {
		set.InactiveDaysThreshold = setDays
	}
	if setEnable {
		set.Enabled = true
	}
	if setDisable {
		set.Enabled = false
	}

	res, err := client.SaveSettings(*set)
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%s", res.Error)
	}
	fmt.Printf("⚡ settings saved\n")
	fmt.Print(formatSettings(set))
	return nil
}
