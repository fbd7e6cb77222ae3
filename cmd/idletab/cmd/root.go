package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/config"
)

var dataDirFlag string

var rootCmd = &cobra.Command{
	Use:           "idletab",
	Short:         "idletab — close browser tabs you stopped using",
	Long:          "Tracks when each browser tab was last used and closes the ones idle past a threshold.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// dataDir returns the data directory: --data-dir, then IDLETAB_DATA_DIR, then ~/.idletab.
func dataDir() (string, error) {
	if dataDirFlag != "" {
		return dataDirFlag, nil
	}
	if dir := os.Getenv(config.EnvPrefix + "_DATA_DIR"); dir != "" {
		return dir, nil
	}
	return config.DefaultDataDir()
}

// daemonClient returns a client for the running daemon, or an error telling
// the user how to start one.
func daemonClient() (*socket.Client, error) {
	root, err := dataDir()
	if err != nil {
		return nil, err
	}
	client := socket.NewClient(socket.SocketPath(root))
	if !client.Ping() {
		return nil, fmt.Errorf("daemon not running. Start with: idletab daemon start")
	}
	return client, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "data directory (default ~/.idletab)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(testModeCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(focusCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(openCmd)
}
