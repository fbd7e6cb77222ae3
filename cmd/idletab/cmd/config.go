package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/app"
	"github.com/corey/idletab/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows data paths, daemon status, and the effective configuration. No daemon required.",
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	root, err := dataDir()
	if err != nil {
		return err
	}
	paths := app.NewPaths(root)
	sockPath := socket.SocketPath(root)

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	client := socket.NewClient(sockPath)
	daemonRunning := client.Ping()
	daemonStatus := fmt.Sprintf("%s✗ not running%s", colorYellow, colorReset)
	if daemonRunning {
		daemonStatus = fmt.Sprintf("%s✓ running%s", colorGreen, colorReset)
	}

	fmt.Printf("%s⚡ idletab config%s\n", colorBold, colorReset)
	fmt.Printf("  Data:       %s\n", paths.Root)
	fmt.Printf("  Config:     %s\n", paths.Config)
	fmt.Printf("  DB:         %s\n", paths.DB)
	fmt.Printf("  Log:        %s\n", paths.DaemonLog)
	fmt.Printf("  Socket:     %s\n", sockPath)
	fmt.Printf("  Daemon:     %s\n", daemonStatus)

	if daemonRunning {
		if url, err := dashboardURL(paths.AddrFile); err == nil {
			fmt.Printf("  Dashboard:  %s\n", url)
		}
	}

	data, err := cfg.YAML()
	if err != nil {
		return err
	}
	fmt.Printf("\n%s# effective configuration%s\n%s", colorGray, colorReset, data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := dataDir()
	if err != nil {
		return err
	}
	path := config.Path(root)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(config.Default(root)); err != nil {
		return err
	}
	fmt.Printf("⚡ wrote %s\n", path)
	return nil
}
