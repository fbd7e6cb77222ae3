package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/idletab/internal/adapters/bbolt"
	"github.com/corey/idletab/internal/adapters/cdp"
	"github.com/corey/idletab/internal/adapters/memhost"
	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/app"
	"github.com/corey/idletab/internal/config"
	"github.com/corey/idletab/internal/ports"
)

var (
	hostFlag     string
	cdpURLFlag   string
	headlessFlag bool
	profileFlag  string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the idletab daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long: "Starts the daemon and blocks until interrupted or stopped with 'idletab daemon stop'.\n" +
		"--host=cdp drives a Chromium browser over the DevTools protocol; --host=memory runs\n" +
		"against an empty in-memory browser for dry runs.",
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonStartCmd.Flags().StringVar(&hostFlag, "host", "", "browser backend: cdp or memory (default from config)")
	daemonStartCmd.Flags().StringVar(&cdpURLFlag, "cdp-url", "", "DevTools websocket URL of a running browser")
	daemonStartCmd.Flags().BoolVar(&headlessFlag, "headless", false, "launch the browser headless")
	daemonStartCmd.Flags().StringVar(&profileFlag, "profile", bbolt.DefaultProfile, "storage profile for this browser")

	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	root, err := dataDir()
	if err != nil {
		return err
	}
	paths := app.NewPaths(root)
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if _, err := paths.Migrate(); err != nil {
		return fmt.Errorf("migrate data dir: %w", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if cdpURLFlag != "" {
		cfg.CDPControlURL = cdpURLFlag
	}
	if headlessFlag {
		cfg.Headless = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sockPath := socket.SocketPath(root)
	if socket.NewClient(sockPath).Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	logFile, err := os.OpenFile(paths.DaemonLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	logger := newLogger(cfg, logFile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		tabs   ports.TabDirectory
		events ports.EventSource
	)
	switch cfg.Host {
	case config.HostMemory:
		tabs = memhost.NewBrowser()
	default:
		host, err := cdp.Connect(ctx, cdp.Config{
			ControlURL: cfg.CDPControlURL,
			Bin:        cfg.BrowserBin,
			Headless:   cfg.Headless,
		}, logger)
		if err != nil {
			return err
		}
		defer host.Close()
		tabs, events = host, host
	}

	a, err := app.New(app.Options{
		Paths:      paths,
		Config:     cfg,
		Tabs:       tabs,
		Events:     events,
		SocketPath: sockPath,
		Profile:    profileFlag,
		Logger:     logger,
	})
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%s", diagnoseDBLock(root))
		}
		return fmt.Errorf("init: %w", err)
	}

	if err := os.WriteFile(paths.PIDFile, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		logger.Warn().Err(err).Msg("write pid file")
	}

	fmt.Printf("⚡ idletab daemon started at %s (host: %s)\n", sockPath, cfg.Host)
	if cfg.HTTPAddr != "" {
		fmt.Printf("⚡ dashboard: http://%s\n", cfg.HTTPAddr)
	}
	fmt.Printf("  log: %s\n", paths.DaemonLog)

	err = a.Run(ctx)
	fmt.Println("\n⚡ shutting down...")
	return err
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	root, err := dataDir()
	if err != nil {
		return err
	}
	client := socket.NewClient(socket.SocketPath(root))

	if !client.Ping() {
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
