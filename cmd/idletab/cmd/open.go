package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/idletab/internal/app"
)

var openCmd = &cobra.Command{
	Use:   "open",
	Short: "Open the web dashboard in a browser",
	Long:  "Opens the idletab dashboard in your default browser. Requires the daemon to be running.",
	RunE:  runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	if _, err := daemonClient(); err != nil {
		return err
	}
	root, err := dataDir()
	if err != nil {
		return err
	}

	url, err := dashboardURL(app.NewPaths(root).AddrFile)
	if err != nil {
		return fmt.Errorf("dashboard not available: %w\n  → check http_addr with: idletab config", err)
	}

	name, cmdArgs, err := openerFor(runtime.GOOS, url)
	if err == nil {
		err = exec.Command(name, cmdArgs...).Start()
	}
	if err != nil {
		fmt.Printf("⚡ dashboard: %s\n", url)
		fmt.Printf("  (could not open browser: %v)\n", err)
		return nil
	}

	fmt.Printf("⚡ opening %s\n", url)
	return nil
}

// dashboardURL reads the address the daemon published for its HTTP server.
func dashboardURL(addrFile string) (string, error) {
	data, err := os.ReadFile(addrFile)
	if err != nil {
		return "", err
	}
	addr := strings.TrimSpace(string(data))
	if addr == "" {
		return "", fmt.Errorf("empty address file %s", addrFile)
	}
	return "http://" + addr, nil
}

// openerFor returns the command that opens url on goos.
func openerFor(goos, url string) (string, []string, error) {
	switch goos {
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("unsupported platform %s", goos)
	}
}
