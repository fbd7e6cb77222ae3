package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/idletab/internal/adapters/bbolt"
	"github.com/corey/idletab/internal/adapters/socket"
	"github.com/corey/idletab/internal/app"
)

var (
	resetForce   bool
	resetProfile string
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget all recorded tab activity",
	Long: "Deletes the activity ledger, the test-tab set, and the saved settings for a profile. " +
		"Every open tab starts tracking from scratch on the next daemon start. The daemon must be stopped.",
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "Skip confirmation prompt")
	resetCmd.Flags().StringVar(&resetProfile, "profile", bbolt.DefaultProfile, "Storage profile to clear")
}

func runReset(cmd *cobra.Command, args []string) error {
	root, err := dataDir()
	if err != nil {
		return err
	}

	// The daemon holds the database lock and caches the test-tab set.
	if socket.NewClient(socket.SocketPath(root)).Ping() {
		return fmt.Errorf("daemon is running. Stop it first: idletab daemon stop")
	}

	dbPath := app.NewPaths(root).DB
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("no data to reset")
		return nil
	}

	if !resetForce {
		fmt.Printf("This will forget all tab activity for profile %q. Continue? [y/N] ", resetProfile)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	cleared, err := clearProfile(dbPath, resetProfile)
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("cannot reset: %s", diagnoseDBLock(root))
		}
		return err
	}
	if len(cleared) == 0 {
		fmt.Println("profile already empty")
		return nil
	}
	fmt.Printf("reset %s (%s)\n", resetProfile, strings.Join(cleared, ", "))
	return nil
}

// clearProfile deletes one profile bucket and returns the keys it held.
func clearProfile(dbPath, profile string) ([]string, error) {
	store, err := bbolt.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	keys, err := store.Profile(profile).Keys()
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	if err := store.DeleteProfile(profile); err != nil {
		return nil, fmt.Errorf("delete profile: %w", err)
	}
	return keys, nil
}
