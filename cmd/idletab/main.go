// idletab closes browser tabs that have not been used for a configurable
// number of days. A single daemon tracks tab activity; this binary is both
// the daemon and its command-line client.
package main

import (
	"os"

	"github.com/corey/idletab/cmd/idletab/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
