package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths under the data directory.
// All fields are pre-computed strings — zero-alloc access after construction.
type Paths struct {
	Root   string // ~/.idletab/
	DB     string // ~/.idletab/idletab.db
	Config string // ~/.idletab/config.yaml

	LogDir    string // ~/.idletab/log/
	DaemonLog string // ~/.idletab/log/daemon.log

	RunDir   string // ~/.idletab/run/
	PIDFile  string // ~/.idletab/run/daemon.pid
	AddrFile string // ~/.idletab/run/http.addr
}

// NewPaths constructs all resolved paths from the data directory.
func NewPaths(root string) *Paths {
	return &Paths{
		Root:   root,
		DB:     filepath.Join(root, "idletab.db"),
		Config: filepath.Join(root, "config.yaml"),

		LogDir:    filepath.Join(root, "log"),
		DaemonLog: filepath.Join(root, "log", "daemon.log"),

		RunDir:   filepath.Join(root, "run"),
		PIDFile:  filepath.Join(root, "run", "daemon.pid"),
		AddrFile: filepath.Join(root, "run", "http.addr"),
	}
}

// EnsureDirs creates all subdirectories. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// migration defines a single file move from old flat layout to new subdirectory layout.
type migration struct {
	oldName string // relative to Root (flat)
	newPath string // absolute destination path
}

// Migrate moves runtime files from the flat layout into log/ and run/.
// Returns the number of files moved. Idempotent: skips if source is missing or
// destination already exists.
func (p *Paths) Migrate() (int, error) {
	moves := []migration{
		{"daemon.log", p.DaemonLog},
		{"daemon.pid", p.PIDFile},
		{"http.addr", p.AddrFile},
	}

	count := 0
	for _, m := range moves {
		oldPath := filepath.Join(p.Root, m.oldName)

		// Skip if source doesn't exist.
		if _, err := os.Stat(oldPath); err != nil {
			continue
		}

		// Don't overwrite existing destination.
		if _, err := os.Stat(m.newPath); err == nil {
			continue
		}

		if err := os.Rename(oldPath, m.newPath); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// CleanEphemeral removes ephemeral runtime files (PID file and address file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.AddrFile)
}
