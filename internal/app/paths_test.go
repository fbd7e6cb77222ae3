package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/home/u/.idletab")
	assert.Equal(t, "/home/u/.idletab", p.Root)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "idletab.db"), p.DB)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "config.yaml"), p.Config)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "log"), p.LogDir)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "log", "daemon.log"), p.DaemonLog)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "run"), p.RunDir)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "run", "daemon.pid"), p.PIDFile)
	assert.Equal(t, filepath.Join("/home/u/.idletab", "run", "http.addr"), p.AddrFile)
}

func TestEnsureDirs(t *testing.T) {
	p := NewPaths(filepath.Join(t.TempDir(), ".idletab"))

	// First call creates directories.
	require.NoError(t, p.EnsureDirs())
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		info, err := os.Stat(d)
		require.NoError(t, err, "dir %s should exist", d)
		assert.True(t, info.IsDir())
	}

	// Second call is idempotent — no error.
	require.NoError(t, p.EnsureDirs())
}

func TestMigrate_FreshInstall(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())

	count, err := p.Migrate()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrate_OldLayout(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())

	oldFiles := map[string]string{
		"daemon.log": "log data",
		"daemon.pid": "12345",
		"http.addr":  "127.0.0.1:19017",
	}
	for name, content := range oldFiles {
		require.NoError(t, os.WriteFile(filepath.Join(p.Root, name), []byte(content), 0644))
	}

	count, err := p.Migrate()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for path, want := range map[string]string{
		p.DaemonLog: "log data",
		p.PIDFile:   "12345",
		p.AddrFile:  "127.0.0.1:19017",
	} {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))
	}

	// Old files should be gone.
	for name := range oldFiles {
		_, err := os.Stat(filepath.Join(p.Root, name))
		assert.True(t, os.IsNotExist(err), "old file %s should be removed", name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())

	require.NoError(t, os.WriteFile(filepath.Join(p.Root, "daemon.pid"), []byte("99"), 0644))

	count1, err := p.Migrate()
	require.NoError(t, err)
	assert.Equal(t, 1, count1)

	// Second call: source gone, dest exists -> count=0.
	count2, err := p.Migrate()
	require.NoError(t, err)
	assert.Equal(t, 0, count2)
}

func TestMigrate_NoOverwrite(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())

	require.NoError(t, os.WriteFile(filepath.Join(p.Root, "daemon.pid"), []byte("old"), 0644))
	require.NoError(t, os.WriteFile(p.PIDFile, []byte("new"), 0644))

	count, err := p.Migrate()
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	data, err := os.ReadFile(p.PIDFile)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	// Old file should still exist (not deleted when dest exists).
	data, err = os.ReadFile(filepath.Join(p.Root, "daemon.pid"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestCleanEphemeral(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())
	require.NoError(t, os.WriteFile(p.PIDFile, []byte("1"), 0644))
	require.NoError(t, os.WriteFile(p.AddrFile, []byte("x"), 0644))

	p.CleanEphemeral()
	_, err := os.Stat(p.PIDFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(p.AddrFile)
	assert.True(t, os.IsNotExist(err))
}
