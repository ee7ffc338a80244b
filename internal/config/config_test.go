package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HendryAvila/cardvault/internal/fetch"
)

func TestMain(m *testing.M) {
	// Each test points HOME at its own temp dir.
	homedir.DisableCache = true
	os.Exit(m.Run())
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cardvault.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxSearchResults)
	assert.Equal(t, fetch.DefaultSource, cfg.MTGJSONURL)
	assert.Equal(t, fetch.DefaultTimeout, cfg.DownloadTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1000, cfg.ImportBatchSize)
	assert.False(t, cfg.InMemory)
	assert.Empty(t, cfg.File)
	assert.Equal(t, ".cardvault", filepath.Base(cfg.DataDir))
}

func TestLoad_File(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dataDir := t.TempDir()
	path := writeFile(t, `
data_dir: `+dataDir+`
max_search_results: 10
download_timeout: 30s
log_level: debug
import_batch_size: 250
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, 10, cfg.MaxSearchResults)
	assert.Equal(t, 30*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250, cfg.ImportBatchSize)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_HomeFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, ".cardvault.yaml"), []byte("max_search_results: 7\n"), 0o644))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxSearchResults)
	assert.Equal(t, filepath.Join(home, ".cardvault.yaml"), cfg.File)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeFile(t, "max_search_results: 10\nin_memory: false\n")
	t.Setenv("CARDVAULT_MAX_SEARCH_RESULTS", "3")
	t.Setenv("CARDVAULT_IN_MEMORY", "true")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxSearchResults)
	assert.True(t, cfg.InMemory)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := writeFile(t, "max_search_results: 0\nlog_level: loud\n")

	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_search_results")
	assert.Contains(t, err.Error(), "log_level")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConfig_Conversions(t *testing.T) {
	cfg := Config{
		DataDir:          "/var/lib/cardvault",
		MaxSearchResults: 5,
		MTGJSONURL:       "http://mirror.local/AllPrintings.sqlite",
		DownloadTimeout:  time.Minute,
		ImportBatchSize:  42,
	}

	v := cfg.Vault(nil)
	assert.Equal(t, "/var/lib/cardvault", v.DataDir)
	assert.Equal(t, 5, v.MaxSearchResults)

	f := cfg.Fetch(nil, "cardvault/test")
	assert.Equal(t, "http://mirror.local/AllPrintings.sqlite", f.DefaultSource)
	assert.Equal(t, time.Minute, f.Timeout)

	assert.Equal(t, 42, cfg.Ingest(nil).BatchSize)
	assert.Equal(t, "/var/lib/cardvault/AllPrintings.sqlite", cfg.SnapshotPath())
}
