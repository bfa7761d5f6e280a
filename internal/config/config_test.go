package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr())
	assert.Equal(t, 10*time.Minute, cfg.ScrapeInterval)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "archive", cfg.ArchiveDir)
	assert.Empty(t, cfg.ScrapeSources)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROWTRACKER_SERVER_PORT", "9090")
	t.Setenv("ROWTRACKER_DB_HOST", "db.internal")
	t.Setenv("ROWTRACKER_SCRAPE_INTERVAL", "5m")
	t.Setenv("ROWTRACKER_SCRAPE_SOURCES", "https://example.com/race1,https://example.com/race2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 5*time.Minute, cfg.ScrapeInterval)
	assert.Equal(t, []string{
		"https://example.com/race1",
		"https://example.com/race2",
	}, cfg.ScrapeSources)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server_port: 9000\nlog_level: debug\nscrape_sources:\n  - https://example.com/race1\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	t.Setenv("ROWTRACKER_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.ServerPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://example.com/race1"}, cfg.ScrapeSources)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_port: 9000\n"), 0o644))
	t.Setenv("ROWTRACKER_CONFIG", path)
	t.Setenv("ROWTRACKER_SERVER_PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.ServerPort)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("ROWTRACKER_SERVER_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_port")
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	cfg := New()
	cfg.ScrapeInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scrape_interval")
}

func TestDatabaseDSN(t *testing.T) {
	cfg := New()
	cfg.DBHost = "db.internal"
	cfg.DBPassword = "secret"

	assert.Equal(t,
		"host=db.internal port=5432 user=rowtracker password=secret dbname=rowtracker sslmode=disable",
		cfg.DatabaseDSN())
}
