package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "pages/commercial_kpi.py", cfg.Guard.ProtectedFile)
	assert.Equal(t, "stable-dashboard", cfg.Guard.StableTag)
	assert.Equal(t, "data/news.db", cfg.Store.DBPath)
	assert.Equal(t, 6*time.Hour, cfg.Scheduler.Interval)
	assert.False(t, cfg.Scheduler.Oneshot)
	assert.Empty(t, cfg.Scheduler.WebhookURL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Store.DBPath, cfg.Store.DBPath)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
guard:
  protected_file: pages/custom.py
store:
  db_path: /tmp/other.db
  backup_retention: 3
ingest:
  feeds:
    - https://example.com/feed.xml
  vendors:
    - TSMC
scheduler:
  interval: 2h
  oneshot: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "pages/custom.py", cfg.Guard.ProtectedFile)
	assert.Equal(t, "/tmp/other.db", cfg.Store.DBPath)
	assert.Equal(t, 3, cfg.Store.BackupRetention)
	assert.Equal(t, []string{"https://example.com/feed.xml"}, cfg.Ingest.Feeds)
	assert.Equal(t, []string{"TSMC"}, cfg.Ingest.Vendors)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.Interval)
	assert.True(t, cfg.Scheduler.Oneshot)

	// Unset fields keep their defaults.
	assert.Equal(t, "stable-dashboard", cfg.Guard.StableTag)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.AlertWindow)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("guard: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RISKWATCH_DB_PATH", "/tmp/env.db")
	t.Setenv("RISKWATCH_INTERVAL", "30m")
	t.Setenv("RISKWATCH_ONESHOT", "true")
	t.Setenv("RISKWATCH_WEBHOOK_URL", "https://hooks.example.com/T0/B0")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.Store.DBPath)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	assert.True(t, cfg.Scheduler.Oneshot)
	assert.Equal(t, "https://hooks.example.com/T0/B0", cfg.Scheduler.WebhookURL)
}

func TestEnvOverridesBeatYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o644))

	t.Setenv("RISKWATCH_LOG_LEVEL", "error")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestDaemonPaths(t *testing.T) {
	cfg := Default()
	cfg.SocketPath = "/run/riskwatch/daemon.sock"

	assert.Equal(t, "/run/riskwatch/daemon.lock", cfg.LockPath())
	assert.Equal(t, "/run/riskwatch/daemon.pid", cfg.PIDPath())
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.SocketPath = filepath.Join(dir, "run", "daemon.sock")
	cfg.Store.DBPath = filepath.Join(dir, "data", "news.db")
	cfg.Store.BackupsDir = filepath.Join(dir, "backups")
	cfg.Guard.BackupsDir = filepath.Join(dir, "backups", "pages")

	require.NoError(t, cfg.EnsureDirectories())

	assert.DirExists(t, filepath.Join(dir, "run"))
	assert.DirExists(t, filepath.Join(dir, "data"))
	assert.DirExists(t, filepath.Join(dir, "backups", "pages"))
}
