package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type GuardConfig struct {
	ProtectedFile string `yaml:"protected_file" env:"RISKWATCH_PROTECTED_FILE"`
	BackupsDir    string `yaml:"backups_dir" env:"RISKWATCH_GUARD_BACKUPS_DIR"`
	StableTag     string `yaml:"stable_tag" env:"RISKWATCH_STABLE_TAG"`
}

type StoreConfig struct {
	DBPath          string `yaml:"db_path" env:"RISKWATCH_DB_PATH"`
	BackupsDir      string `yaml:"backups_dir" env:"RISKWATCH_DB_BACKUPS_DIR"`
	BackupRetention int    `yaml:"backup_retention"`
}

type IngestConfig struct {
	Feeds        []string      `yaml:"feeds"`
	Vendors      []string      `yaml:"vendors"`
	MaxPerFeed   int           `yaml:"max_per_feed"`
	FetchWorkers int           `yaml:"fetch_workers"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

type ClassifyConfig struct {
	ConfigDir string `yaml:"config_dir" env:"RISKWATCH_CLASSIFY_DIR"`
}

type SchedulerConfig struct {
	Interval    time.Duration `yaml:"interval" env:"RISKWATCH_INTERVAL"`
	Oneshot     bool          `yaml:"oneshot" env:"RISKWATCH_ONESHOT"`
	AlertWindow time.Duration `yaml:"alert_window"`
	WebhookURL  string        `yaml:"-" env:"RISKWATCH_WEBHOOK_URL"`
}

type Config struct {
	SocketPath string `yaml:"socket_path" env:"RISKWATCH_SOCKET"`
	LogLevel   string `yaml:"log_level" env:"RISKWATCH_LOG_LEVEL"`
	LogFormat  string `yaml:"log_format" env:"RISKWATCH_LOG_FORMAT"`

	Guard     GuardConfig     `yaml:"guard"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Classify  ClassifyConfig  `yaml:"classify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	runDir := filepath.Join(homeDir, ".riskwatch")

	return &Config{
		SocketPath: filepath.Join(runDir, "daemon.sock"),
		LogLevel:   "info",
		LogFormat:  "text",
		Guard: GuardConfig{
			ProtectedFile: "pages/commercial_kpi.py",
			BackupsDir:    "backups/pages",
			StableTag:     "stable-dashboard",
		},
		Store: StoreConfig{
			DBPath:          "data/news.db",
			BackupsDir:      "backups",
			BackupRetention: 14,
		},
		Ingest: IngestConfig{
			MaxPerFeed:   100,
			FetchWorkers: 4,
			FetchTimeout: 20 * time.Second,
		},
		Classify: ClassifyConfig{
			ConfigDir: "config",
		},
		Scheduler: SchedulerConfig{
			Interval:    6 * time.Hour,
			AlertWindow: 24 * time.Hour,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// RISKWATCH_* environment overrides, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".riskwatch", "config.yaml")
}

// LockPath and PIDPath live next to the control socket.
func (c *Config) LockPath() string {
	return filepath.Join(filepath.Dir(c.SocketPath), "daemon.lock")
}

func (c *Config) PIDPath() string {
	return filepath.Join(filepath.Dir(c.SocketPath), "daemon.pid")
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.SocketPath),
		filepath.Dir(c.Store.DBPath),
		c.Store.BackupsDir,
		c.Guard.BackupsDir,
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}
