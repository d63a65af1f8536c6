package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "tally"
	configFile = "config.yaml"

	ReporterCalendar = "calendar"
	ReporterJournal  = "journal"
)

type Config struct {
	Calendar     string        `yaml:"calendar"`
	StateDir     string        `yaml:"state_dir"`
	TickInterval time.Duration `yaml:"tick_interval"`
	TaskFilter   []string      `yaml:"task_filter"`
	OrgFiles     []string      `yaml:"org_files,omitempty"`
	OrgTag       string        `yaml:"org_tag,omitempty"`
	Reporter     string        `yaml:"reporter"`
	DayStartHour int           `yaml:"day_start_hour"`
	Quiet        bool          `yaml:"quiet"`
}

// GetXdgHome returns ~/.config/tally, or $XDG_CONFIG_HOME/tally when set.
func GetXdgHome() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, xdgAppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", xdgAppName), nil
}

func GetConfigPath() (string, error) {
	dir, err := GetXdgHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Calendar == "" {
		c.Calendar = "Tasks"
	}
	if c.StateDir == "" {
		if dir, err := GetXdgHome(); err == nil {
			c.StateDir = dir
		}
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	if len(c.TaskFilter) == 0 {
		c.TaskFilter = []string{"status:pending"}
	}
	if c.Reporter == "" {
		c.Reporter = ReporterJournal
	}
	if c.DayStartHour <= 0 || c.DayStartHour > 23 {
		c.DayStartHour = 9
	}
}

// Load reads the config at path, or the default location when path is empty.
// A missing file yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	switch cfg.Reporter {
	case "", ReporterCalendar, ReporterJournal:
	default:
		return nil, fmt.Errorf("unknown reporter %q (want %s or %s)", cfg.Reporter, ReporterCalendar, ReporterJournal)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes cfg to path, or the default location when path is empty.
func Save(path string, cfg *Config) error {
	if path == "" {
		var err error
		if path, err = GetConfigPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
