package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Port         int             `toml:"port"`
	DBPath       string          `toml:"db_path"`
	PollInterval time.Duration   `toml:"poll_interval"`
	BatchSize    int             `toml:"batch_size"`
	Secret       string          `toml:"secret"`
	Log          LogConfig       `toml:"log"`
	Creators     []CreatorConfig `toml:"creators"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// CreatorConfig describes an external command that creates resources for
// docs whose source matches Pattern. Exit codes left at zero are not mapped.
type CreatorConfig struct {
	Name              string        `toml:"name"`
	Pattern           string        `toml:"pattern"`
	Command           string        `toml:"command"`
	Args              []string      `toml:"args"`
	DuplicateExitCode int           `toml:"duplicate_exit_code"`
	SpecialExitCode   int           `toml:"special_exit_code"`
	Timeout           time.Duration `toml:"timeout"`
}

// DefaultDBPath returns the default database path using XDG_CACHE_HOME.
func DefaultDBPath() string {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		home, _ := os.UserHomeDir()
		cacheDir = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheDir, "feedhandler", "feed.db")
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "feedhandler", "config.toml")
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:         8080,
		DBPath:       DefaultDBPath(),
		PollInterval: 5 * time.Second,
		BatchSize:    10,
		Log:          LogConfig{Level: "info"},
	}
}

// LoadDotEnv loads variables from an env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load builds Config from defaults, the TOML file at path and environment
// overrides. An empty path reads DefaultConfigPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultConfigPath()
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !optional || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	cfg.DBPath = ExpandPath(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("FEEDHANDLER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if db := os.Getenv("FEEDHANDLER_DB"); db != "" {
		cfg.DBPath = db
	}
	if secret := os.Getenv("FEEDHANDLER_SECRET"); secret != "" {
		cfg.Secret = secret
	}
	if level := os.Getenv("FEEDHANDLER_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// Validate checks value ranges and creator definitions.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}

	seen := make(map[string]bool)
	for i, cc := range c.Creators {
		if cc.Name == "" {
			return fmt.Errorf("creators[%d]: name is required", i)
		}
		if seen[cc.Name] {
			return fmt.Errorf("creators[%d]: duplicate name %q", i, cc.Name)
		}
		seen[cc.Name] = true
		if cc.Command == "" {
			return fmt.Errorf("creator %q: command is required", cc.Name)
		}
		if _, err := regexp.Compile(cc.Pattern); err != nil {
			return fmt.Errorf("creator %q: invalid pattern %q: %w", cc.Name, cc.Pattern, err)
		}
		if cc.DuplicateExitCode != 0 && cc.DuplicateExitCode == cc.SpecialExitCode {
			return fmt.Errorf("creator %q: duplicate and special exit codes must differ", cc.Name)
		}
	}
	return nil
}
