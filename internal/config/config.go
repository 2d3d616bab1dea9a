// Package config loads nspm configuration from an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fahmaliyi/nspm/vault"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// KDF holds the Argon2id parameters used for new record tokens.
type KDF struct {
	Time      uint32 `yaml:"time"`
	MemoryKiB uint32 `yaml:"memory_kib"`
	Threads   uint8  `yaml:"threads"`
}

// Config is the resolved nspm configuration.
type Config struct {
	VaultDir       string        `yaml:"vault_dir"`
	LogLevel       string        `yaml:"log_level"`
	MaxAttempts    int           `yaml:"max_attempts"`
	ClipboardClear time.Duration `yaml:"clipboard_clear"`
	KDF            KDF           `yaml:"kdf"`
}

// Default returns the built-in configuration.
func Default() *Config {
	p := vault.DefaultKDFParams()
	return &Config{
		VaultDir:       defaultVaultDir(),
		LogLevel:       "warn",
		MaxAttempts:    3,
		ClipboardClear: 30 * time.Second,
		KDF:            KDF{Time: p.Time, MemoryKiB: p.Memory, Threads: p.Threads},
	}
}

func defaultVaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nspm", "vault")
}

// DefaultPath returns $XDG_CONFIG_HOME/nspm/config.yaml, falling back to the
// user config directory of the platform.
func DefaultPath() string {
	if dir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && dir != "" {
		return filepath.Join(dir, "nspm", "config.yaml")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "nspm", "config.yaml")
}

// Load layers the YAML file at path over the defaults, then applies
// NSPM_VAULT_DIR, NSPM_LOG_LEVEL, NSPM_MAX_ATTEMPTS and NSPM_CLIPBOARD_CLEAR.
// An empty path means DefaultPath. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("NSPM_VAULT_DIR"); ok {
		c.VaultDir = v
	}
	if v, ok := os.LookupEnv("NSPM_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("NSPM_MAX_ATTEMPTS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NSPM_MAX_ATTEMPTS has invalid value %q: %w", v, err)
		}
		c.MaxAttempts = n
	}
	if v, ok := os.LookupEnv("NSPM_CLIPBOARD_CLEAR"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NSPM_CLIPBOARD_CLEAR has invalid duration %q: %w", v, err)
		}
		c.ClipboardClear = d
	}
	return nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.VaultDir == "" {
		return errors.New("vault_dir is required")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	if c.ClipboardClear < 0 {
		return fmt.Errorf("clipboard_clear must not be negative, got %s", c.ClipboardClear)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if err := c.KDFParams().Validate(); err != nil {
		return fmt.Errorf("kdf: %w", err)
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err == nil && c.LogLevel == "" {
		err = errors.New("empty level")
	}
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return lvl, nil
}

func (c *Config) KDFParams() vault.KDFParams {
	return vault.KDFParams{Time: c.KDF.Time, Memory: c.KDF.MemoryKiB, Threads: c.KDF.Threads}
}
