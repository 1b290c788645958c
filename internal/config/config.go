package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// StorageConfig selects where the event list is persisted.
type StorageConfig struct {
	// Driver is one of "file", "bolt" or "sqlite".
	Driver string `yaml:"driver" json:"driver"`
	// Path is the JSON file or database file.
	Path string `yaml:"path" json:"path"`
}

// ScheduleConfig tunes the scheduling engine.
type ScheduleConfig struct {
	// HorizonMonths bounds expansion of rules without an end date.
	HorizonMonths int `yaml:"horizon_months" json:"horizon_months"`
	// MaxOccurrences caps the occurrences generated per base event.
	MaxOccurrences int `yaml:"max_occurrences" json:"max_occurrences"`
	// RecheckConflicts recomputes conflicts on update and move.
	RecheckConflicts bool `yaml:"recheck_conflicts" json:"recheck_conflicts"`
	// CheckOccurrences conflict-checks generated occurrences on add.
	CheckOccurrences bool `yaml:"check_occurrences" json:"check_occurrences"`
	// DisallowPast rejects events starting before today.
	DisallowPast bool `yaml:"disallow_past" json:"disallow_past"`
	// DefaultColor is given to events created without a color.
	DefaultColor string `yaml:"default_color" json:"default_color"`
}

// BackupConfig controls periodic snapshot copies. An empty Cron disables them.
type BackupConfig struct {
	Cron string `yaml:"cron" json:"cron"`
	Dir  string `yaml:"dir" json:"dir"`
	Keep int    `yaml:"keep" json:"keep"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Storage  StorageConfig  `yaml:"storage" json:"storage"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Backup   BackupConfig   `yaml:"backup" json:"backup"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Driver: "file",
			Path:   "./var/events.json",
		},
		Schedule: ScheduleConfig{
			HorizonMonths:  3,
			MaxOccurrences: 5000,
			DefaultColor:   "#1976d2",
		},
		Backup: BackupConfig{
			Dir:  "./var/backups",
			Keep: 7,
		},
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = def.LogLevel
	}

	switch c.Storage.Driver {
	case "file", "bolt", "sqlite":
	case "":
		c.Storage.Driver = def.Storage.Driver
	default:
		// Left as-is so storage.Open reports the unsupported driver.
	}
	if c.Storage.Path == "" {
		c.Storage.Path = def.Storage.Path
	}

	if c.Schedule.HorizonMonths <= 0 {
		c.Schedule.HorizonMonths = def.Schedule.HorizonMonths
	}
	if c.Schedule.MaxOccurrences <= 0 {
		c.Schedule.MaxOccurrences = def.Schedule.MaxOccurrences
	}
	if c.Schedule.DefaultColor == "" {
		c.Schedule.DefaultColor = def.Schedule.DefaultColor
	}

	if c.Backup.Dir == "" {
		c.Backup.Dir = def.Backup.Dir
	}
	if c.Backup.Keep <= 0 {
		c.Backup.Keep = def.Backup.Keep
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is read, unmarshalled and normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".monthcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
