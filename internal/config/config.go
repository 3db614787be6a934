package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// SubscriptionConfig describes a remote iCalendar feed whose events are shown
// next to the collection's own care reminders (e.g. a club's seasonal
// workshop calendar).
type SubscriptionConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// DatePickerConfig controls the year dropdown when a picker has no bounds.
type DatePickerConfig struct {
	YearsBack  int `yaml:"years_back" json:"years_back"`
	YearsAhead int `yaml:"years_ahead" json:"years_ahead"`
}

// CaptureConfig controls the printable calendar screenshot.
type CaptureConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Cron    string `yaml:"cron" json:"cron"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone that decides what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`

	// Locale selects display date labels, e.g. "en-US".
	Locale string `yaml:"locale" json:"locale"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DataDir holds the subscription cache and captured previews.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// DatabasePath is the SQLite file. Relative paths resolve against DataDir.
	DatabasePath string `yaml:"database_path" json:"database_path"`

	DatePicker DatePickerConfig `yaml:"date_picker" json:"date_picker"`

	// NotifyCron is the cron schedule on which due reminders are announced.
	NotifyCron string `yaml:"notify_cron" json:"notify_cron"`

	Capture CaptureConfig `yaml:"capture" json:"capture"`

	Subscriptions []SubscriptionConfig `yaml:"subscriptions" json:"subscriptions"`

	// BasicAuth, if set, protects every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen      = "127.0.0.1:8080"
	defaultTimezone    = "UTC"
	defaultLocale      = "en-US"
	defaultLogLevel    = "info"
	defaultDataDir     = "/var/lib/bonsaikeeper"
	defaultDatabase    = "bonsaikeeper.db"
	defaultNotifyCron  = "0 8 * * *"
	defaultCaptureCron = "0 6 * * *"
	defaultYearsBack   = 60
	defaultYearsAhead  = 20
	defaultCaptureW    = 1200
	defaultCaptureH    = 900
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Locale == "" {
		c.Locale = defaultLocale
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.DatabasePath == "" {
		c.DatabasePath = defaultDatabase
	}
	if c.DatePicker.YearsBack <= 0 {
		c.DatePicker.YearsBack = defaultYearsBack
	}
	if c.DatePicker.YearsAhead <= 0 {
		c.DatePicker.YearsAhead = defaultYearsAhead
	}
	if c.NotifyCron == "" {
		c.NotifyCron = defaultNotifyCron
	}
	if c.Capture.Cron == "" {
		c.Capture.Cron = defaultCaptureCron
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureW
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureH
	}
	if c.Subscriptions == nil {
		c.Subscriptions = []SubscriptionConfig{}
	}
}

// DatabaseFile resolves DatabasePath against DataDir.
func (c *Config) DatabaseFile() string {
	if filepath.IsAbs(c.DatabasePath) {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDir, c.DatabasePath)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating the parent directory) and returned.
//   - Otherwise the YAML is decoded and normalized.
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

// Save normalizes cfg and writes it atomically with 0600 permissions,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}

	return os.Chmod(path, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
