// Package config loads and validates fundata configuration.
//
// Values are resolved in three layers, lowest precedence first:
//
//  1. built-in defaults (Defaults)
//  2. an optional YAML file (fundata.yaml)
//  3. FUNDATA_* environment variables
//
// The resolved configuration is validated before use, so a
// misconfigured process fails at startup rather than mid-download.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apierrors "fundata/internal/errors"
)

// EnvPrefix is the prefix for environment overrides, e.g. FUNDATA_API_KEY.
const EnvPrefix = "FUNDATA"

// Config is the root configuration for the data hub and CLI tools.
type Config struct {
	API     APIConfig     `yaml:"api" envconfig:"API"`
	Data    DataConfig    `yaml:"data" envconfig:"DATA"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Tracing TracingConfig `yaml:"tracing" envconfig:"TRACING"`
}

// APIConfig controls access to the bulk download endpoint.
type APIConfig struct {
	// Key is the vendor API key. The "free" key grants access to the
	// free tier datasets.
	Key string `yaml:"key" envconfig:"KEY" validate:"required"`

	// BaseURL is the bulk endpoint, without a trailing slash.
	BaseURL string `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`

	// Timeout bounds a single dataset download.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`

	// RateLimit is the sustained request rate against the endpoint,
	// in requests per second. Burst is the bucket size.
	RateLimit float64 `yaml:"rate_limit" envconfig:"RATE_LIMIT" validate:"gt=0"`
	Burst     int     `yaml:"burst" envconfig:"BURST" validate:"gte=1"`
}

// DataConfig controls where datasets live on disk and how stale they
// may become before a re-download.
type DataConfig struct {
	// Dir is the root data directory. Downloads land in Dir/download,
	// computed results in Dir/cache. A leading "~" expands to the
	// user's home directory.
	Dir string `yaml:"dir" envconfig:"DIR" validate:"required"`

	// Market selects the default market for dataset loads.
	Market string `yaml:"market" envconfig:"MARKET" validate:"required"`

	// RefreshDays is the default age, in days, after which a
	// downloaded fundamentals dataset is considered stale.
	// RefreshDaysPrices applies to share price data, which changes
	// every trading day.
	RefreshDays       int `yaml:"refresh_days" envconfig:"REFRESH_DAYS" validate:"gte=0"`
	RefreshDaysPrices int `yaml:"refresh_days_prices" envconfig:"REFRESH_DAYS_PRICES" validate:"gte=0"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`

	// Format is json or text.
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`

	// Output is stdout, stderr, or a file path.
	Output string `yaml:"output" envconfig:"OUTPUT" validate:"required"`
}

// TracingConfig controls the OpenTelemetry stdout exporter.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
}

// Defaults returns the built-in configuration. These values work out
// of the box with the free API tier and a per-user data directory.
func Defaults() *Config {
	return &Config{
		API: APIConfig{
			Key:       "free",
			BaseURL:   "https://bulk.fundata.dev/api",
			Timeout:   5 * time.Minute,
			RateLimit: 2,
			Burst:     1,
		},
		Data: DataConfig{
			Dir:               "~/fundata",
			Market:            "us",
			RefreshDays:       30,
			RefreshDaysPrices: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			Enabled: false,
		},
	}
}

// Load resolves the configuration from defaults, an optional YAML
// file, and FUNDATA_* environment variables, in that order of
// precedence. An empty path searches the standard locations; a
// non-empty path must exist.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	resolved, explicit := path, path != ""
	if !explicit {
		resolved = findConfigFile()
	}
	if resolved != "" {
		if err := loadFile(cfg, resolved); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, apierrors.NewConfigError(fmt.Sprintf("config file not found: %s", path), nil)
	}

	// Environment variables win over file values. The struct carries
	// no envconfig defaults, so unset variables leave fields alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apierrors.NewConfigError("processing environment variables", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile searches the working directory and the user config
// directory for fundata.yaml. Returns "" when none exists.
func findConfigFile() string {
	candidates := []string{"fundata.yaml", "fundata.yml"}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(dir, "fundata", "fundata.yaml"))
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apierrors.NewConfigError(fmt.Sprintf("reading config file %s", path), err)
	}
	// Unmarshalling into the populated struct only touches keys
	// present in the document, preserving defaults for the rest.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apierrors.NewConfigError(fmt.Sprintf("parsing config file %s", path), err)
	}
	return nil
}

// resolvePaths expands "~" and makes the data directory absolute.
func (c *Config) resolvePaths() error {
	dir := c.Data.Dir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return apierrors.NewConfigError("resolving home directory", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return apierrors.NewConfigError(fmt.Sprintf("resolving data directory %s", dir), err)
	}
	c.Data.Dir = abs
	return nil
}

// DownloadDir is where raw datasets from the bulk endpoint land.
func (c *Config) DownloadDir() string {
	return filepath.Join(c.Data.Dir, "download")
}

// CacheDir is where computed results are persisted.
func (c *Config) CacheDir() string {
	return filepath.Join(c.Data.Dir, "cache")
}

// EnsureDirectories creates the data, download, and cache directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Data.Dir, c.DownloadDir(), c.CacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apierrors.NewStorageError(fmt.Sprintf("creating directory %s", dir), err)
		}
	}
	return nil
}

var validate = validator.New()

// Validate checks the configuration against its struct tags and
// returns a config error naming the first offending field.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return apierrors.NewConfigError(
				fmt.Sprintf("invalid configuration: field %s failed %q", fe.Namespace(), fe.Tag()), err)
		}
		return apierrors.NewConfigError("invalid configuration", err)
	}
	return nil
}

var (
	defaultMu  sync.RWMutex
	defaultCfg *Config
)

// Default returns the process-wide configuration, loading it on first
// use. Load failures fall back to Defaults so library consumers that
// never call Load still get a working setup.
func Default() *Config {
	defaultMu.RLock()
	cfg := defaultCfg
	defaultMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCfg == nil {
		cfg, err := Load("")
		if err != nil {
			cfg = Defaults()
			_ = cfg.resolvePaths()
		}
		defaultCfg = cfg
	}
	return defaultCfg
}

// SetDefault replaces the process-wide configuration. Tests use this
// to point the data directory at a temp dir; passing nil resets to
// lazy loading.
func SetDefault(cfg *Config) {
	defaultMu.Lock()
	defaultCfg = cfg
	defaultMu.Unlock()
}
