// Package config holds the settings shared by the mangadl commands.
//
// Values are layered: Default, then an optional YAML file, then MANGADL_
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "MANGADL_"

// Config defines configuration for the mangadl CLI.
type Config struct {
	Folder     string `yaml:"folder" env:"FOLDER"`
	Language   string `yaml:"language" env:"LANGUAGE"`
	Format     string `yaml:"format" env:"FORMAT"`
	Cover      string `yaml:"cover" env:"COVER"`
	Compressed bool   `yaml:"compressed" env:"COMPRESSED"`
	Replace    bool   `yaml:"replace" env:"REPLACE"`
	NoOneshot  bool   `yaml:"no_oneshot" env:"NO_ONESHOT"`
	// Grayscale converts pages before pdf and epub packaging.
	Grayscale bool `yaml:"grayscale" env:"GRAYSCALE"`
	// MaxWidth and MaxHeight bound packaged page size. Zero keeps the original.
	MaxWidth  int `yaml:"max_width" env:"MAX_WIDTH"`
	MaxHeight int `yaml:"max_height" env:"MAX_HEIGHT"`

	// Library is the DuckDB file downloads are recorded in. Empty disables it.
	Library string `yaml:"library" env:"LIBRARY"`

	Retry RetryConfig `yaml:"retry" envPrefix:"RETRY_"`
	API   APIConfig   `yaml:"api" envPrefix:"API_"`
}

// RetryConfig bounds chapter re-fetches. Attempts of 0 retries forever.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts" env:"ATTEMPTS"`
	Backoff    time.Duration `yaml:"backoff" env:"BACKOFF"`
	MaxBackoff time.Duration `yaml:"max_backoff" env:"MAX_BACKOFF"`
}

// APIConfig tunes requests to the MangaDex API.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	Retries           int           `yaml:"retries" env:"RETRIES"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

var (
	formats = []string{"", "cbz", "zip", "pdf", "epub"}
	covers  = []string{"original", "512px", "256px", "none"}
)

// Default returns a Config with sensible defaults.
func Default() Config {
	library := ""
	if home, err := os.UserHomeDir(); err == nil {
		library = filepath.Join(home, ".mangadl", "library.db")
	}
	return Config{
		Folder:   ".",
		Language: "en",
		Cover:    "original",
		Library:  library,
		Retry: RetryConfig{
			Attempts:   10,
			Backoff:    time.Second,
			MaxBackoff: 30 * time.Second,
		},
		API: APIConfig{
			BaseURL:           "https://api.mangadex.org",
			Timeout:           30 * time.Second,
			Retries:           5,
			RequestsPerSecond: 5,
		},
	}
}

// LoadFromFile reads a YAML file on top of Default. Keys missing from the
// file keep their default value.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv overrides c with MANGADL_ environment variables, such as
// MANGADL_FOLDER or MANGADL_RETRY_ATTEMPTS.
func (c *Config) LoadFromEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Folder == "" {
		return errors.New("config: folder is required")
	}
	if c.Language == "" {
		return errors.New("config: language is required")
	}
	if !slices.Contains(formats, c.Format) {
		return fmt.Errorf("config: unknown format %q", c.Format)
	}
	if !slices.Contains(covers, c.Cover) {
		return fmt.Errorf("config: unknown cover %q", c.Cover)
	}
	if c.MaxWidth < 0 || c.MaxHeight < 0 {
		return errors.New("config: max_width and max_height must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return errors.New("config: retry.attempts must not be negative")
	}
	if c.Retry.Backoff < 0 || c.Retry.MaxBackoff < 0 {
		return errors.New("config: retry backoff must not be negative")
	}
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	if c.API.RequestsPerSecond < 0 {
		return errors.New("config: api.requests_per_second must not be negative")
	}
	return nil
}
