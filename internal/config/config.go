// Package config loads process configuration from defaults, an optional
// YAML file, and ROWTRACKER_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains process configuration shared by the server and scraper
// binaries.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// ServerHost and ServerPort configure the HTTP listen address.
	ServerHost string `koanf:"server_host"`
	ServerPort int    `koanf:"server_port"`

	// ReadTimeout and WriteTimeout bound HTTP request handling.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// Database connection settings.
	DBHost     string `koanf:"db_host"`
	DBPort     int    `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_sslmode"`

	// Connection pool tuning.
	DBMaxOpenConns int `koanf:"db_max_open_conns"`
	DBMaxIdleConns int `koanf:"db_max_idle_conns"`

	// ScrapeSources lists the race report pages to poll.
	ScrapeSources []string `koanf:"scrape_sources"`

	// ScrapeInterval is the delay between scrape cycles.
	ScrapeInterval time.Duration `koanf:"scrape_interval"`

	// FetchTimeout bounds a single page fetch.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// ArchiveDir is where raw scrape batches are appended as CSV.
	// Empty disables archiving.
	ArchiveDir string `koanf:"archive_dir"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		ServerHost:     "0.0.0.0",
		ServerPort:     8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		DBHost:         "localhost",
		DBPort:         5432,
		DBUser:         "rowtracker",
		DBPassword:     "rowtracker",
		DBName:         "rowtracker",
		DBSSLMode:      "disable",
		DBMaxOpenConns: 25,
		DBMaxIdleConns: 5,
		ScrapeInterval: 10 * time.Minute,
		FetchTimeout:   30 * time.Second,
		ArchiveDir:     "archive",
	}
}

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ROWTRACKER_CONFIG is set
//  3. env (prefix ROWTRACKER_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ROWTRACKER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Environment variables: ROWTRACKER_DB_HOST, ROWTRACKER_SCRAPE_INTERVAL, ...
	// Keys keep their underscores to match the koanf tags on the struct.
	envProvider := env.Provider("ROWTRACKER_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "rowtracker_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("server_port out of range: %d", c.ServerPort)
	}
	if c.DBHost == "" {
		return errors.New("db_host must not be empty")
	}
	if c.DBName == "" {
		return errors.New("db_name must not be empty")
	}
	if c.ScrapeInterval <= 0 {
		return fmt.Errorf("scrape_interval must be positive, got %s", c.ScrapeInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive, got %s", c.FetchTimeout)
	}
	return nil
}

// ServerAddr returns the host:port the HTTP server listens on.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// DatabaseDSN builds the Postgres connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}
