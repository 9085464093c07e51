package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when COMMODASH_CONFIG is unset.
const DefaultPath = "config/commodash.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for commodash.
type Config struct {
	API     API     `yaml:"api"`
	Poll    Poll    `yaml:"poll"`
	Views   Views   `yaml:"views"`
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// API describes the remote dashboard backend.
type API struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// Poll controls the background refresh of commodities and market summary.
type Poll struct {
	Interval time.Duration `yaml:"interval"`
}

// Views holds the initial parameters of each screen.
type Views struct {
	DefaultSymbol string `yaml:"default_symbol"`
	HistoryDays   int    `yaml:"history_days"`
	ForecastDays  int    `yaml:"forecast_days"`
	NewsLimit     int    `yaml:"news_limit"`
}

// Storage holds local persistence paths. Empty disables the component.
type Storage struct {
	CachePath  string `yaml:"cache_path"`
	ArchiveDir string `yaml:"archive_dir"`
}

// Server holds the JSON mirror and health listeners.
type Server struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	GRPCPort int    `yaml:"grpc_port"`
}

// Addr returns host:port for the HTTP listener.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API: API{
			BaseURL: "http://localhost:8001",
			Timeout: 15 * time.Second,
		},
		Poll: Poll{Interval: 30 * time.Second},
		Views: Views{
			DefaultSymbol: "XAU",
			HistoryDays:   30,
			ForecastDays:  14,
			NewsLimit:     15,
		},
		Server: Server{Host: "127.0.0.1", Port: 8090, GRPCPort: 9090},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration at path over Default(), loads a .env
// file from the working directory if there is one, and then applies
// environment overrides. A missing config file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PathFromEnv returns COMMODASH_CONFIG or DefaultPath.
func PathFromEnv() string {
	if v := os.Getenv("COMMODASH_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Validate rejects settings the client cannot run with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Views.NewsLimit <= 0 {
		return fmt.Errorf("views.news_limit must be positive, got %d", c.Views.NewsLimit)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	// The frontend's variable name is honoured so one .env serves both.
	if v := os.Getenv("REACT_APP_BACKEND_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("COMMODASH_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("COMMODASH_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("COMMODASH_POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}

	if v := os.Getenv("COMMODASH_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("COMMODASH_RATE_LIMIT: %w", err)
		}
		cfg.API.RateLimitPerMin = n
	}

	if v := os.Getenv("COMMODASH_CACHE_PATH"); v != "" {
		cfg.Storage.CachePath = v
	}
	if v := os.Getenv("COMMODASH_ARCHIVE_DIR"); v != "" {
		cfg.Storage.ArchiveDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}
