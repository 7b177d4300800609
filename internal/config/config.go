package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Export   ExportConfig   `yaml:"export"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings. Path is used by the sqlite
// driver, URL by postgres.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	URL    string `yaml:"url"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ExportConfig contains report export settings. An empty Bucket keeps
// exports on local disk only.
type ExportConfig struct {
	Dir        string   `yaml:"dir"`
	Bucket     string   `yaml:"bucket"`
	Endpoint   string   `yaml:"endpoint"`
	Region     string   `yaml:"region"`
	AccessKey  string   `yaml:"-"` // env-only, never in YAML
	SecretKey  string   `yaml:"-"` // env-only, never in YAML
	UseSSL     bool     `yaml:"use_ssl"`
	URLExpiry  Duration `yaml:"url_expiry"`
	MaxRetries int      `yaml:"max_retries"`
}

// WorkerConfig contains background worker settings. A zero interval
// disables the worker.
type WorkerConfig struct {
	ReconcileInterval  Duration `yaml:"reconcile_interval"`
	ReconcileBatchSize int      `yaml:"reconcile_batch_size"`
	ExportInterval     Duration `yaml:"export_interval"`
	ExportConcurrency  int      `yaml:"export_concurrency"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → .env → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLocal loads configuration for CLI commands that work on the database
// directly. They never serve HTTP, so no API key is required.
func LoadLocal() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateLocal(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("PINDEX_CONFIG_PATH", "config/pindex.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := loadDotEnv(getEnv("PINDEX_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "data/pindex.db",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Export: ExportConfig{
			Dir:        "data/exports",
			Region:     "us-east-1",
			UseSSL:     true,
			URLExpiry:  Duration(1 * time.Hour),
			MaxRetries: 3,
		},
		Worker: WorkerConfig{
			ReconcileInterval:  Duration(6 * time.Hour),
			ReconcileBatchSize: 200,
			ExportInterval:     0,
			ExportConcurrency:  4,
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadDotEnv exports the variables of a .env file into the process
// environment. Variables already set are left alone; a missing file is fine.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("PINDEX_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("PINDEX_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("PINDEX_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("PINDEX_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	if v := os.Getenv("PINDEX_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("PINDEX_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("PINDEX_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}

	// Auth
	if v := os.Getenv("PINDEX_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Log
	if v := os.Getenv("PINDEX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PINDEX_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("PINDEX_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	// Export
	if v := os.Getenv("PINDEX_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("PINDEX_EXPORT_BUCKET"); v != "" {
		cfg.Export.Bucket = v
	}
	if v := os.Getenv("PINDEX_S3_ENDPOINT"); v != "" {
		cfg.Export.Endpoint = v
	}
	if v := os.Getenv("PINDEX_S3_REGION"); v != "" {
		cfg.Export.Region = v
	}
	if v := os.Getenv("PINDEX_S3_ACCESS_KEY"); v != "" {
		cfg.Export.AccessKey = v
	}
	if v := os.Getenv("PINDEX_S3_SECRET_KEY"); v != "" {
		cfg.Export.SecretKey = v
	}
	if v := os.Getenv("PINDEX_S3_USE_SSL"); v != "" {
		cfg.Export.UseSSL = v == "true" || v == "1"
	}
	envDuration("PINDEX_S3_URL_EXPIRY", &cfg.Export.URLExpiry)
	envInt("PINDEX_EXPORT_MAX_RETRIES", &cfg.Export.MaxRetries)

	// Worker
	envDuration("PINDEX_RECONCILE_INTERVAL", &cfg.Worker.ReconcileInterval)
	envInt("PINDEX_RECONCILE_BATCH_SIZE", &cfg.Worker.ReconcileBatchSize)
	envDuration("PINDEX_EXPORT_INTERVAL", &cfg.Worker.ExportInterval)
	envInt("PINDEX_EXPORT_CONCURRENCY", &cfg.Worker.ExportConcurrency)
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// validate checks that required configuration values are set.
// In dev mode (PINDEX_DEV_MODE=true), API key validation is skipped.
func (c *Config) validate() error {
	if err := c.validateLocal(); err != nil {
		return err
	}

	if IsDevMode() {
		return nil
	}

	if c.Auth.APIKey == "" {
		return errors.New("PINDEX_API_KEY is required")
	}
	return nil
}

// validateLocal checks everything except the server's authentication.
func (c *Config) validateLocal() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url (PINDEX_DATABASE_URL) is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown database driver %q (want sqlite or postgres)", c.Database.Driver)
	}

	if c.Worker.ExportConcurrency < 1 {
		return errors.New("worker.export_concurrency must be at least 1")
	}
	return nil
}

// DSN returns the data source for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

// IsDevMode reports whether PINDEX_DEV_MODE=true is set.
func IsDevMode() bool {
	return os.Getenv("PINDEX_DEV_MODE") == "true"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
