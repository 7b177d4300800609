package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

var configEnvVars = []string{
	"PINDEX_CONFIG_PATH",
	"PINDEX_ENV_FILE",
	"PINDEX_DEV_MODE",
	"PINDEX_PORT",
	"PINDEX_READ_TIMEOUT",
	"PINDEX_WRITE_TIMEOUT",
	"PINDEX_SHUTDOWN_TIMEOUT",
	"PINDEX_DB_DRIVER",
	"PINDEX_DB_PATH",
	"PINDEX_DATABASE_URL",
	"PINDEX_API_KEY",
	"PINDEX_LOG_LEVEL",
	"PINDEX_LOG_FORMAT",
	"PINDEX_LOG_FILE",
	"PINDEX_EXPORT_DIR",
	"PINDEX_EXPORT_BUCKET",
	"PINDEX_S3_ENDPOINT",
	"PINDEX_S3_REGION",
	"PINDEX_S3_ACCESS_KEY",
	"PINDEX_S3_SECRET_KEY",
	"PINDEX_S3_USE_SSL",
	"PINDEX_S3_URL_EXPIRY",
	"PINDEX_EXPORT_MAX_RETRIES",
	"PINDEX_RECONCILE_INTERVAL",
	"PINDEX_RECONCILE_BATCH_SIZE",
	"PINDEX_EXPORT_INTERVAL",
	"PINDEX_EXPORT_CONCURRENCY",
}

// clearEnv unsets every config env var for the duration of the test and
// points the config and .env paths at files that do not exist.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
	dir := t.TempDir()
	t.Setenv("PINDEX_CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	t.Setenv("PINDEX_ENV_FILE", filepath.Join(dir, "missing.env"))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// dur converts Duration to time.Duration for comparison
func dur(d Duration) time.Duration {
	return time.Duration(d)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_DEV_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if dur(cfg.Server.ShutdownTimeout) != 15*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 15s", dur(cfg.Server.ShutdownTimeout))
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "data/pindex.db" {
		t.Errorf("Database = %+v, want sqlite at data/pindex.db", cfg.Database)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" || cfg.Log.File != "" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if !cfg.Export.UseSSL || dur(cfg.Export.URLExpiry) != time.Hour || cfg.Export.Bucket != "" {
		t.Errorf("Export = %+v", cfg.Export)
	}
	if dur(cfg.Worker.ReconcileInterval) != 6*time.Hour {
		t.Errorf("Worker.ReconcileInterval = %v, want 6h", dur(cfg.Worker.ReconcileInterval))
	}
	if cfg.Worker.ExportInterval != 0 {
		t.Errorf("Worker.ExportInterval = %v, want disabled", dur(cfg.Worker.ExportInterval))
	}
}

func TestLoad_ValidationFailsWithoutAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "PINDEX_API_KEY") {
		t.Errorf("Load() error = %v, want PINDEX_API_KEY required", err)
	}
}

func TestLoad_ValidationPassesWithAPIKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_API_KEY", "test-api-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.APIKey != "test-api-key" {
		t.Errorf("Auth.APIKey = %q", cfg.Auth.APIKey)
	}
}

func TestLoadLocal_NoAPIKeyRequired(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_DB_PATH", "/tmp/cli.db")

	cfg, err := LoadLocal()
	if err != nil {
		t.Fatalf("LoadLocal() error = %v", err)
	}
	if cfg.Database.DSN() != "/tmp/cli.db" {
		t.Errorf("Database.DSN() = %q, want /tmp/cli.db", cfg.Database.DSN())
	}

	t.Setenv("PINDEX_DB_DRIVER", "mysql")
	if _, err := LoadLocal(); err == nil {
		t.Error("LoadLocal() with unknown driver: expected error")
	}
}

func TestLoad_DatabaseValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown driver", map[string]string{"PINDEX_DB_DRIVER": "mysql"}, "unknown database driver"},
		{"postgres without url", map[string]string{"PINDEX_DB_DRIVER": "postgres"}, "database.url"},
		{"postgres with url", map[string]string{"PINDEX_DB_DRIVER": "postgres", "PINDEX_DATABASE_URL": "postgres://localhost/pindex"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("PINDEX_DEV_MODE", "true")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Load() error = %v", err)
				}
				if cfg.Database.DSN() != "postgres://localhost/pindex" {
					t.Errorf("DSN() = %q", cfg.Database.DSN())
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_API_KEY", "k")
	t.Setenv("PINDEX_PORT", "9090")
	t.Setenv("PINDEX_READ_TIMEOUT", "5s")
	t.Setenv("PINDEX_DB_PATH", "/tmp/p.db")
	t.Setenv("PINDEX_LOG_LEVEL", "debug")
	t.Setenv("PINDEX_LOG_FILE", "/var/log/pindex.log")
	t.Setenv("PINDEX_EXPORT_BUCKET", "reports")
	t.Setenv("PINDEX_S3_ENDPOINT", "localhost:9000")
	t.Setenv("PINDEX_S3_ACCESS_KEY", "access")
	t.Setenv("PINDEX_S3_SECRET_KEY", "secret")
	t.Setenv("PINDEX_S3_USE_SSL", "false")
	t.Setenv("PINDEX_S3_URL_EXPIRY", "15m")
	t.Setenv("PINDEX_RECONCILE_INTERVAL", "0s")
	t.Setenv("PINDEX_EXPORT_INTERVAL", "24h")
	t.Setenv("PINDEX_EXPORT_CONCURRENCY", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if dur(cfg.Server.ReadTimeout) != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", dur(cfg.Server.ReadTimeout))
	}
	if cfg.Database.Path != "/tmp/p.db" || cfg.Database.DSN() != "/tmp/p.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/var/log/pindex.log" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	want := ExportConfig{
		Dir:        "data/exports",
		Bucket:     "reports",
		Endpoint:   "localhost:9000",
		Region:     "us-east-1",
		AccessKey:  "access",
		SecretKey:  "secret",
		UseSSL:     false,
		URLExpiry:  Duration(15 * time.Minute),
		MaxRetries: 3,
	}
	if cfg.Export != want {
		t.Errorf("Export = %+v, want %+v", cfg.Export, want)
	}
	if cfg.Worker.ReconcileInterval != 0 || dur(cfg.Worker.ExportInterval) != 24*time.Hour || cfg.Worker.ExportConcurrency != 2 {
		t.Errorf("Worker = %+v", cfg.Worker)
	}
}

func TestLoad_InvalidEnvValuesIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_DEV_MODE", "true")
	t.Setenv("PINDEX_PORT", "not-a-port")
	t.Setenv("PINDEX_WRITE_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 || dur(cfg.Server.WriteTimeout) != 30*time.Second {
		t.Errorf("Server = %+v, want defaults", cfg.Server)
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_DEV_MODE", "true")
	path := writeFile(t, "pindex.yaml", `
server:
  port: 7000
  write_timeout: 45s
database:
  path: /srv/pindex.db
log:
  format: text
  max_backups: 2
worker:
  export_interval: 12h
`)
	t.Setenv("PINDEX_CONFIG_PATH", path)
	t.Setenv("PINDEX_PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want env to win with 7100", cfg.Server.Port)
	}
	if dur(cfg.Server.WriteTimeout) != 45*time.Second {
		t.Errorf("Server.WriteTimeout = %v, want 45s", dur(cfg.Server.WriteTimeout))
	}
	if cfg.Database.Path != "/srv/pindex.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.Log.Format != "text" || cfg.Log.MaxBackups != 2 || cfg.Log.MaxSizeMB != 100 {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if dur(cfg.Worker.ExportInterval) != 12*time.Hour {
		t.Errorf("Worker.ExportInterval = %v, want 12h", dur(cfg.Worker.ExportInterval))
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "PINDEX_API_KEY=from-dotenv\nPINDEX_LOG_LEVEL=warn\n")
	t.Setenv("PINDEX_ENV_FILE", envFile)
	t.Setenv("PINDEX_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.APIKey != "from-dotenv" {
		t.Errorf("Auth.APIKey = %q, want value from .env", cfg.Auth.APIKey)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want real env to win over .env", cfg.Log.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PINDEX_API_KEY", "k")

	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromFile(missing) should fail")
	}

	bad := writeFile(t, "bad.yaml", "server: [not a map")
	if _, err := LoadFromFile(bad); err == nil {
		t.Error("LoadFromFile(invalid yaml) should fail")
	}

	badDur := writeFile(t, "dur.yaml", "server:\n  read_timeout: forever\n")
	_, err := LoadFromFile(badDur)
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("LoadFromFile(invalid duration) error = %v", err)
	}

	zero := writeFile(t, "zero.yaml", "worker:\n  reconcile_interval: 0s\n")
	cfg, err := LoadFromFile(zero)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Worker.ReconcileInterval != 0 {
		t.Errorf("explicit zero should override default, got %v", dur(cfg.Worker.ReconcileInterval))
	}
}

func TestConfig_SecretsNotInYAML(t *testing.T) {
	cfg := newDefaults()
	cfg.Auth.APIKey = "api-secret"
	cfg.Export.AccessKey = "access-secret"
	cfg.Export.SecretKey = "secret-secret"

	out, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	for _, secret := range []string{"api-secret", "access-secret", "secret-secret"} {
		if strings.Contains(string(out), secret) {
			t.Errorf("marshalled config contains %q", secret)
		}
	}
	if !strings.Contains(string(out), "url_expiry: 1h0m0s") {
		t.Errorf("durations should marshal as strings:\n%s", out)
	}
}
