package config

import (
	"os"
	"path/filepath"
	"testing"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoad(t *testing.T) {
	// Test loading with no config file (should use defaults)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Store.Driver != DriverMemory {
		t.Errorf("expected default driver memory, got %s", cfg.Store.Driver)
	}

	if cfg.Store.TechnicalCollection != "docmodel_technical" {
		t.Errorf("expected default technical collection, got %s", cfg.Store.TechnicalCollection)
	}

	if cfg.Media.URL != "/media" {
		t.Errorf("expected default media url '/media', got %s", cfg.Media.URL)
	}

	if cfg.Store.WriteAttempts != 1 {
		t.Errorf("expected a single write attempt by default, got %d", cfg.Store.WriteAttempts)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Log.Level)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	chdir(t, t.TempDir())

	configContent := `
project_name: test-project
models_file: schema/models.yaml
store:
  driver: sqlite3
  dsn: file:test.db
  technical_collection: tech
media:
  root: /var/media
  url: https://cdn.example.com/media
log:
  level: debug
  development: true
`
	if err := os.WriteFile("docmodel.yaml", []byte(configContent), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if cfg.ProjectName != "test-project" {
		t.Errorf("expected project name 'test-project', got %s", cfg.ProjectName)
	}
	if cfg.ModelsFile != "schema/models.yaml" {
		t.Errorf("expected models file 'schema/models.yaml', got %s", cfg.ModelsFile)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.DSN != "file:test.db" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Store.TechnicalCollection != "tech" {
		t.Errorf("expected technical collection 'tech', got %s", cfg.Store.TechnicalCollection)
	}
	if !cfg.Log.Development {
		t.Error("expected development logging")
	}
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("store:\n  driver: redis\n  redis:\n    addr: cache:6380\n    db: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Store.Redis.Addr != "cache:6380" || cfg.Store.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.Store.Redis)
	}
	if cfg.Store.Redis.Prefix != "docmodel:" {
		t.Errorf("expected default prefix, got %s", cfg.Store.Redis.Prefix)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DOCMODEL_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected log level from env 'warn', got %s", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Store: StoreConfig{Driver: DriverMemory, TechnicalCollection: "tech"},
			Media: MediaConfig{URL: "/media"},
			Log:   LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid memory", func(c *Config) {}, false},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, true},
		{"sql without dsn", func(c *Config) { c.Store.Driver = DriverPgx }, true},
		{"sql with dsn", func(c *Config) { c.Store.Driver = DriverPostgres; c.Store.DSN = "postgres://localhost/db" }, false},
		{"redis without addr", func(c *Config) { c.Store.Driver = DriverRedis }, true},
		{"empty technical collection", func(c *Config) { c.Store.TechnicalCollection = "" }, true},
		{"negative write attempts", func(c *Config) { c.Store.WriteAttempts = -1 }, true},
		{"sql write retries", func(c *Config) { c.Store.Driver = DriverSQLite; c.Store.DSN = "docs.db"; c.Store.WriteAttempts = 3 }, false},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"relative media url", func(c *Config) { c.Media.URL = "media" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "docmodel.yml"), []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, nested)

	got, err := GetProjectRoot()
	if err != nil {
		t.Fatalf("expected project root, got error %v", err)
	}

	want, _ := filepath.EvalSymlinks(root)
	got, _ = filepath.EvalSymlinks(got)
	if got != want {
		t.Errorf("expected root %s, got %s", want, got)
	}
}
