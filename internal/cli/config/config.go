package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Supported store drivers
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite3"
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// FileName is the base name of the configuration file
const FileName = "docmodel"

// Config represents the docmodel configuration
type Config struct {
	ProjectName string      `mapstructure:"project_name"`
	ModelsFile  string      `mapstructure:"models_file"`
	Store       StoreConfig `mapstructure:"store"`
	Media       MediaConfig `mapstructure:"media"`
	Log         LogConfig   `mapstructure:"log"`
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Driver              string      `mapstructure:"driver"`
	DSN                 string      `mapstructure:"dsn"`
	Redis               RedisConfig `mapstructure:"redis"`
	TechnicalCollection string      `mapstructure:"technical_collection"`
	// WriteAttempts bounds SQL writes retried on deadlocks and busy databases; 1 disables retries
	WriteAttempts int `mapstructure:"write_attempts"`
}

// RedisConfig represents redis store configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// MediaConfig represents the asset store configuration
type MediaConfig struct {
	Root string `mapstructure:"root"`
	URL  string `mapstructure:"url"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load loads the configuration from docmodel.yml or docmodel.yaml in the
// working directory, or from path when it is not empty
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("project_name", "docmodel")
	v.SetDefault("models_file", "models.yaml")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "docmodel:")
	v.SetDefault("store.technical_collection", "docmodel_technical")
	v.SetDefault("store.write_attempts", 1)
	v.SetDefault("media.root", "media")
	v.SetDefault("media.url", "/media")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// DOCMODEL_STORE_DRIVER overrides store.driver
	v.SetEnvPrefix("DOCMODEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration for unsupported or incomplete settings
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverSQLite, DriverPgx, DriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn is required for driver %s", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be one of memory, redis, sqlite3, pgx, postgres, got: %s", c.Store.Driver)
	}

	if c.Store.Driver == DriverRedis && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required for driver redis")
	}
	if c.Store.WriteAttempts < 0 {
		return fmt.Errorf("store.write_attempts must not be negative, got: %d", c.Store.WriteAttempts)
	}
	if strings.TrimSpace(c.Store.TechnicalCollection) == "" {
		return fmt.Errorf("store.technical_collection must not be empty")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", c.Log.Level)
	}

	if c.Media.URL != "" && !strings.HasPrefix(c.Media.URL, "/") && !strings.Contains(c.Media.URL, "://") {
		return fmt.Errorf("media.url must be absolute or start with '/', got: %s", c.Media.URL)
	}
	return nil
}

// GetProjectRoot tries to find the project root by looking for docmodel.yml
func GetProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName+".yml")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, FileName+".yaml")); err == nil {
			return dir, nil
		}

		// Move up one directory
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a docmodel project (no %s.yaml found)", FileName)
		}
		dir = parent
	}
}
