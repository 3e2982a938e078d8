package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DataPaths holds data directory and file path configuration. These paths can
// be overridden via environment variables (ARGUS_DATA_PATHS_*).
type DataPaths struct {
	// DataDir is the base data directory (default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (default: ${DataDir}/argus.db)
	SQLitePath string `mapstructure:"sqlite_path"`
	// RulesDir is the directory scanned for rule files at startup (default: ${DataDir}/rules)
	RulesDir string `mapstructure:"rules_dir"`
}

// Config holds all configuration for the Argus detection engine.
type Config struct {
	// LogLevel controls zap logging verbosity: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	// DataPaths holds all data directory configuration
	DataPaths DataPaths `mapstructure:"data_paths"`

	Redis struct {
		Enabled  bool   `mapstructure:"enabled"`
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
		// ResultTTL is how long detection results stay cached, in seconds
		ResultTTL int `mapstructure:"result_ttl"`
	} `mapstructure:"redis"`

	MongoDB struct {
		Enabled  bool   `mapstructure:"enabled"`
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
	} `mapstructure:"mongodb"`

	Engine struct {
		// RegexTimeoutMs bounds a single regex condition evaluation (default: 500ms)
		RegexTimeoutMs int `mapstructure:"regex_timeout_ms"`
	} `mapstructure:"engine"`
}

// setDefaults registers default values for all configuration keys.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("data_paths.data_dir", "./data")
	v.SetDefault("data_paths.sqlite_path", "")
	v.SetDefault("data_paths.rules_dir", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.result_ttl", 3600)

	v.SetDefault("mongodb.enabled", false)
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "argus")

	v.SetDefault("engine.regex_timeout_ms", 500)
}

// LoadConfig reads configuration from the given file and environment variables
// prefixed with ARGUS_. The file is optional; defaults and environment
// variables apply when it is absent.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARGUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDerivedDefaults fills paths that default relative to DataDir.
func (c *Config) applyDerivedDefaults() {
	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = c.DataPaths.DataDir + "/argus.db"
	}
	if c.DataPaths.RulesDir == "" {
		c.DataPaths.RulesDir = c.DataPaths.DataDir + "/rules"
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn, or error)", c.LogLevel)
	}

	if c.Engine.RegexTimeoutMs <= 0 {
		return fmt.Errorf("engine.regex_timeout_ms must be positive, got %d", c.Engine.RegexTimeoutMs)
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.MongoDB.Enabled && c.MongoDB.URI == "" {
		return fmt.Errorf("mongodb.uri is required when mongodb is enabled")
	}
	return nil
}

// RegexTimeout returns the configured regex timeout as a duration.
func (c *Config) RegexTimeout() time.Duration {
	return time.Duration(c.Engine.RegexTimeoutMs) * time.Millisecond
}

// ResultTTL returns the configured Redis result TTL as a duration.
func (c *Config) ResultTTL() time.Duration {
	return time.Duration(c.Redis.ResultTTL) * time.Second
}
