// Package config provides configuration management for the Lunch Manager
// sync engine.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like DATABASE_URL, LOG_LEVEL)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	PowerSchool PowerSchoolConfig `mapstructure:"powerschool"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Log         LogConfig         `mapstructure:"log"`
	River       RiverConfig       `mapstructure:"river"`
}

// DatabaseConfig contains PostgreSQL connection settings.
// A single pgxpool is shared by the store, goose migrations, and River.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`

	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// PowerSchoolConfig contains SIS API connection settings. Credentials and
// endpoint are injected here; the sync engine treats them opaquely.
type PowerSchoolConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// Timeout bounds every SIS request. The upstream API has no
	// server-side deadline, so an unset timeout can hang a run.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxRetries bounds retry attempts on transport errors and 5xx
	// responses before the run is declared failed.
	MaxRetries int `mapstructure:"max_retries"`
}

// SyncConfig contains roster sync behavior settings.
type SyncConfig struct {
	// EmailDomain is the fixed organizational domain appended to every
	// derived login, without a leading "@".
	EmailDomain string `mapstructure:"email_domain"`

	// StudentExpansions is the field-expansion list requested per student.
	StudentExpansions string `mapstructure:"student_expansions"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// RiverConfig contains River Queue settings for the background worker.
type RiverConfig struct {
	// MaxWorkers is the concurrency of the sync queue. Concurrent sync
	// runs race on upserts, so anything above 1 is rejected by Validate.
	MaxWorkers int `mapstructure:"max_workers"`

	// SyncInterval is the period of the scheduled full sync.
	SyncInterval time.Duration `mapstructure:"sync_interval"`

	CompletedJobRetentionPeriod time.Duration `mapstructure:"completed_job_retention_period"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/lunchmanager")

	// Environment variable override, no prefix: DATABASE_URL, LOG_LEVEL,
	// POWERSCHOOL_CLIENT_SECRET. Nested keys map dot to underscore.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Sync.EmailDomain == "" {
		return fmt.Errorf("sync.email_domain must not be empty")
	}
	if strings.HasPrefix(c.Sync.EmailDomain, "@") {
		return fmt.Errorf("sync.email_domain must not include a leading @")
	}
	if c.PowerSchool.Timeout <= 0 {
		return fmt.Errorf("powerschool.timeout must be positive")
	}
	if c.River.MaxWorkers != 1 {
		return fmt.Errorf("river.max_workers must be 1: concurrent sync runs race on upserts")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Database (shared pool)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "lunchmanager")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "lunchmanager")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "10m")

	// PowerSchool
	v.SetDefault("powerschool.base_url", "")
	v.SetDefault("powerschool.timeout", "30s")
	v.SetDefault("powerschool.max_retries", 3)

	// Sync
	v.SetDefault("sync.email_domain", "nrcaknights.com")
	v.SetDefault("sync.student_expansions", "lunch,school_enrollment")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// River
	v.SetDefault("river.max_workers", 1)
	v.SetDefault("river.sync_interval", "24h")
	v.SetDefault("river.completed_job_retention_period", "168h")
}
