// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Oracle backends.
const (
	OracleHTTP   = "http"
	OracleStatic = "static"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Scan          ScanConfig          `yaml:"scan"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Tracing       TracingConfig       `yaml:"tracing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig selects the subscription store backend and, for postgres,
// its connection settings.
type DatabaseConfig struct {
	Backend  string `yaml:"backend"` // memory, postgres
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode, d.PoolSize,
	)
}

// OracleConfig defines where listings come from.
type OracleConfig struct {
	Backend    string          `yaml:"backend"` // http, static
	Endpoint   string          `yaml:"endpoint"`
	StaticFile string          `yaml:"static_file"`
	Timeout    time.Duration   `yaml:"timeout"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines outbound oracle rate limiting.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
	Daily     int64   `yaml:"daily"` // 0 = unlimited
}

// ScanConfig defines the periodic price scan.
type ScanConfig struct {
	Interval      time.Duration `yaml:"interval"`
	DropThreshold float64       `yaml:"drop_threshold"`
	Concurrency   int           `yaml:"concurrency"`
	NotifyTimeout time.Duration `yaml:"notify_timeout"`
	LockTTL       time.Duration `yaml:"lock_ttl"`
}

// NotificationsConfig defines notification targets.
type NotificationsConfig struct {
	Currency string         `yaml:"currency"`
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
}

// TelegramConfig defines Telegram Bot API settings.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	APIURL   string `yaml:"api_url"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TracingConfig defines OpenTelemetry export settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it, applies defaults
// and validates the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied: in-memory
// store, no oracle endpoint, no-op notifications.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyOracleDefaults(&cfg.Oracle)
	applyScanDefaults(&cfg.Scan)
	applyNotificationDefaults(&cfg.Notifications)
	applyTracingDefaults(&cfg.Tracing)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		// A manual scan runs inside the request.
		s.WriteTimeout = 5 * time.Minute
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Backend == "" {
		d.Backend = BackendMemory
	}
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyOracleDefaults(o *OracleConfig) {
	if o.Backend == "" {
		o.Backend = OracleHTTP
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RateLimit.PerSecond == 0 {
		o.RateLimit.PerSecond = 5.0
	}
	if o.RateLimit.Burst == 0 {
		o.RateLimit.Burst = 10
	}
}

func applyScanDefaults(s *ScanConfig) {
	if s.Interval == 0 {
		s.Interval = 5 * time.Hour
	}
	if s.DropThreshold == 0 {
		s.DropThreshold = 0.10
	}
	if s.Concurrency == 0 {
		s.Concurrency = 8
	}
	if s.NotifyTimeout == 0 {
		s.NotifyTimeout = 10 * time.Second
	}
	if s.LockTTL == 0 {
		s.LockTTL = time.Hour
	}
}

func applyNotificationDefaults(n *NotificationsConfig) {
	if n.Currency == "" {
		n.Currency = "RUB"
	}
	if n.Telegram.APIURL == "" {
		n.Telegram.APIURL = "https://api.telegram.org"
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "price-drop-tracker"
	}
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	switch cfg.Database.Backend {
	case BackendMemory:
	case BackendPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, fmt.Errorf("database.host is required when backend is postgres"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.name is required when backend is postgres"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, fmt.Errorf("database.user is required when backend is postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"database.backend must be one of: memory, postgres (got %q)", cfg.Database.Backend,
		))
	}

	switch cfg.Oracle.Backend {
	case OracleHTTP:
		if cfg.Oracle.Endpoint == "" {
			errs = append(errs, fmt.Errorf("oracle.endpoint is required when backend is http"))
		}
	case OracleStatic:
		if cfg.Oracle.StaticFile == "" {
			errs = append(errs, fmt.Errorf("oracle.static_file is required when backend is static"))
		}
	default:
		errs = append(errs, fmt.Errorf(
			"oracle.backend must be one of: http, static (got %q)", cfg.Oracle.Backend,
		))
	}

	if cfg.Scan.DropThreshold <= 0 || cfg.Scan.DropThreshold >= 1 {
		errs = append(errs, fmt.Errorf(
			"scan.drop_threshold must be between 0 and 1 exclusive (got %v)", cfg.Scan.DropThreshold,
		))
	}
	if cfg.Scan.Concurrency < 1 || cfg.Scan.Concurrency > 64 {
		errs = append(errs, fmt.Errorf(
			"scan.concurrency must be between 1 and 64 (got %d)", cfg.Scan.Concurrency,
		))
	}
	if cfg.Scan.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("scan.interval must be at least 1m (got %s)", cfg.Scan.Interval))
	}

	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("notifications.telegram.bot_token is required when telegram is enabled"))
	}
	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf(
			"tracing.sample_ratio must be between 0 and 1 (got %v)", cfg.Tracing.SampleRatio,
		))
	}

	return errors.Join(errs...)
}
