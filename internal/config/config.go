package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the events coverage service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Snapshots  SnapshotConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

// SnapshotConfig selects the snapshot history backend.
type SnapshotConfig struct {
	// Backend is "postgres", "clickhouse" or "memory".
	Backend string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("EVENTSCAL_HTTP_ADDR", ":8080"),
			Env:             getEnv("EVENTSCAL_ENV", "development"),
			ShutdownTimeout: getDurationEnv("EVENTSCAL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("EVENTSCAL_DB_HOST", "localhost"),
			Port:     getIntEnv("EVENTSCAL_DB_PORT", 5432),
			User:     getEnv("EVENTSCAL_DB_USER", "eventscal"),
			Password: getEnv("EVENTSCAL_DB_PASSWORD", "eventscal_secret"),
			DBName:   getEnv("EVENTSCAL_DB_NAME", "eventscal"),
			SSLMode:  getEnv("EVENTSCAL_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("EVENTSCAL_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("EVENTSCAL_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("EVENTSCAL_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("EVENTSCAL_REDIS_PASSWORD", ""),
			DB:       getIntEnv("EVENTSCAL_REDIS_DB", 0),
			PoolSize: getIntEnv("EVENTSCAL_REDIS_POOL_SIZE", 100),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("EVENTSCAL_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("EVENTSCAL_CLICKHOUSE_DB", "eventscal"),
			User:     getEnv("EVENTSCAL_CLICKHOUSE_USER", "default"),
			Password: getEnv("EVENTSCAL_CLICKHOUSE_PASSWORD", ""),
		},
		Snapshots: SnapshotConfig{
			Backend: getEnv("EVENTSCAL_SNAPSHOT_BACKEND", "postgres"),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("EVENTSCAL_AUTH_ENABLED", true),
			MasterKey: getEnv("EVENTSCAL_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("EVENTSCAL_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("EVENTSCAL_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("EVENTSCAL_RATE_LIMIT_RPS", 100),
			Burst:   getIntEnv("EVENTSCAL_RATE_LIMIT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("EVENTSCAL_LOG_LEVEL", "info"),
			Format: getEnv("EVENTSCAL_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("EVENTSCAL_METRICS_ENABLED", true),
			Path:    getEnv("EVENTSCAL_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("EVENTSCAL_API_KEY_MASTER is required when auth is enabled")
	}
	switch c.Snapshots.Backend {
	case "postgres", "clickhouse", "memory":
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshots.Backend)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
