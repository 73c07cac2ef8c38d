/*
Package config loads server configuration from the environment.

SOURCES (later wins):
  1. Defaults
  2. .env file in the working directory, when present
  3. Process environment
  4. Command-line flags (applied by cmd/server)

VARIABLES:
  PORT              HTTP port (default 8080)
  STORE_DRIVER      sqlite | postgres (default sqlite)
  SQLITE_PATH       SQLite file, ":memory:" allowed (default commissions.db)
  DATABASE_URL      PostgreSQL DSN, required when STORE_DRIVER=postgres
  REDIS_ADDR        Optional; moves goal counters to Redis
  REDIS_PASSWORD
  REDIS_DB          (default 0)
  LOG_LEVEL         debug | info | warn | error (default info)
  RATE_LIMIT_RPS    Requests per second per client IP (default 10, 0 disables)
  RATE_LIMIT_BURST  (default 20)
  ALLOWED_ORIGINS   Comma-separated CORS origins (default *)
*/
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port           int
	StoreDriver    string
	SQLitePath     string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	LogLevel       slog.Level
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:           8080,
		StoreDriver:    DriverSQLite,
		SQLitePath:     "commissions.db",
		LogLevel:       slog.LevelInfo,
		RateLimitRPS:   10,
		RateLimitBurst: 20,
		AllowedOrigins: []string{"*"},
	}
}

// Load reads .env (if any) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: .env: %v", ErrInvalidConfig, err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var err error

	if v := getenv("PORT"); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("%w: PORT=%q", ErrInvalidConfig, v)
		}
	}
	if v := getenv("STORE_DRIVER"); v != "" {
		cfg.StoreDriver = strings.ToLower(v)
	}
	if v := getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	cfg.DatabaseURL = getenv("DATABASE_URL")
	cfg.RedisAddr = getenv("REDIS_ADDR")
	cfg.RedisPassword = getenv("REDIS_PASSWORD")
	if v := getenv("REDIS_DB"); v != "" {
		if cfg.RedisDB, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("%w: REDIS_DB=%q", ErrInvalidConfig, v)
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%w: LOG_LEVEL=%q", ErrInvalidConfig, v)
		}
	}
	if v := getenv("RATE_LIMIT_RPS"); v != "" {
		if cfg.RateLimitRPS, err = strconv.ParseFloat(v, 64); err != nil {
			return cfg, fmt.Errorf("%w: RATE_LIMIT_RPS=%q", ErrInvalidConfig, v)
		}
	}
	if v := getenv("RATE_LIMIT_BURST"); v != "" {
		if cfg.RateLimitBurst, err = strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("%w: RATE_LIMIT_BURST=%q", ErrInvalidConfig, v)
		}
	}
	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: SQLITE_PATH is empty", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown STORE_DRIVER %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("%w: negative rate limit", ErrInvalidConfig)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
