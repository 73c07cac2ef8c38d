package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":             "9090",
		"STORE_DRIVER":     "Postgres",
		"DATABASE_URL":     "host=db user=app dbname=commissions",
		"REDIS_ADDR":       "redis:6379",
		"REDIS_DB":         "2",
		"LOG_LEVEL":        "debug",
		"RATE_LIMIT_RPS":   "2.5",
		"RATE_LIMIT_BURST": "5",
		"ALLOWED_ORIGINS":  "https://a.example, https://b.example,",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad port":           {"PORT": "http"},
		"port out of range":  {"PORT": "70000"},
		"unknown driver":     {"STORE_DRIVER": "mongo"},
		"postgres needs dsn": {"STORE_DRIVER": "postgres"},
		"bad log level":      {"LOG_LEVEL": "loud"},
		"negative burst":     {"RATE_LIMIT_BURST": "-1"},
		"bad redis db":       {"REDIS_DB": "zero"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
