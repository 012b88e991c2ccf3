package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=kasa port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort      string
	DatabaseDSN   string
	JWTSecret     string
	CORSOrigins   string
	LogLevel      string
	LogFormat     string
	RedisAddr     string // empty keeps notifications in-process
	RedisPassword string
	RedisDB       int
	NotifyPrefix  string
	TxTimeout     time.Duration
}

// Load reads the environment. Settings that are unsafe for production but
// still usable are returned as warnings for the caller to log.
func Load() (*Config, []string, error) {
	cfg := &Config{
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		NotifyPrefix:  getEnv("NOTIFY_CHANNEL_PREFIX", "cash-register-session"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0")); err != nil || cfg.RedisDB < 0 {
		return nil, nil, fmt.Errorf("REDIS_DB must be a non-negative integer")
	}
	if cfg.TxTimeout, err = time.ParseDuration(getEnv("TX_TIMEOUT", "10s")); err != nil || cfg.TxTimeout <= 0 {
		return nil, nil, fmt.Errorf("TX_TIMEOUT must be a positive duration such as 10s")
	}

	if cfg.JWTSecret == "" {
		return nil, nil, errors.New("JWT_SECRET is not set; it is required in every environment")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, nil, errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch cfg.LogFormat {
	case "json", "console":
	default:
		return nil, nil, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	var warnings []string
	if cfg.DatabaseDSN == defaultDSN {
		warnings = append(warnings, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		warnings = append(warnings, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}

	return cfg, warnings, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS into trimmed entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
