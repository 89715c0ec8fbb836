// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration.
type Config struct {
	Port          string
	DatabaseURL   string
	JWTSecret     string
	BcryptCost    int
	CookieSecure  bool
	RedisURL      string
	FacetCacheTTL time.Duration
	SweepInterval time.Duration
	AdminEmails   []string
	LogLevel      slog.Level
}

// UsesPostgres reports whether DatabaseURL selects the Postgres store.
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv.
func LoadFrom(getenv func(string) string) (*Config, error) {
	env := func(key, defaultVal string) string {
		if val := getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	cfg := &Config{
		Port:        env("PORT", "8080"),
		DatabaseURL: env("DATABASE_URL", "golden-timeline.db"),
		JWTSecret:   getenv("JWT_SECRET"),
		RedisURL:    getenv("REDIS_URL"),
		// Default to secure cookies; disable only for local development.
		CookieSecure: getenv("COOKIE_SECURE") != "false",
	}

	var errs []error

	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is required"))
	} else if len(cfg.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security"))
	}

	cost, err := strconv.Atoi(env("BCRYPT_COST", "12"))
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("invalid BCRYPT_COST: %w", err))
	case cost < 4 || cost > 14:
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", cost))
	default:
		cfg.BcryptCost = cost
	}

	if cfg.FacetCacheTTL, err = time.ParseDuration(env("FACET_CACHE_TTL", "30s")); err != nil || cfg.FacetCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("invalid FACET_CACHE_TTL %q", getenv("FACET_CACHE_TTL")))
	}
	if cfg.SweepInterval, err = time.ParseDuration(env("SWEEP_INTERVAL", "5m")); err != nil || cfg.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("invalid SWEEP_INTERVAL %q", getenv("SWEEP_INTERVAL")))
	}

	for _, email := range strings.Split(getenv("ADMIN_EMAILS"), ",") {
		if email = strings.TrimSpace(email); email != "" {
			cfg.AdminEmails = append(cfg.AdminEmails, email)
		}
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}
