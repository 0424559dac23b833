// config.go

// Environment variable loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all env configuration vars for Styx.
type Config struct {
	DatabaseURL string
	RedisURL    string
	Port        string
	LogLevel    slog.Level

	// Pepper is mixed into every password before hashing; JWTSecret signs
	// access and refresh tokens. Both are process-wide, loaded once, and
	// required -- there is no safe default for either.
	Pepper    string
	JWTSecret string

	// Argon2id cost parameters. Defaults: 64 MiB, 3 iterations, 2 lanes.
	HashMemoryKiB   uint32
	HashIterations  uint32
	HashParallelism uint8

	// Password policy. Defaults: length 8-128, at most 3 of any one
	// character total, at most 2 identical characters in a row.
	PasswordMinLength   int
	PasswordMaxLength   int
	PasswordMaxSame     int
	PasswordMaxRepeated int

	// Token validity windows. Defaults: 24h access, 720h (30d) refresh.
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Account lockout policy. Defaults: 5 tolerated failures, 10m window.
	MaxLoginAttempts    int
	LoginAttemptsWindow time.Duration
}

// LoadConfig reads environment variables and returns a validated Config.
// A .env file in the working directory is loaded first when present (real
// environment variables win). Returns an error if any required variable
// (DATABASE_URL, REDIS_URL, AUTH_PEPPER, AUTH_JWT_SECRET) is missing.
func LoadConfig() (*Config, error) {
	// Best-effort .env load; absence is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.Pepper = os.Getenv("AUTH_PEPPER")
	if cfg.Pepper == "" {
		return nil, fmt.Errorf("AUTH_PEPPER is required")
	}

	cfg.JWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET is required")
	}

	// Attempt to get port num, default to 7865
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		cfg.Port = "7865"
	}

	// Parse log level, default to info
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		cfg.LogLevel = slog.LevelInfo
	}

	cfg.HashMemoryKiB = uint32(envInt("HASH_MEMORY_KIB", 64*1024))
	cfg.HashIterations = uint32(envInt("HASH_ITERATIONS", 3))
	cfg.HashParallelism = uint8(envInt("HASH_PARALLELISM", 2))

	cfg.PasswordMinLength = envInt("PASSWORD_MIN_LENGTH", 8)
	cfg.PasswordMaxLength = envInt("PASSWORD_MAX_LENGTH", 128)
	cfg.PasswordMaxSame = envInt("PASSWORD_MAX_SAME_CHARS", 3)
	cfg.PasswordMaxRepeated = envInt("PASSWORD_MAX_REPEATED_CHARS", 2)
	if cfg.PasswordMinLength > cfg.PasswordMaxLength {
		return nil, fmt.Errorf("PASSWORD_MIN_LENGTH (%d) exceeds PASSWORD_MAX_LENGTH (%d)",
			cfg.PasswordMinLength, cfg.PasswordMaxLength)
	}

	cfg.AccessTokenTTL = envDuration("ACCESS_TOKEN_TTL", 24*time.Hour)
	cfg.RefreshTokenTTL = envDuration("REFRESH_TOKEN_TTL", 720*time.Hour)

	cfg.MaxLoginAttempts = envInt("MAX_LOGIN_ATTEMPTS", 5)
	cfg.LoginAttemptsWindow = envDuration("LOGIN_ATTEMPTS_WINDOW", 10*time.Minute)

	return cfg, nil
}

// envInt reads an env var as int, returning def if missing or unparseable.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// envDuration reads an env var as time.Duration, returning def if missing or unparseable.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid env var, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
