// config_test.go

// unit tests for LoadConfig and env parsing helpers.
package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setRequired sets the four required variables so individual tests can
// remove just the one they care about.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/styx")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("AUTH_PEPPER", "test-pepper")
	t.Setenv("AUTH_JWT_SECRET", "test-signing-secret")
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults applied when optionals are unset", func(t *testing.T) {
		setRequired(t)

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}

		if cfg.Port != "7865" {
			t.Errorf("port: expected 7865, got %q", cfg.Port)
		}
		if cfg.LogLevel != slog.LevelInfo {
			t.Errorf("log level: expected info, got %v", cfg.LogLevel)
		}
		if cfg.HashMemoryKiB != 64*1024 || cfg.HashIterations != 3 || cfg.HashParallelism != 2 {
			t.Errorf("argon2 defaults: got m=%d t=%d p=%d", cfg.HashMemoryKiB, cfg.HashIterations, cfg.HashParallelism)
		}
		if cfg.PasswordMinLength != 8 || cfg.PasswordMaxLength != 128 {
			t.Errorf("length bounds: got %d-%d", cfg.PasswordMinLength, cfg.PasswordMaxLength)
		}
		if cfg.PasswordMaxSame != 3 || cfg.PasswordMaxRepeated != 2 {
			t.Errorf("character caps: got same=%d repeated=%d", cfg.PasswordMaxSame, cfg.PasswordMaxRepeated)
		}
		if cfg.AccessTokenTTL != 24*time.Hour || cfg.RefreshTokenTTL != 720*time.Hour {
			t.Errorf("token TTLs: got access=%v refresh=%v", cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
		}
		if cfg.MaxLoginAttempts != 5 || cfg.LoginAttemptsWindow != 10*time.Minute {
			t.Errorf("lockout policy: got attempts=%d window=%v", cfg.MaxLoginAttempts, cfg.LoginAttemptsWindow)
		}
	})

	t.Run("missing required vars fail with the var name", func(t *testing.T) {
		for _, key := range []string{"DATABASE_URL", "REDIS_URL", "AUTH_PEPPER", "AUTH_JWT_SECRET"} {
			setRequired(t)
			t.Setenv(key, "")

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("expected error when %s is missing", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error should name %s, got %v", key, err)
			}
		}
	})

	t.Run("env overrides take effect", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PORT", "9000")
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("HASH_ITERATIONS", "5")
		t.Setenv("ACCESS_TOKEN_TTL", "15m")
		t.Setenv("MAX_LOGIN_ATTEMPTS", "3")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Port != "9000" {
			t.Errorf("port: expected 9000, got %q", cfg.Port)
		}
		if cfg.LogLevel != slog.LevelDebug {
			t.Errorf("log level: expected debug, got %v", cfg.LogLevel)
		}
		if cfg.HashIterations != 5 {
			t.Errorf("iterations: expected 5, got %d", cfg.HashIterations)
		}
		if cfg.AccessTokenTTL != 15*time.Minute {
			t.Errorf("access ttl: expected 15m, got %v", cfg.AccessTokenTTL)
		}
		if cfg.MaxLoginAttempts != 3 {
			t.Errorf("max attempts: expected 3, got %d", cfg.MaxLoginAttempts)
		}
	})

	t.Run("inverted length bounds rejected", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PASSWORD_MIN_LENGTH", "64")
		t.Setenv("PASSWORD_MAX_LENGTH", "32")

		if _, err := LoadConfig(); err == nil {
			t.Fatal("min > max must be a startup error")
		}
	})

	t.Run("garbage optional values fall back to defaults", func(t *testing.T) {
		setRequired(t)
		t.Setenv("HASH_ITERATIONS", "many")
		t.Setenv("ACCESS_TOKEN_TTL", "-5m")
		t.Setenv("MAX_LOGIN_ATTEMPTS", "0")

		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.HashIterations != 3 {
			t.Errorf("iterations: expected default 3, got %d", cfg.HashIterations)
		}
		if cfg.AccessTokenTTL != 24*time.Hour {
			t.Errorf("access ttl: expected default 24h, got %v", cfg.AccessTokenTTL)
		}
		if cfg.MaxLoginAttempts != 5 {
			t.Errorf("max attempts: expected default 5, got %d", cfg.MaxLoginAttempts)
		}
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Run("envInt", func(t *testing.T) {
		t.Setenv("STYX_TEST_INT", "")
		if got := envInt("STYX_TEST_INT", 7); got != 7 {
			t.Errorf("unset: expected 7, got %d", got)
		}
		t.Setenv("STYX_TEST_INT", "42")
		if got := envInt("STYX_TEST_INT", 7); got != 42 {
			t.Errorf("set: expected 42, got %d", got)
		}
		t.Setenv("STYX_TEST_INT", "-1")
		if got := envInt("STYX_TEST_INT", 7); got != 7 {
			t.Errorf("negative: expected default 7, got %d", got)
		}
	})

	t.Run("envDuration", func(t *testing.T) {
		t.Setenv("STYX_TEST_DUR", "")
		if got := envDuration("STYX_TEST_DUR", time.Minute); got != time.Minute {
			t.Errorf("unset: expected 1m, got %v", got)
		}
		t.Setenv("STYX_TEST_DUR", "90s")
		if got := envDuration("STYX_TEST_DUR", time.Minute); got != 90*time.Second {
			t.Errorf("set: expected 90s, got %v", got)
		}
		t.Setenv("STYX_TEST_DUR", "soon")
		if got := envDuration("STYX_TEST_DUR", time.Minute); got != time.Minute {
			t.Errorf("garbage: expected default 1m, got %v", got)
		}
	})
}
