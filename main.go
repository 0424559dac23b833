package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MGallo-Code/styx/internal/auth"
	"github.com/MGallo-Code/styx/internal/config"
	"github.com/MGallo-Code/styx/internal/store"
	"github.com/MGallo-Code/styx/internal/todo"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Embeds the migration files INTO the go bin

//go:embed migrations/*.sql
var migrationsDir embed.FS

func main() {
	// Load config first so we can set log level
	cfg, err := config.LoadConfig()
	if err != nil {
		// Fallback logger before config is available
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}

	// Include source location in log entries at debug level only.
	addSrc := cfg.LogLevel == slog.LevelDebug

	// Set up slog to output as json with configured level
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: addSrc,
	})))

	// Cancel ctx on SIGINT/SIGTERM; run() shuts down when ctx is done.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run() is a separate func so deferred closes always execute before os.Exit.
	if err := run(ctx, cfg, nil); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// run holds all server logic and returns error instead of calling os.Exit,
// so deferred resource cleanup (ps.Close, rdb.Close) always runs.
// Shuts down when ctx is cancelled (signal handling is the caller's concern).
// If ready is non-nil, the server's base URL is sent on it once the listener is bound.
func run(ctx context.Context, cfg *config.Config, ready chan<- string) error {
	ps, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to set up postgres store: %w", err)
	}
	defer ps.Close()

	// Run database migrations
	migrationsFS, err := fs.Sub(migrationsDir, "migrations")
	if err != nil {
		return fmt.Errorf("failed to access embedded migrations: %w", err)
	}
	if err := ps.Migrate(ctx, migrationsFS); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Shared Redis client; the token registry rides on one connection pool.
	rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to set up redis client: %w", err)
	}
	defer rdb.Close()

	tr := store.NewTokenRegistry(rdb)

	tracker := &auth.LoginAttemptTracker{
		Store:       ps,
		MaxAttempts: cfg.MaxLoginAttempts,
		Window:      cfg.LoginAttemptsWindow,
	}

	ah := auth.AuthHandler{
		PS:      ps,
		TR:      tr,
		Tracker: tracker,
		Policy: auth.PasswordPolicy{
			MinLength:        cfg.PasswordMinLength,
			MaxLength:        cfg.PasswordMaxLength,
			MaxSameChars:     cfg.PasswordMaxSame,
			MaxRepeatedChars: cfg.PasswordMaxRepeated,
		},
		Passwords: &auth.PasswordSettings{
			Pepper:      auth.NewSecret(cfg.Pepper),
			MemoryKiB:   cfg.HashMemoryKiB,
			Iterations:  cfg.HashIterations,
			Parallelism: cfg.HashParallelism,
		},
		Tokens: &auth.TokenSettings{
			Secret:     auth.NewSecret(cfg.JWTSecret),
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		},
	}

	th := todo.Handler{TS: ps}

	// Bind listener; ":0" picks a free port (useful in tests).
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{Handler: buildRouter(&ah, &th)}

	// Token-row cleanup goroutine; removes rows expired >7 days ago, runs
	// every 24h. The registry side expires itself via TTL; this only prunes
	// the Postgres reverse index. Cancelled via cleanupCtx when run() returns.
	cleanupCtx, cancelCleanup := context.WithCancel(ctx)
	defer cancelCleanup()
	go func() {
		const retention = 7 * 24 * time.Hour
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := ps.CleanupExpiredTokens(cleanupCtx, retention)
				if err != nil {
					slog.Warn("token cleanup failed", "error", err)
				} else {
					slog.Info("token cleanup complete", "deleted", n)
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	// Start server in a goroutine; run() continues past this.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("styx listening", "addr", ln.Addr().String())
		// Send error only if server stops for a reason other than explicit shutdown.
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Signal readiness to caller (used by tests; nil in production).
	if ready != nil {
		ready <- "http://" + ln.Addr().String()
	}

	// Wait for server error or shutdown signal from ctx.
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// buildRouter wires all routes and middleware.
func buildRouter(ah *auth.AuthHandler, th *todo.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/sign-up", ah.SignUp)
	r.Post("/login", ah.Login)

	// Authentication required routes
	r.Group(func(r chi.Router) {
		r.Use(ah.RequireAuth)
		r.Post("/logout", ah.Logout)
		r.Get("/me", ah.Me)
		r.Patch("/me", ah.UpdateMe)

		r.Route("/todos", func(r chi.Router) {
			r.Get("/", th.List)
			r.Post("/", th.Create)
			r.Get("/statuses", th.Statuses)
			r.Get("/{todoID}", th.Get)
			r.Put("/{todoID}", th.Update)
			r.Post("/{todoID}/complete", th.Complete)
			r.Post("/{todoID}/reopen", th.Reopen)
			r.Post("/{todoID}/archive", th.Archive)
			r.Delete("/{todoID}", th.Delete)
		})
	})

	return r
}
