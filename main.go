package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/cache/rediscache"
	"github.com/appdotbuilder/golden-timeline/internal/config"
	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/handler"
	"github.com/appdotbuilder/golden-timeline/internal/repository/postgres"
	"github.com/appdotbuilder/golden-timeline/internal/repository/sqlite"
	"github.com/appdotbuilder/golden-timeline/internal/service"
)

type storage interface {
	domain.Database
	domain.Transactor
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logOpts := &slog.HandlerOptions{Level: cfg.LogLevel}
	logger := slog.New(slog.NewMultiHandler(
		slog.NewTextHandler(os.Stdout, logOpts),
		slog.NewJSONHandler(os.Stderr, logOpts),
	))
	slog.SetDefault(logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStorage(ctx, cfg)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database migrations applied")

	authService := service.NewAuthService(db.Users(), cfg.JWTSecret, cfg.BcryptCost)
	postService := service.NewPostService(db, time.Now)
	adminService := service.NewAdminService(db).WithClock(postService.Now)

	for _, email := range cfg.AdminEmails {
		if err := authService.PromoteAdmin(ctx, email); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				slog.Warn("admin email has no account yet", "email", email)
				continue
			}
			slog.Error("failed to promote admin", "email", email, "error", err)
			os.Exit(1)
		}
		slog.Info("admin privileges ensured", "email", email)
	}

	if cfg.RedisURL != "" {
		cache, err := rediscache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		postService.WithFacetCache(cache, cfg.FacetCacheTTL)
		slog.Info("facet cache enabled", "ttl", cfg.FacetCacheTTL)
	}

	if cfg.SweepInterval > 0 {
		go service.NewSweeper(postService, cfg.SweepInterval).Run(ctx)
		slog.Info("expiry sweeper started", "interval", cfg.SweepInterval)
	}

	authLimiter := service.NewTokenBucket(0.2, 10) // 10 burst, one every 5s
	defer authLimiter.Stop()
	postLimiter := service.NewTokenBucket(1, 5)
	defer postLimiter.Stop()

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, authService, postService, adminService,
		handler.RateLimits{Auth: authLimiter, Posts: postLimiter}, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.LogRequests(handler.SecurityHeaders(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1MB
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config) (storage, error) {
	if cfg.UsesPostgres() {
		slog.Info("using postgres store")
		return postgres.New(ctx, cfg.DatabaseURL)
	}
	slog.Info("using sqlite store", "path", cfg.DatabaseURL)
	return sqlite.New(cfg.DatabaseURL)
}
