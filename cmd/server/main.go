package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/traintrack/internal/auth"
	"github.com/JonMunkholm/traintrack/internal/config"
	"github.com/JonMunkholm/traintrack/internal/core"
	"github.com/JonMunkholm/traintrack/internal/database"
	"github.com/JonMunkholm/traintrack/internal/logging"
	"github.com/JonMunkholm/traintrack/internal/store"
	"github.com/JonMunkholm/traintrack/internal/upstream"
	"github.com/JonMunkholm/traintrack/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	pg := store.NewPostgres(pool)

	httpClient := &http.Client{Timeout: cfg.Upstream.Timeout}
	opts := upstream.Options{
		HTTPClient: httpClient,
		Retries:    cfg.Upstream.Retries,
		MaxBody:    cfg.Upstream.MaxReportBytes,
	}
	tasks, err := upstream.NewTaskClient(cfg.Upstream.TaskAPIURL, pg, opts)
	if err != nil {
		slog.Error("failed to create task API client", "error", err)
		os.Exit(1)
	}
	lms, err := upstream.NewLMSClient(cfg.Upstream.LMSURL, cfg.Upstream.LMSTemplateID, pg, opts)
	if err != nil {
		slog.Error("failed to create LMS client", "error", err)
		os.Exit(1)
	}
	authenticator := &upstream.Authenticator{
		TaskURL: joinURL(cfg.Upstream.TaskAPIURL, cfg.Upstream.TaskLoginPath),
		LMSURL:  joinURL(cfg.Upstream.LMSURL, cfg.Upstream.LMSLoginPath),
		Tokens:  pg,
		Client:  httpClient,
	}

	service, err := core.NewService(core.Deps{
		Standards: pg,
		Scores:    pg,
		Imports:   pg,
		Theory:    lms,
		Practice:  tasks,
		Courses:   tasks,
	}, core.Options{
		UpstreamTimeout: cfg.Upstream.Timeout,
		MaxPages:        cfg.Upstream.MaxPages,
		MaxImports:      cfg.Upload.MaxConcurrent,
		ImportWait:      cfg.Upload.MaxWaitTime,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	if cfg.Bootstrap.SeedStandards {
		n, err := service.SeedStandards(ctx)
		if err != nil {
			slog.Error("failed to seed standards", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			slog.Info("seeded standards", "count", n)
		}
	}
	if cfg.Bootstrap.AdminPassword != "" {
		created, err := auth.Bootstrap(ctx, pg, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword)
		if err != nil {
			slog.Error("failed to bootstrap admin", "error", err)
			os.Exit(1)
		}
		if created {
			slog.Info("bootstrap admin created", "username", cfg.Bootstrap.AdminUsername)
		}
	}

	server := web.NewServer(web.Deps{
		Service:  service,
		Sessions: auth.NewManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL),
		Users:    pg,
		Upstream: authenticator,
		Ping:     pool.Ping,
	}, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionScheduler(jobCtx, core.RetentionConfig{
		ImportHistoryDays: cfg.Retention.ImportHistoryDays,
		CheckInterval:     cfg.Retention.CheckInterval,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
