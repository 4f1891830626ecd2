// Package main is the entrypoint for the CATCH API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallbodies/catch-api/internal/api"
	"github.com/smallbodies/catch-api/internal/api/handler"
	mw "github.com/smallbodies/catch-api/internal/api/middleware"
	"github.com/smallbodies/catch-api/internal/bus"
	"github.com/smallbodies/catch-api/internal/cache"
	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/internal/config"
	"github.com/smallbodies/catch-api/internal/queue"
	"github.com/smallbodies/catch-api/internal/service"
	"github.com/smallbodies/catch-api/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Connect to Redis — one client shared by the queue, the message
	// stream, and the rate limiter
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Build the search stack
	matcher := catch.NewRemoteMatcher(cfg.Matcher.URL, cfg.Matcher.Timeout)
	searcher := catch.NewPostgresSearcher(pool, matcher)

	jobs := queue.New(client, cfg.Queue.Name, cfg.Queue.MaxSize)
	messages := bus.New(client, cfg.Stream.Name, cfg.Stream.MaxLen)

	svc := service.New(searcher, jobs, messages, cfg.Queue.JobTimeout, slog.Default())

	// 6. Build router with dependencies
	redisCache := cache.New(client)
	rateLimit := mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin)

	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:      handler.NewHealthHandler(searcher, redisCache),
		CatchHandler:       handler.NewCatchHandler(svc),
		FixedHandler:       handler.NewFixedHandler(svc),
		CaughtHandler:      handler.NewCaughtHandler(svc),
		StreamHandler:      handler.NewStreamHandler(messages, cfg.Stream.Timeout),
		SourcesHandler:     handler.NewSourcesHandler(svc),
		QueueStatusHandler: handler.NewQueueStatusHandler(svc),
		UpdatesHandler:     handler.NewUpdatesHandler(svc),
		JobStatusHandler:   handler.NewJobStatusHandler(svc),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the stream endpoint holds connections open
		// for as long as the client listens.
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
