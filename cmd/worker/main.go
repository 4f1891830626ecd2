// Package main is the entrypoint for the CATCH search worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/smallbodies/catch-api/internal/bus"
	"github.com/smallbodies/catch-api/internal/catch"
	"github.com/smallbodies/catch-api/internal/config"
	"github.com/smallbodies/catch-api/internal/queue"
	"github.com/smallbodies/catch-api/internal/store"
	"github.com/smallbodies/catch-api/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// Migrations run from the server; the worker only requires the
	// schema to exist.

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

	matcher := catch.NewRemoteMatcher(cfg.Matcher.URL, cfg.Matcher.Timeout)
	searcher := catch.NewPostgresSearcher(pool, matcher)

	jobs := queue.New(client, cfg.Queue.Name, cfg.Queue.MaxSize)
	messages := bus.New(client, cfg.Stream.Name, cfg.Stream.MaxLen)

	task := worker.NewTask(searcher, messages, slog.Default())
	w := worker.New(jobs, task, slog.Default())

	slog.Info("worker started", "queue", cfg.Queue.Name)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker loop: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}
