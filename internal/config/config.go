package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AllowedSources lists the survey sources users may search through the
// API. The database may hold additional development or deprecated
// sources; those are never exposed.
var AllowedSources = []string{
	"neat_palomar_tricam",
	"neat_maui_geodss",
	"skymapper",
	"ps1dr2",
	"catalina_bigelow",
	"catalina_lemmon",
	"catalina_bokneosurvey",
	"spacewatch",
}

// SourceAllowed reports whether users may search the named source.
func SourceAllowed(source string) bool {
	for _, s := range AllowedSources {
		if s == source {
			return true
		}
	}
	return false
}

// Config holds all configuration for the CATCH API server and worker.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Stream   StreamConfig
	Matcher  MatcherConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type QueueConfig struct {
	// Name is the Redis list holding pending search jobs.
	Name string
	// MaxSize is the soft capacity bound enforced by admission control.
	MaxSize int
	// JobTimeout is the wall-clock ceiling for one search task.
	JobTimeout time.Duration
}

type StreamConfig struct {
	// Name is the Redis stream carrying all task messages system-wide.
	Name string
	// MaxLen is the approximate trim length of the stream.
	MaxLen int64
	// Timeout closes a streaming connection after this much continuous
	// silence.
	Timeout time.Duration
}

type MatcherConfig struct {
	// URL is the base URL of the cross-match engine.
	URL string
	// Timeout bounds one engine request; moving target searches can run
	// for minutes.
	Timeout time.Duration
}

// Load reads configuration from the environment (and a .env file when
// present) and returns a validated Config.
func Load() (*Config, error) {
	// .env values never override variables already set in the OS
	// environment.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("CATCH_PORT", 5000),
			Env:             envString("CATCH_ENV", "development"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Queue: QueueConfig{
			Name:       envString("REDIS_JOBS_QUEUE", "catch-jobs"),
			MaxSize:    envInt("REDIS_JOBS_MAX_QUEUE_SIZE", 100),
			JobTimeout: envDuration("JOB_TIMEOUT", 20*time.Minute),
		},
		Stream: StreamConfig{
			Name:    envString("REDIS_TASK_MESSAGES", "catch-task-messages"),
			MaxLen:  int64(envInt("REDIS_TASK_MESSAGES_MAX_STREAM_LEN", 1000)),
			Timeout: envDuration("STREAM_TIMEOUT", 60*time.Second),
		},
		Matcher: MatcherConfig{
			URL:     os.Getenv("MATCHER_URL"),
			Timeout: envDuration("MATCHER_TIMEOUT", 10*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Matcher.URL == "" {
		return fmt.Errorf("MATCHER_URL is required")
	}
	if c.Queue.MaxSize <= 0 {
		return fmt.Errorf("REDIS_JOBS_MAX_QUEUE_SIZE must be positive, got %d", c.Queue.MaxSize)
	}
	if c.Stream.MaxLen <= 0 {
		return fmt.Errorf("REDIS_TASK_MESSAGES_MAX_STREAM_LEN must be positive, got %d", c.Stream.MaxLen)
	}
	if c.Stream.Timeout <= 0 {
		return fmt.Errorf("STREAM_TIMEOUT must be positive, got %s", c.Stream.Timeout)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
