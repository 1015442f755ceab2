package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/Sternrassler/data-service/pkg/cache"
	"github.com/Sternrassler/data-service/pkg/dataset"
	"github.com/Sternrassler/data-service/pkg/logging"
	"github.com/Sternrassler/data-service/pkg/server"
	"github.com/Sternrassler/data-service/pkg/snapshot"
)

const (
	backendMemory = "memory"
	backendRedis  = "redis"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Usage:   "listen port",
				Sources: sources("serve.port", "PORT"),
				Value:   3000,
			},
			&cli.StringFlag{
				Name:    "cache-backend",
				Usage:   "cache backend (memory, redis)",
				Sources: sources("cache.backend", "CACHE_BACKEND"),
				Value:   backendMemory,
				Validator: func(v string) error {
					if v != backendMemory && v != backendRedis {
						return fmt.Errorf("unknown cache backend %q", v)
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "redis URL or host:port for the redis backend",
				Sources: sources("cache.redis_url", "REDIS_URL"),
				Value:   "localhost:6379",
			},
			&cli.DurationFlag{
				Name:    "cache-ttl",
				Usage:   "lifetime of the stored snapshot",
				Sources: sources("cache.ttl", "CACHE_TTL"),
				Value:   cache.DefaultTTL,
			},
			&cli.StringFlag{
				Name:    "seed",
				Usage:   "YAML or JSON file with the startup dataset",
				Sources: sources("seed", "SEED_FILE"),
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	logger := logging.NewLogger("main")

	ttl := cmd.Duration("cache-ttl")
	store, err := newStore(ctx, cmd.String("cache-backend"), cmd.String("redis-url"), ttl)
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := loadDataset(cmd.String("seed"))
	if err != nil {
		return err
	}

	snapshots := snapshot.NewManager(store, logging.NewLogger("snapshot"))
	if _, err := snapshots.Seed(ctx, ds); err != nil {
		return fmt.Errorf("seed cache: %w", err)
	}

	cfg := server.DefaultConfig()
	cfg.Addr = fmt.Sprintf(":%d", cmd.Int("port"))

	srv, err := server.New(cfg, store, snapshots)
	if err != nil {
		return err
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Str("cache_backend", cmd.String("cache-backend")).
		Dur("cache_ttl", ttl).
		Msg("Starting data service")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}

// newStore builds the cache backend and checks that it answers.
func newStore(ctx context.Context, backend, redisURL string, ttl time.Duration) (cache.Store, error) {
	switch backend {
	case backendMemory:
		return cache.NewMemoryStore(ttl), nil
	case backendRedis:
		opts, err := redisOptions(redisURL)
		if err != nil {
			return nil, err
		}
		store := cache.NewRedisStore(redis.NewClient(opts), ttl)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// redisOptions accepts a redis:// URL or a bare host:port.
func redisOptions(raw string) (*redis.Options, error) {
	if strings.Contains(raw, "://") {
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: raw}, nil
}

func loadDataset(path string) (dataset.Dataset, error) {
	if path == "" {
		return dataset.Seed(), nil
	}
	ds, err := dataset.LoadSeed(path)
	if err != nil {
		return dataset.Dataset{}, fmt.Errorf("load seed: %w", err)
	}
	return ds, nil
}
