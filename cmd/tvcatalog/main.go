package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvcatalog/internal/cache"
	"github.com/voyagen/tvcatalog/internal/config"
	"github.com/voyagen/tvcatalog/internal/logging"
	"github.com/voyagen/tvcatalog/internal/server"
	"github.com/voyagen/tvcatalog/internal/service"
	"github.com/voyagen/tvcatalog/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New("tvcatalog", cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("tvcatalog stopped")
	}
}

func run(cfg *config.Config, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var appStore store.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		appStore = store.NewMemory()
		log.Warn("using in-memory store; playlists are lost on restart")
	default:
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pg.Close()
		appStore = pg
	}

	opts := service.Options{
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.Timeout,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}

	// Redis is optional: it adds the read cache, cross-instance refresh
	// locks and the async refresh queue.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		var err error
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		appStore = store.NewCachedStore(appStore, rds, log)
		opts.Locker = rds
		opts.Queue = rds
		log.Info("redis connected (caching enabled)")
	} else {
		log.Info("redis disabled (REDIS_URL not set)")
	}

	ing := service.NewIngester(appStore, log, opts)

	if rds != nil && cfg.RefreshWorker {
		go service.RunRefreshWorker(ctx, ing, rds, log)
	}

	srv := server.New(appStore, ing, cfg, log)
	return srv.ListenAndServe(ctx)
}
