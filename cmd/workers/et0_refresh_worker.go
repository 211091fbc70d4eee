package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flahasoil/internal/bootstrap"
	"flahasoil/internal/config"
	"flahasoil/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run a single refresh and exit")
	flag.Parse()

	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if !cfg.Database.Enabled {
		logger.Fatal("ET0 refresh needs the analysis database for its location list")
	}
	if !cfg.Redis.Enabled {
		logger.Warn("Redis disabled, refreshed ET0 values stay in this process only")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer stores.Close()

	cache, releaseCache, err := bootstrap.NewCache(*cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize weather cache", zap.Error(err))
	}
	defer releaseCache()
	normalizer := bootstrap.NewNormalizer(cfg.Weather, cache, logger)

	manager, err := scheduler.NewRefreshManager(stores.Analyses, normalizer, logger, refreshConfig(cfg.Scheduler))
	if err != nil {
		logger.Fatal("Failed to create refresh manager", zap.Error(err))
	}

	if *once {
		summary, err := manager.RunOnce(ctx)
		if err != nil || summary.Failed > 0 {
			os.Exit(1)
		}
		return
	}

	if !cfg.Scheduler.Enabled {
		logger.Info("ET0 refresh scheduler disabled")
		return
	}

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := manager.Start(); err != nil {
		logger.Fatal("Failed to start refresh manager", zap.Error(err))
	}

	<-sigChan
	logger.Info("Shutdown signal received")
	manager.Stop()
	logger.Info("ET0 refresh worker stopped")
}

// refreshConfig maps the scheduler settings onto the refresh manager
func refreshConfig(cfg config.SchedulerConfig) scheduler.RefreshManagerConfig {
	return scheduler.RefreshManagerConfig{
		Schedule:      cfg.ET0RefreshCron,
		LocationLimit: cfg.LocationLimit,
		MaxConcurrent: cfg.MaxConcurrent,
	}
}
