package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flahasoil/internal/analysis"
	"flahasoil/internal/bootstrap"
	"flahasoil/internal/config"
	"flahasoil/internal/irrigation"
)

func main() {
	// A missing .env is fine; the environment may already be populated
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

	ctx := context.Background()

	// Persistence
	stores, err := bootstrap.OpenStores(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer stores.Close()

	crops, err := bootstrap.NewKcRepository(ctx, stores, cfg.Database.AutoMigrate, logger)
	if err != nil {
		logger.Fatal("Failed to initialize crop repository", zap.Error(err))
	}

	// Weather
	cache, releaseCache, err := bootstrap.NewCache(*cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize weather cache", zap.Error(err))
	}
	defer releaseCache()
	normalizer := bootstrap.NewNormalizer(cfg.Weather, cache, logger)

	// Analysis module
	calculator := irrigation.NewCalculator(irrigation.NewKcResolver(crops), irrigation.CalculatorConfig{
		DefaultMAD: cfg.Irrigation.DefaultMAD,
		Region:     cfg.Irrigation.Region,
	})
	analysisService := analysis.NewService(stores.Repository(), crops, calculator, normalizer, logger)
	analysisHandler := analysis.NewHandler(analysisService, logger)

	// Setup Router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		analysisHandler.RegisterRoutes(api)
	}

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.Bool("history_enabled", cfg.Database.Enabled),
		zap.Strings("weather_providers", normalizer.Providers()))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
