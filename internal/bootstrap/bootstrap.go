// Package bootstrap builds the stores and clients the binaries share from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"flahasoil/internal/analysis"
	"flahasoil/internal/config"
	"flahasoil/internal/irrigation"
	"flahasoil/internal/weather"
)

// Stores holds the persistence handles. Every field is nil when the database is disabled.
type Stores struct {
	Gorm     *gorm.DB
	SQL      *sqlx.DB
	Analyses *analysis.GormRepository
}

// Close releases the database connections
func (s *Stores) Close() {
	if s.SQL != nil {
		s.SQL.Close()
	}
	if s.Gorm != nil {
		if sqlDB, err := s.Gorm.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// Repository returns the analysis history store, or nil when persistence is off
func (s *Stores) Repository() analysis.Repository {
	if s.Analyses == nil {
		return nil
	}
	return s.Analyses
}

// OpenStores connects to postgres and runs migrations when enabled
func OpenStores(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Stores, error) {
	stores := &Stores{}
	if !cfg.Enabled {
		logger.Warn("Database disabled, analysis history will not be stored")
		return stores, nil
	}

	dbURL := cfg.GetDatabaseURL()
	logger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("db_name", cfg.DBName))

	db, err := gorm.Open(postgres.Open(dbURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	stores.Gorm = db

	sqlDB, err := db.DB()
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	sqlxDB, err := sqlx.ConnectContext(ctx, "postgres", dbURL)
	if err != nil {
		stores.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	stores.SQL = sqlxDB
	stores.Analyses = analysis.NewGormRepository(db)

	if cfg.AutoMigrate {
		if err := stores.Analyses.AutoMigrate(ctx); err != nil {
			stores.Close()
			return nil, fmt.Errorf("failed to migrate analysis tables: %w", err)
		}
		logger.Info("Database migrations applied")
	}
	return stores, nil
}

// NewKcRepository returns the crop coefficient store. Postgres is used when connected and
// seeded from the built-in catalog; otherwise the catalog is served from memory.
func NewKcRepository(ctx context.Context, stores *Stores, migrate bool, logger *zap.Logger) (irrigation.KcRepository, error) {
	catalog, err := irrigation.NewCatalogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to load crop catalog: %w", err)
	}
	if stores == nil || stores.SQL == nil {
		return catalog, nil
	}

	repo := irrigation.NewPostgresKcRepository(stores.SQL)
	if migrate {
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate crop tables: %w", err)
		}
		if err := repo.Seed(ctx, catalog); err != nil {
			return nil, fmt.Errorf("failed to seed crop tables: %w", err)
		}
		logger.Info("Crop coefficient tables seeded")
	}
	return repo, nil
}

// NewCache returns the shared redis cache when enabled, else an in-memory cache.
// The returned function releases it.
func NewCache(cfg config.Config, logger *zap.Logger) (weather.Cache, func(), error) {
	if cfg.Redis.Enabled {
		client, err := weather.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		cache := weather.NewRedisCache(client)
		logger.Info("Using redis weather cache", zap.String("addr", cfg.Redis.Addr))
		return cache, func() { cache.Close() }, nil
	}

	cache := weather.NewMemoryCache(cfg.Weather.CacheCleanupInterval)
	logger.Info("Using in-memory weather cache")
	return cache, cache.Stop, nil
}

// NewProviders builds the enabled weather providers in configuration order
func NewProviders(cfg config.WeatherConfig, logger *zap.Logger) []weather.Provider {
	var providers []weather.Provider
	for _, p := range cfg.Providers {
		if !p.Enabled {
			continue
		}
		switch p.Name {
		case weather.ProviderOpenWeather:
			if p.APIKey == "" {
				logger.Warn("Skipping weather provider without API key", zap.String("provider", p.Name))
				continue
			}
			providers = append(providers, weather.NewOpenWeatherClient(p.BaseURL, p.APIKey, cfg.RequestTimeout))
		case weather.ProviderNOAA:
			providers = append(providers, weather.NewNOAAClient(p.BaseURL, p.UserAgent, cfg.RequestTimeout))
		case weather.ProviderET0Service:
			if p.BaseURL == "" {
				logger.Warn("Skipping weather provider without base URL", zap.String("provider", p.Name))
				continue
			}
			providers = append(providers, weather.NewET0ServiceClient(p.BaseURL, p.APIKey, cfg.RequestTimeout))
		default:
			logger.Warn("Unknown weather provider", zap.String("provider", p.Name))
		}
	}
	return providers
}

// NewNormalizer wires the configured providers behind the cache
func NewNormalizer(cfg config.WeatherConfig, cache weather.Cache, logger *zap.Logger) *weather.Normalizer {
	wc := weather.DefaultConfig()
	if cfg.PreferredProvider != "" {
		wc.PreferredProvider = cfg.PreferredProvider
	}
	wc.Retry = weather.RetryPolicy{
		Retries:    cfg.RetryCount,
		BaseDelay:  cfg.RetryBaseDelay,
		Multiplier: cfg.RetryMultiplier,
	}
	wc.CurrentTTL = cfg.CurrentTTL
	wc.ForecastTTL = cfg.ForecastTTL
	wc.ET0TTL = cfg.ET0TTL

	providers := NewProviders(cfg, logger)
	logger.Info("Weather providers configured",
		zap.Int("count", len(providers)),
		zap.String("preferred", wc.PreferredProvider))
	return weather.NewNormalizer(wc, cache, logger, providers...)
}
