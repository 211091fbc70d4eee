package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Weather    WeatherConfig    `json:"weather"`
	Irrigation IrrigationConfig `json:"irrigation"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Enabled        bool          `json:"enabled"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
	AutoMigrate    bool          `json:"auto_migrate"`
}

// RedisConfig represents the shared weather cache
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// ProviderConfig represents one weather provider
type ProviderConfig struct {
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	UserAgent string `json:"user_agent,omitempty"`
}

// WeatherConfig represents provider, retry and cache settings
type WeatherConfig struct {
	PreferredProvider    string           `json:"preferred_provider"`
	Providers            []ProviderConfig `json:"providers"`
	RequestTimeout       time.Duration    `json:"request_timeout"`
	RetryCount           int              `json:"retry_count"`
	RetryBaseDelay       time.Duration    `json:"retry_base_delay"`
	RetryMultiplier      float64          `json:"retry_multiplier"`
	CurrentTTL           time.Duration    `json:"current_ttl"`
	ForecastTTL          time.Duration    `json:"forecast_ttl"`
	ET0TTL               time.Duration    `json:"et0_ttl"`
	CacheCleanupInterval time.Duration    `json:"cache_cleanup_interval"`
}

// IrrigationConfig represents decision-support defaults
type IrrigationConfig struct {
	DefaultMAD float64 `json:"default_mad"`
	Region     string  `json:"region"`
}

// SchedulerConfig represents the ET0 cache warm-up job
type SchedulerConfig struct {
	Enabled        bool   `json:"enabled"`
	ET0RefreshCron string `json:"et0_refresh_cron"`
	LocationLimit  int    `json:"location_limit"`
	MaxConcurrent  int    `json:"max_concurrent"`
}

// LoggingConfig represents logger settings
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:        true,
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "flahasoil",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
			AutoMigrate:    true,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Weather: WeatherConfig{
			PreferredProvider: "openweathermap",
			Providers: []ProviderConfig{
				{Name: "openweathermap", Enabled: true, BaseURL: "https://api.openweathermap.org/data/2.5"},
				{Name: "noaa", Enabled: true, BaseURL: "https://api.weather.gov"},
				{Name: "et0service", Enabled: false},
			},
			RequestTimeout:       10 * time.Second,
			RetryCount:           3,
			RetryBaseDelay:       time.Second,
			RetryMultiplier:      2,
			CurrentTTL:           time.Hour,
			ForecastTTL:          time.Hour,
			ET0TTL:               6 * time.Hour,
			CacheCleanupInterval: time.Minute,
		},
		Irrigation: IrrigationConfig{
			DefaultMAD: 0.5,
			Region:     "gcc",
		},
		Scheduler: SchedulerConfig{
			Enabled:        true,
			ET0RefreshCron: "0 */6 * * *",
			LocationLimit:  500,
			MaxConcurrent:  4,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Load from file if exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
		config.Redis.Enabled = true
	}
	if pass := os.Getenv("REDIS_PASSWORD"); pass != "" {
		config.Redis.Password = pass
	}
	if key := os.Getenv("OPENWEATHER_API_KEY"); key != "" {
		config.Weather.provider("openweathermap").APIKey = key
	}
	if key := os.Getenv("ET0_API_KEY"); key != "" {
		p := config.Weather.provider("et0service")
		p.APIKey = key
		p.Enabled = true
	}
	if url := os.Getenv("ET0_API_BASE_URL"); url != "" {
		config.Weather.provider("et0service").BaseURL = url
	}
	if ua := os.Getenv("NOAA_USER_AGENT"); ua != "" {
		config.Weather.provider("noaa").UserAgent = ua
	}
	if preferred := os.Getenv("WEATHER_PREFERRED_PROVIDER"); preferred != "" {
		config.Weather.PreferredProvider = preferred
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if spec := os.Getenv("ET0_REFRESH_CRON"); spec != "" {
		config.Scheduler.ET0RefreshCron = spec
	}
	if n := os.Getenv("ET0_REFRESH_CONCURRENCY"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.Scheduler.MaxConcurrent = v
		}
	}
}

// provider returns the named provider entry, appending a disabled one when absent.
func (c *WeatherConfig) provider(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	c.Providers = append(c.Providers, ProviderConfig{Name: name})
	return &c.Providers[len(c.Providers)-1]
}

// Provider returns the named provider entry
func (c *WeatherConfig) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Validate rejects configurations the services cannot start with
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Weather.RetryCount < 0 {
		problems = append(problems, fmt.Sprintf("weather.retry_count must not be negative, got %d", c.Weather.RetryCount))
	}
	for name, ttl := range map[string]time.Duration{
		"weather.current_ttl":  c.Weather.CurrentTTL,
		"weather.forecast_ttl": c.Weather.ForecastTTL,
		"weather.et0_ttl":      c.Weather.ET0TTL,
	} {
		if ttl <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive, got %s", name, ttl))
		}
	}
	if c.Scheduler.MaxConcurrent < 1 {
		problems = append(problems, fmt.Sprintf("scheduler.max_concurrent must be at least 1, got %d", c.Scheduler.MaxConcurrent))
	}
	if c.Irrigation.DefaultMAD <= 0 || c.Irrigation.DefaultMAD > 1 {
		problems = append(problems, fmt.Sprintf("irrigation.default_mad must be in (0, 1], got %g", c.Irrigation.DefaultMAD))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("logging.level %q is not a valid level", c.Logging.Level))
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// NewLogger builds the application logger from the logging settings
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
