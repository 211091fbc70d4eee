package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"flahasoil/internal/validation"
)

// MaxForecastDays bounds forecast requests.
const MaxForecastDays = 7

// Config controls provider preference, retries and cache lifetimes
type Config struct {
	PreferredProvider string
	Retry             RetryPolicy
	CurrentTTL        time.Duration
	ForecastTTL       time.Duration
	ET0TTL            time.Duration
}

// DefaultConfig returns the default normalizer configuration
func DefaultConfig() Config {
	return Config{
		PreferredProvider: ProviderOpenWeather,
		Retry:             DefaultRetryPolicy(),
		CurrentTTL:        time.Hour,
		ForecastTTL:       time.Hour,
		ET0TTL:            6 * time.Hour,
	}
}

// Normalizer serves weather data from the first provider that answers and
// substitutes estimates when none does. Only validation errors are returned.
type Normalizer struct {
	providers map[string]Provider
	order     []string
	cache     Cache
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewNormalizer creates a normalizer. Providers are tried in FallbackOrder; providers
// with other names follow in registration order. A nil cache disables caching.
func NewNormalizer(cfg Config, cache Cache, logger *zap.Logger, providers ...Provider) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Normalizer{
		providers: make(map[string]Provider, len(providers)),
		cache:     cache,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
	for _, p := range providers {
		n.providers[p.Name()] = p
	}
	for _, name := range FallbackOrder {
		if _, ok := n.providers[name]; ok {
			n.order = append(n.order, name)
		}
	}
	for _, p := range providers {
		if !contains(n.order, p.Name()) {
			n.order = append(n.order, p.Name())
		}
	}
	return n
}

// Providers returns the registered provider names in fallback order.
func (n *Normalizer) Providers() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// chain returns the providers in the order they are tried for one request.
func (n *Normalizer) chain(preferred string) []Provider {
	if preferred == "" {
		preferred = n.cfg.PreferredProvider
	}
	var out []Provider
	if p, ok := n.providers[preferred]; ok {
		out = append(out, p)
	}
	for _, name := range n.order {
		if name != preferred {
			out = append(out, n.providers[name])
		}
	}
	return out
}

// GetCurrentWeather returns current conditions. The first provider able to serve current
// conditions yields StatusExact; later providers yield StatusFallback.
func (n *Normalizer) GetCurrentWeather(ctx context.Context, lat, lon float64, preferred string) (*Observation, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	key := CurrentKey(lat, lon)
	var cached Observation
	if n.load(ctx, key, &cached) {
		return &cached, nil
	}

	var failed []string
	for _, p := range n.chain(preferred) {
		cp, ok := p.(CurrentProvider)
		if !ok {
			continue
		}
		var obs *Observation
		err := n.attempt(ctx, p.Name(), "current", func(ctx context.Context) error {
			var err error
			obs, err = cp.Current(ctx, lat, lon)
			return err
		})
		if err == nil {
			obs.Latitude, obs.Longitude = lat, lon
			obs.Status, obs.Note = liveStatus(failed)
			n.store(ctx, key, obs, n.cfg.CurrentTTL)
			return obs, nil
		}
		failed = append(failed, p.Name())
		if ctx.Err() != nil {
			break
		}
	}

	note := n.substitutionNote(ctx, lat, lon, failed)
	n.logger.Warn("Substituting synthetic current weather",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Strings("failed_providers", failed))
	return syntheticObservation(lat, lon, n.now(), note), nil
}

// GetForecast returns up to days daily forecasts.
func (n *Normalizer) GetForecast(ctx context.Context, lat, lon float64, days int, preferred string) (*Forecast, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if days < 1 || days > MaxForecastDays {
		var c validation.Collector
		c.Add("days", "OUT_OF_RANGE", "must be between 1 and %d, got %d", MaxForecastDays, days)
		return nil, c.Err()
	}
	key := ForecastKey(lat, lon, days)
	var cached Forecast
	if n.load(ctx, key, &cached) {
		return &cached, nil
	}

	var failed []string
	for _, p := range n.chain(preferred) {
		fp, ok := p.(ForecastProvider)
		if !ok {
			continue
		}
		var forecastDays []ForecastDay
		err := n.attempt(ctx, p.Name(), "forecast", func(ctx context.Context) error {
			var err error
			forecastDays, err = fp.Forecast(ctx, lat, lon, days)
			return err
		})
		if err == nil {
			out := &Forecast{
				Latitude:  lat,
				Longitude: lon,
				Days:      forecastDays,
				IssuedAt:  n.now().UTC(),
				Provider:  p.Name(),
			}
			out.Status, out.Note = liveStatus(failed)
			n.store(ctx, key, out, n.cfg.ForecastTTL)
			return out, nil
		}
		failed = append(failed, p.Name())
		if ctx.Err() != nil {
			break
		}
	}

	note := n.substitutionNote(ctx, lat, lon, failed)
	n.logger.Warn("Substituting synthetic forecast",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Int("days", days),
		zap.Strings("failed_providers", failed))
	return syntheticForecast(lat, lon, days, n.now(), note), nil
}

// GetET0 returns today's reference evapotranspiration. It degrades from a dedicated ET0
// provider to an estimate computed from a live forecast, then to the regional monthly normal.
func (n *Normalizer) GetET0(ctx context.Context, lat, lon float64, preferred string) (*ET0Estimate, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	var cached ET0Estimate
	if n.load(ctx, ET0Key(lat, lon), &cached) {
		return &cached, nil
	}
	return n.fetchET0(ctx, lat, lon, preferred), nil
}

// fetchET0 walks the provider chain without reading the cache. Only a live answer is
// written back, so an outage leaves an existing entry in place.
func (n *Normalizer) fetchET0(ctx context.Context, lat, lon float64, preferred string) *ET0Estimate {
	key := ET0Key(lat, lon)
	today := n.now().UTC()
	zone := string(ClimateZoneFor(lat, lon))
	chain := n.chain(preferred)

	var failed []string
	for _, p := range chain {
		ep, ok := p.(ET0Provider)
		if !ok {
			continue
		}
		var value float64
		err := n.attempt(ctx, p.Name(), "et0", func(ctx context.Context) error {
			var err error
			value, err = ep.ET0(ctx, lat, lon)
			return err
		})
		if err == nil {
			out := &ET0Estimate{
				Latitude:  lat,
				Longitude: lon,
				Date:      time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC),
				ET0:       value,
				Method:    ET0MethodProvider,
				Zone:      zone,
				Provider:  p.Name(),
			}
			out.Status, out.Note = liveStatus(failed)
			n.store(ctx, key, out, n.cfg.ET0TTL)
			return out
		}
		failed = append(failed, p.Name())
		if ctx.Err() != nil {
			return climatologyEstimate(lat, lon, today, n.substitutionNote(ctx, lat, lon, failed))
		}
	}

	for _, p := range chain {
		fp, ok := p.(ForecastProvider)
		if !ok {
			continue
		}
		var forecastDays []ForecastDay
		err := n.attempt(ctx, p.Name(), "et0_forecast", func(ctx context.Context) error {
			var err error
			forecastDays, err = fp.Forecast(ctx, lat, lon, 1)
			return err
		})
		if err == nil {
			if day, ok := firstWithRange(forecastDays); ok {
				value, method := EstimateET0(DailyWeather{
					Date:        day.Date,
					Latitude:    lat,
					TempMinC:    day.TempMinC,
					TempMaxC:    day.TempMaxC,
					HumidityPct: day.HumidityPct,
					WindSpeedMS: day.WindSpeedMS,
				})
				return &ET0Estimate{
					Latitude:  lat,
					Longitude: lon,
					Date:      day.Date,
					ET0:       value,
					Method:    method,
					Zone:      zone,
					Provider:  p.Name(),
					Status:    StatusEstimated,
					Note:      fmt.Sprintf("computed with %s from the %s forecast", method, p.Name()),
				}
			}
			err = errors.New("forecast has no usable temperature range")
			n.logger.Warn("Weather provider failed",
				zap.String("provider", p.Name()),
				zap.String("operation", "et0_forecast"),
				zap.Error(err))
		}
		failed = append(failed, p.Name())
		if ctx.Err() != nil {
			break
		}
	}

	note := n.substitutionNote(ctx, lat, lon, failed)
	n.logger.Warn("Substituting climatological ET0",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.String("zone", zone),
		zap.Strings("failed_providers", failed))
	return climatologyEstimate(lat, lon, today, note)
}

// RefreshET0 fetches ET0 for a coordinate from the providers and replaces the cached entry
// when a live value arrives. An estimate is returned but never displaces a cached live value.
func (n *Normalizer) RefreshET0(ctx context.Context, lat, lon float64) (*ET0Estimate, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	est := n.fetchET0(ctx, lat, lon, "")
	if est.Status == StatusEstimated {
		n.logger.Warn("ET0 refresh fell back to an estimate, keeping cached value",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon))
	}
	return est, nil
}

// attempt runs one provider call under the retry policy and logs every failure.
func (n *Normalizer) attempt(ctx context.Context, provider, op string, fn func(context.Context) error) error {
	err := n.cfg.Retry.Do(ctx, fn, func(retry int, delay time.Duration, err error) {
		n.logger.Info("Retrying weather provider",
			zap.String("provider", provider),
			zap.String("operation", op),
			zap.Int("attempt", retry),
			zap.Duration("backoff", delay),
			zap.Error(err))
	})
	if err != nil {
		n.logger.Warn("Weather provider failed",
			zap.String("provider", provider),
			zap.String("operation", op),
			zap.Error(err))
	}
	return err
}

func (n *Normalizer) load(ctx context.Context, key string, out interface{}) bool {
	if n.cache == nil {
		return false
	}
	b, ok, err := n.cache.Get(ctx, key)
	if err != nil {
		n.logger.Warn("Weather cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		n.logger.Warn("Discarding unreadable weather cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// store caches live results only; estimates are never cached.
func (n *Normalizer) store(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if n.cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		n.logger.Warn("Failed to encode weather cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := n.cache.Set(ctx, key, b, ttl); err != nil {
		n.logger.Warn("Weather cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (n *Normalizer) substitutionNote(ctx context.Context, lat, lon float64, failed []string) string {
	zone := ClimateZoneFor(lat, lon)
	switch {
	case ctx.Err() != nil:
		return fmt.Sprintf("request ended before a provider answered (%v); estimated from regional averages (%s)", ctx.Err(), zone)
	case len(failed) == 0:
		return fmt.Sprintf("no weather provider configured; estimated from regional averages (%s)", zone)
	default:
		return fmt.Sprintf("providers unavailable (%s); estimated from regional averages (%s)", strings.Join(failed, ", "), zone)
	}
}

func liveStatus(failed []string) (Status, string) {
	if len(failed) == 0 {
		return StatusExact, ""
	}
	return StatusFallback, fmt.Sprintf("fallback after %s failed", strings.Join(failed, ", "))
}

func firstWithRange(days []ForecastDay) (ForecastDay, bool) {
	for _, d := range days {
		if d.TempMaxC > d.TempMinC {
			return d, true
		}
	}
	return ForecastDay{}, false
}

func validateCoordinates(lat, lon float64) error {
	var c validation.Collector
	c.Range("lat", lat, -90, 90)
	c.Range("lon", lon, -180, 180)
	return c.Err()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
