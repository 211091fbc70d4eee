package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"flahasoil/internal/validation"
)

// MockWeatherProvider serves current conditions and forecasts
type MockWeatherProvider struct {
	mock.Mock
	name string
}

func (m *MockWeatherProvider) Name() string { return m.name }

func (m *MockWeatherProvider) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	args := m.Called(ctx, lat, lon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Observation), args.Error(1)
}

func (m *MockWeatherProvider) Forecast(ctx context.Context, lat, lon float64, days int) ([]ForecastDay, error) {
	args := m.Called(ctx, lat, lon, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ForecastDay), args.Error(1)
}

// MockET0Provider serves ET0 only
type MockET0Provider struct {
	mock.Mock
}

func (m *MockET0Provider) Name() string { return ProviderET0Service }

func (m *MockET0Provider) ET0(ctx context.Context, lat, lon float64) (float64, error) {
	args := m.Called(ctx, lat, lon)
	return args.Get(0).(float64), args.Error(1)
}

const (
	testLat = 24.45
	testLon = 54.38
)

var (
	testNow    = time.Date(2024, time.July, 15, 9, 0, 0, 0, time.UTC)
	errOffline = errors.New("connection refused")
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = RetryPolicy{Retries: 1, BaseDelay: time.Millisecond, Multiplier: 2}
	return cfg
}

func newTestNormalizer(cache Cache, providers ...Provider) (*Normalizer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewNormalizer(testConfig(), cache, zap.New(core), providers...)
	n.now = func() time.Time { return testNow }
	return n, logs
}

func liveObservation(provider string) *Observation {
	return &Observation{TemperatureC: 40, HumidityPct: 30, Provider: provider, Condition: ConditionClear}
}

func TestNormalizer_ProviderOrder(t *testing.T) {
	owm := &MockWeatherProvider{name: ProviderOpenWeather}
	noaa := &MockWeatherProvider{name: ProviderNOAA}
	et0 := &MockET0Provider{}
	custom := &MockWeatherProvider{name: "meteo"}

	n, _ := newTestNormalizer(nil, custom, et0, noaa, owm)
	assert.Equal(t, []string{ProviderOpenWeather, ProviderNOAA, ProviderET0Service, "meteo"}, n.Providers())

	names := func(ps []Provider) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.Name()
		}
		return out
	}
	assert.Equal(t, []string{ProviderNOAA, ProviderOpenWeather, ProviderET0Service, "meteo"}, names(n.chain(ProviderNOAA)))
	assert.Equal(t, []string{ProviderOpenWeather, ProviderNOAA, ProviderET0Service, "meteo"}, names(n.chain("")))
	assert.Equal(t, []string{ProviderOpenWeather, ProviderNOAA, ProviderET0Service, "meteo"}, names(n.chain("unknown")))
}

func TestNormalizer_GetCurrentWeather_PreferredLive(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Stop()

	noaa := &MockWeatherProvider{name: ProviderNOAA}
	noaa.On("Current", mock.Anything, testLat, testLon).Return(liveObservation(ProviderNOAA), nil).Once()
	owm := &MockWeatherProvider{name: ProviderOpenWeather}

	n, _ := newTestNormalizer(cache, owm, noaa)

	obs, err := n.GetCurrentWeather(context.Background(), testLat, testLon, ProviderNOAA)
	require.NoError(t, err)
	assert.Equal(t, StatusExact, obs.Status)
	assert.Equal(t, ProviderNOAA, obs.Provider)
	assert.Empty(t, obs.Note)
	assert.Equal(t, testLat, obs.Latitude)

	cached, err := n.GetCurrentWeather(context.Background(), testLat, testLon, ProviderNOAA)
	require.NoError(t, err)
	assert.Equal(t, obs.TemperatureC, cached.TemperatureC)
	assert.Equal(t, StatusExact, cached.Status)

	noaa.AssertNumberOfCalls(t, "Current", 1)
	owm.AssertNotCalled(t, "Current", mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalizer_GetCurrentWeather_Fallback(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Stop()

	owm := &MockWeatherProvider{name: ProviderOpenWeather}
	owm.On("Current", mock.Anything, testLat, testLon).Return(nil, errOffline)
	noaa := &MockWeatherProvider{name: ProviderNOAA}
	noaa.On("Current", mock.Anything, testLat, testLon).Return(liveObservation(ProviderNOAA), nil)

	n, logs := newTestNormalizer(cache, owm, noaa)

	obs, err := n.GetCurrentWeather(context.Background(), testLat, testLon, "")
	require.NoError(t, err)
	assert.Equal(t, StatusFallback, obs.Status)
	assert.Equal(t, ProviderNOAA, obs.Provider)
	assert.Contains(t, obs.Note, ProviderOpenWeather)

	owm.AssertNumberOfCalls(t, "Current", 2)
	assert.Equal(t, 1, logs.FilterMessage("Retrying weather provider").Len())
	failures := logs.FilterMessage("Weather provider failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, ProviderOpenWeather, failures[0].ContextMap()["provider"])
	assert.Equal(t, 1, cache.Size())
}

func TestNormalizer_GetCurrentWeather_AllFail(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Stop()

	owm := &MockWeatherProvider{name: ProviderOpenWeather}
	owm.On("Current", mock.Anything, testLat, testLon).Return(nil, permanent(ErrProviderNotConfigured))
	noaa := &MockWeatherProvider{name: ProviderNOAA}
	noaa.On("Current", mock.Anything, testLat, testLon).Return(nil, errOffline)

	n, logs := newTestNormalizer(cache, owm, noaa)

	obs, err := n.GetCurrentWeather(context.Background(), testLat, testLon, "")
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, obs.Status)
	assert.Equal(t, ProviderSynthetic, obs.Provider)
	assert.Contains(t, obs.Note, "openweathermap, noaa")
	assert.Contains(t, obs.Note, "gcc_arid")
	assert.Equal(t, 36.0, obs.TemperatureC, "July normal for the Gulf")

	owm.AssertNumberOfCalls(t, "Current", 1)
	noaa.AssertNumberOfCalls(t, "Current", 2)
	assert.Equal(t, 0, cache.Size(), "estimates are not cached")
	substitutions := logs.FilterMessage("Substituting synthetic current weather").All()
	require.Len(t, substitutions, 1)
	assert.Equal(t, zapcore.WarnLevel, substitutions[0].Level)
}

func TestNormalizer_GetCurrentWeather_NoProviders(t *testing.T) {
	n, _ := newTestNormalizer(nil)

	obs, err := n.GetCurrentWeather(context.Background(), 51.5, -0.12, "")
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, obs.Status)
	assert.Contains(t, obs.Note, "no weather provider configured")
	assert.Contains(t, obs.Note, "temperate")
}

func TestNormalizer_GetCurrentWeather_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	owm := &MockWeatherProvider{name: ProviderOpenWeather}
	owm.On("Current", mock.Anything, testLat, testLon).Return(nil, context.Canceled)
	noaa := &MockWeatherProvider{name: ProviderNOAA}

	n, _ := newTestNormalizer(nil, owm, noaa)

	obs, err := n.GetCurrentWeather(ctx, testLat, testLon, "")
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, obs.Status)
	assert.Contains(t, obs.Note, "request ended before a provider answered")

	owm.AssertNumberOfCalls(t, "Current", 1)
	noaa.AssertNotCalled(t, "Current", mock.Anything, mock.Anything, mock.Anything)
}

func TestNormalizer_InvalidCoordinates(t *testing.T) {
	n, _ := newTestNormalizer(nil)

	_, err := n.GetCurrentWeather(context.Background(), 91, 0, "")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)

	_, err = n.GetET0(context.Background(), 0, 181, "")
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "lon", validation.Fields(err)[0].Field)

	_, err = n.GetForecast(context.Background(), 0, 0, 0, "")
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "days", validation.Fields(err)[0].Field)

	_, err = n.GetForecast(context.Background(), 0, 0, MaxForecastDays+1, "")
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestNormalizer_GetForecast(t *testing.T) {
	day := ForecastDay{Date: time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), TempMinC: 30, TempMaxC: 44}

	t.Run("live", func(t *testing.T) {
		owm := &MockWeatherProvider{name: ProviderOpenWeather}
		owm.On("Forecast", mock.Anything, testLat, testLon, 3).Return([]ForecastDay{day}, nil)

		n, _ := newTestNormalizer(nil, owm)
		f, err := n.GetForecast(context.Background(), testLat, testLon, 3, "")
		require.NoError(t, err)
		assert.Equal(t, StatusExact, f.Status)
		assert.Equal(t, []ForecastDay{day}, f.Days)
		assert.Equal(t, testNow, f.IssuedAt)
	})

	t.Run("synthetic", func(t *testing.T) {
		owm := &MockWeatherProvider{name: ProviderOpenWeather}
		owm.On("Forecast", mock.Anything, testLat, testLon, 3).Return(nil, errOffline)

		n, _ := newTestNormalizer(nil, owm)
		f, err := n.GetForecast(context.Background(), testLat, testLon, 3, "")
		require.NoError(t, err)
		assert.Equal(t, StatusEstimated, f.Status)
		require.Len(t, f.Days, 3)
		assert.Equal(t, time.Date(2024, time.July, 17, 0, 0, 0, 0, time.UTC), f.Days[2].Date)
		assert.Equal(t, 30.0, f.Days[0].TempMinC)
		assert.Equal(t, 42.0, f.Days[0].TempMaxC)
	})
}

func TestNormalizer_GetET0(t *testing.T) {
	t.Run("dedicated provider", func(t *testing.T) {
		cache := NewMemoryCache(time.Minute)
		defer cache.Stop()

		et0 := &MockET0Provider{}
		et0.On("ET0", mock.Anything, testLat, testLon).Return(8.1, nil)
		owm := &MockWeatherProvider{name: ProviderOpenWeather}

		n, _ := newTestNormalizer(cache, owm, et0)
		est, err := n.GetET0(context.Background(), testLat, testLon, "")
		require.NoError(t, err)
		assert.Equal(t, 8.1, est.ET0)
		assert.Equal(t, ET0MethodProvider, est.Method)
		assert.Equal(t, StatusExact, est.Status)
		assert.Equal(t, "gcc_arid", est.Zone)
		assert.Equal(t, 1, cache.Size())

		owm.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("computed from forecast", func(t *testing.T) {
		cache := NewMemoryCache(time.Minute)
		defer cache.Stop()

		et0 := &MockET0Provider{}
		et0.On("ET0", mock.Anything, testLat, testLon).Return(0.0, errOffline)
		owm := &MockWeatherProvider{name: ProviderOpenWeather}
		owm.On("Forecast", mock.Anything, testLat, testLon, 1).Return([]ForecastDay{{
			Date:        time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC),
			TempMinC:    30,
			TempMaxC:    44,
			HumidityPct: floatPtr(30),
			WindSpeedMS: floatPtr(4),
		}}, nil)

		n, _ := newTestNormalizer(cache, owm, et0)
		est, err := n.GetET0(context.Background(), testLat, testLon, "")
		require.NoError(t, err)
		assert.Equal(t, ET0MethodPenmanMonteith, est.Method)
		assert.Equal(t, StatusEstimated, est.Status)
		assert.Equal(t, ProviderOpenWeather, est.Provider)
		assert.InDelta(t, 9.72, est.ET0, 0.01)
		assert.Equal(t, 0, cache.Size(), "estimates are not cached")
	})

	t.Run("forecast without range", func(t *testing.T) {
		owm := &MockWeatherProvider{name: ProviderOpenWeather}
		owm.On("Forecast", mock.Anything, testLat, testLon, 1).Return([]ForecastDay{{TempMinC: 30, TempMaxC: 30}}, nil)

		n, _ := newTestNormalizer(nil, owm)
		est, err := n.GetET0(context.Background(), testLat, testLon, "")
		require.NoError(t, err)
		assert.Equal(t, ET0MethodClimatology, est.Method)
	})

	t.Run("climatology", func(t *testing.T) {
		et0 := &MockET0Provider{}
		et0.On("ET0", mock.Anything, testLat, testLon).Return(0.0, errOffline)
		noaa := &MockWeatherProvider{name: ProviderNOAA}
		noaa.On("Forecast", mock.Anything, testLat, testLon, 1).Return(nil, errOffline)

		n, logs := newTestNormalizer(nil, noaa, et0)
		est, err := n.GetET0(context.Background(), testLat, testLon, "")
		require.NoError(t, err)
		assert.Equal(t, ET0MethodClimatology, est.Method)
		assert.Equal(t, StatusEstimated, est.Status)
		assert.Equal(t, 9.9, est.ET0)
		assert.Equal(t, time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC), est.Date)
		assert.Contains(t, est.Note, "et0service, noaa")
		assert.Equal(t, 1, logs.FilterMessage("Substituting climatological ET0").Len())
	})
}

func TestNormalizer_RefreshET0(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Stop()

	et0 := &MockET0Provider{}
	et0.On("ET0", mock.Anything, testLat, testLon).Return(7.0, nil).Once()
	et0.On("ET0", mock.Anything, testLat, testLon).Return(7.5, nil).Once()

	n, _ := newTestNormalizer(cache, et0)

	first, err := n.GetET0(context.Background(), testLat, testLon, "")
	require.NoError(t, err)
	assert.Equal(t, 7.0, first.ET0)

	cached, err := n.GetET0(context.Background(), testLat, testLon, "")
	require.NoError(t, err)
	assert.Equal(t, 7.0, cached.ET0)

	refreshed, err := n.RefreshET0(context.Background(), testLat, testLon)
	require.NoError(t, err)
	assert.Equal(t, 7.5, refreshed.ET0)
	et0.AssertNumberOfCalls(t, "ET0", 2)
}

func TestNormalizer_RefreshET0_OutageKeepsCachedValue(t *testing.T) {
	cache := NewMemoryCache(time.Minute)
	defer cache.Stop()

	et0 := &MockET0Provider{}
	et0.On("ET0", mock.Anything, testLat, testLon).Return(7.0, nil).Once()
	et0.On("ET0", mock.Anything, testLat, testLon).Return(0.0, errOffline)

	n, logs := newTestNormalizer(cache, et0)

	first, err := n.GetET0(context.Background(), testLat, testLon, "")
	require.NoError(t, err)
	require.Equal(t, StatusExact, first.Status)

	refreshed, err := n.RefreshET0(context.Background(), testLat, testLon)
	require.NoError(t, err)
	assert.Equal(t, StatusEstimated, refreshed.Status)
	assert.Equal(t, 1, logs.FilterMessage("ET0 refresh fell back to an estimate, keeping cached value").Len())

	after, err := n.GetET0(context.Background(), testLat, testLon, "")
	require.NoError(t, err)
	assert.Equal(t, StatusExact, after.Status)
	assert.Equal(t, 7.0, after.ET0)
	assert.Equal(t, 1, cache.Size())
}

func TestNormalizer_RefreshET0_InvalidCoordinates(t *testing.T) {
	n, _ := newTestNormalizer(nil)
	_, err := n.RefreshET0(context.Background(), 95, testLon)
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}
