package weather

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "weather:current:24.4500:54.3800", CurrentKey(24.45, 54.38))
	assert.Equal(t, "weather:forecast:24.4500:54.3800:5", ForecastKey(24.45, 54.38, 5))
	assert.Equal(t, "weather:et0:-33.8688:151.2093", ET0Key(-33.86882, 151.20929))
}

func TestMemoryCache(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	defer c.Stop()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "weather:et0:1:1", []byte(`{"et0":5}`), time.Hour))
	got, ok, err := c.Get(ctx, "weather:et0:1:1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"et0":5}`, string(got))

	got[0] = 'x'
	again, _, _ := c.Get(ctx, "weather:et0:1:1")
	assert.Equal(t, `{"et0":5}`, string(again), "callers get copies")

	require.NoError(t, c.Set(ctx, "weather:current:1:1", []byte(`{}`), time.Hour))
	c.DeleteByPrefix("weather:et0")
	assert.Equal(t, 1, c.Size())

	require.NoError(t, c.Delete(ctx, "weather:current:1:1"))
	assert.Equal(t, 0, c.Size())

	assert.Error(t, c.Set(ctx, "k", nil, 0))

	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestMemoryCache_Expiry(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	c := NewMemoryCache(5 * time.Millisecond)
	defer c.Stop()

	require.NoError(t, c.Set(ctx, "short", []byte("v"), 10*time.Millisecond))
	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "short")
		return !ok
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return c.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestMemoryCache_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(time.Minute)
	c.Stop()
	c.Stop()
}
