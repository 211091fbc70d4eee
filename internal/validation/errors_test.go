package validation

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorEmpty(t *testing.T) {
	var c Collector
	c.Range("sand", 50, 0, 100)
	c.Positive("area", 1)
	c.OneOf("season", "summer", "summer", "winter")
	assert.NoError(t, c.Err())
}

func TestCollectorReportsEachField(t *testing.T) {
	var c Collector
	c.Range("sand", 120, 0, 100)
	c.Positive("area", 0)
	c.OneOf("season", "monsoon", "summer", "winter")

	err := c.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	fields := Fields(err)
	require.Len(t, fields, 3)
	assert.Equal(t, "sand", fields[0].Field)
	assert.Equal(t, "OUT_OF_RANGE", fields[0].Code)
	assert.Equal(t, "NOT_POSITIVE", fields[1].Code)
	assert.Equal(t, "UNSUPPORTED_VALUE", fields[2].Code)
	assert.Contains(t, err.Error(), "sand: must be between 0 and 100, got 120")
}

func TestFieldsThroughWrapping(t *testing.T) {
	var c Collector
	c.Add("water_ec", "TOO_SALINE", "too saline")
	wrapped := fmt.Errorf("leaching: %w", c.Err())

	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
	assert.Len(t, Fields(wrapped), 1)
	assert.Nil(t, Fields(errors.New("plain")))
}

func TestCollectorRejectsNonFinite(t *testing.T) {
	var c Collector
	c.Range("water_ec", math.NaN(), 0, 25)
	c.Positive("area", math.Inf(1))
	c.NonNegative("volume", math.Inf(-1))
	c.NonNegative("uptake", -1)

	fields := Fields(c.Err())
	require.Len(t, fields, 4)
	for _, f := range fields[:3] {
		assert.Equal(t, "NOT_FINITE", f.Code, f.Field)
	}
	assert.Equal(t, "NEGATIVE", fields[3].Code)
}
