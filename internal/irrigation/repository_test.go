package irrigation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flahasoil/internal/validation"
)

func TestCatalogLoads(t *testing.T) {
	repo, err := NewCatalogRepository()
	require.NoError(t, err)

	crops, err := repo.ListCrops(context.Background())
	require.NoError(t, err)
	assert.Len(t, crops, 13)

	for _, c := range crops {
		assert.Len(t, c.Stages, 4, c.ID)
		assert.Greater(t, c.RootDepthMaxM, 0.0, c.ID)
		assert.Greater(t, c.SeasonDays(), 0, c.ID)
		assert.NoError(t, checkPeriods(GenericPeriods(c)), c.ID)
	}
}

func TestCatalogGetCrop(t *testing.T) {
	repo, err := NewCatalogRepository()
	require.NoError(t, err)
	ctx := context.Background()

	palm, err := repo.GetCrop(ctx, "date_palm")
	require.NoError(t, err)
	assert.Equal(t, "Phoenix dactylifera", palm.ScientificName)
	assert.True(t, palm.Perennial)

	_, err = repo.GetCrop(ctx, "banana")
	assert.True(t, errors.Is(err, validation.ErrNotFound))
}

func TestCatalogSchedules(t *testing.T) {
	repo, err := NewCatalogRepository()
	require.NoError(t, err)
	ctx := context.Background()

	s, err := repo.GetKcSchedule(ctx, "tomato", ClimateGCCArid, MethodDrip)
	require.NoError(t, err)
	require.Len(t, s.Periods, 4)
	assert.Equal(t, 1.20, s.Periods[2].KcValue)

	_, err = repo.GetKcSchedule(ctx, "tomato", ClimateTemperate, MethodSurface)
	assert.True(t, errors.Is(err, validation.ErrNotFound))

	periods, err := repo.ListKcPeriods(ctx, "tomato", 2)
	require.NoError(t, err)
	assert.Len(t, periods, 2)
}

func TestGenericPeriods(t *testing.T) {
	repo, err := NewCatalogRepository()
	require.NoError(t, err)
	tomato, err := repo.GetCrop(context.Background(), "tomato")
	require.NoError(t, err)

	periods := GenericPeriods(*tomato)

	require.Len(t, periods, 4)
	assert.Equal(t, KcPeriod{Stage: StageInitial, PeriodStartDays: 0, PeriodEndDays: 30, KcValue: 0.60, KcMin: 0.60, KcMax: 0.60}, periods[0])
	assert.InDelta(t, 0.875, periods[1].KcValue, 1e-9)
	assert.Equal(t, 0.60, periods[1].KcMin)
	assert.Equal(t, 1.15, periods[1].KcMax)
	assert.Equal(t, 1.15, periods[2].KcValue)
	assert.InDelta(t, 0.975, periods[3].KcValue, 1e-9)
	assert.Equal(t, 0.80, periods[3].KcMin)
	assert.Equal(t, 135, periods[3].PeriodEndDays)
}

func TestParseCatalogRejectsBadData(t *testing.T) {
	_, err := ParseCatalog([]byte("crops: [{id: a}, {id: a}]"))
	assert.ErrorContains(t, err, "duplicate crop")

	_, err = ParseCatalog([]byte("schedules: [{crop_id: ghost}]"))
	assert.ErrorContains(t, err, "unknown crop")

	overlapping := `
crops: [{id: a}]
schedules:
  - crop_id: a
    periods:
      - {stage: initial, period_start_days: 0, period_end_days: 20}
      - {stage: mid_season, period_start_days: 10, period_end_days: 30}
`
	_, err = ParseCatalog([]byte(overlapping))
	assert.ErrorContains(t, err, "overlaps")
}
