package irrigation

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flahasoil/internal/validation"
)

// newTestDB opens an in-memory database; the queries are driver neutral through Rebind.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresKcRepositorySeedAndRead(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresKcRepository(newTestDB(t))
	catalog, err := NewCatalogRepository()
	require.NoError(t, err)

	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Seed(ctx, catalog))
	// seeding twice keeps existing rows
	require.NoError(t, repo.Seed(ctx, catalog))

	crops, err := repo.ListCrops(ctx)
	require.NoError(t, err)
	assert.Len(t, crops, 13)

	tomato, err := repo.GetCrop(ctx, "tomato")
	require.NoError(t, err)
	want, _ := catalog.GetCrop(ctx, "tomato")
	assert.Equal(t, want, tomato)

	s, err := repo.GetKcSchedule(ctx, "date_palm", ClimateGCCArid, MethodDrip)
	require.NoError(t, err)
	require.Len(t, s.Periods, 4)
	assert.Equal(t, 1.00, s.Periods[2].KcValue)

	wheat, _ := catalog.GetCrop(ctx, "wheat")
	periods, err := repo.ListKcPeriods(ctx, "wheat", FallbackPeriodCount)
	require.NoError(t, err)
	assert.Equal(t, GenericPeriods(*wheat), periods)
}

func TestPostgresKcRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewPostgresKcRepository(newTestDB(t))
	require.NoError(t, repo.Migrate(ctx))

	_, err := repo.GetCrop(ctx, "tomato")
	assert.True(t, errors.Is(err, validation.ErrNotFound))

	_, err = repo.GetKcSchedule(ctx, "tomato", ClimateGCCArid, MethodDrip)
	assert.True(t, errors.Is(err, validation.ErrNotFound))
}
