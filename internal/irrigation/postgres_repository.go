package irrigation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"flahasoil/internal/validation"
)

// genericZone marks Kc rows that are not specific to a climate or irrigation method.
const genericZone = "generic"

// PostgresKcRepository implements KcRepository on the crop reference tables
type PostgresKcRepository struct {
	db *sqlx.DB
}

// NewPostgresKcRepository creates a new crop reference repository
func NewPostgresKcRepository(db *sqlx.DB) *PostgresKcRepository {
	return &PostgresKcRepository{db: db}
}

const cropColumns = `id, name, scientific_name, category, perennial, plant_height_m,
	root_depth_min_m, root_depth_max_m, management_allowed_depletion,
	salinity_threshold_ec, yield_decline_per_ec, kc_ini, kc_mid, kc_end`

func (r *PostgresKcRepository) GetCrop(ctx context.Context, cropID string) (*Crop, error) {
	var crop Crop
	query := r.db.Rebind(`SELECT ` + cropColumns + ` FROM crops WHERE id = ?`)
	if err := r.db.GetContext(ctx, &crop, query, cropID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("crop %q: %w", cropID, validation.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get crop: %w", err)
	}

	stages, err := r.stages(ctx, cropID)
	if err != nil {
		return nil, err
	}
	crop.Stages = stages
	return &crop, nil
}

func (r *PostgresKcRepository) ListCrops(ctx context.Context) ([]Crop, error) {
	var crops []Crop
	if err := r.db.SelectContext(ctx, &crops, `SELECT `+cropColumns+` FROM crops ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list crops: %w", err)
	}
	for i := range crops {
		stages, err := r.stages(ctx, crops[i].ID)
		if err != nil {
			return nil, err
		}
		crops[i].Stages = stages
	}
	return crops, nil
}

func (r *PostgresKcRepository) stages(ctx context.Context, cropID string) ([]GrowthStage, error) {
	var stages []GrowthStage
	query := r.db.Rebind(`
		SELECT name, bbch_start, bbch_end, days
		FROM crop_growth_stages
		WHERE crop_id = ?
		ORDER BY stage_order
	`)
	if err := r.db.SelectContext(ctx, &stages, query, cropID); err != nil {
		return nil, fmt.Errorf("failed to list growth stages: %w", err)
	}
	return stages, nil
}

func (r *PostgresKcRepository) GetKcSchedule(ctx context.Context, cropID string, zone ClimateZone, method Method) (*KcSchedule, error) {
	var periods []KcPeriod
	query := r.db.Rebind(`
		SELECT stage, period_start_days, period_end_days, kc_value, kc_min, kc_max
		FROM crop_kc_periods
		WHERE crop_id = ? AND climate_zone = ? AND irrigation_method = ?
		ORDER BY period_start_days
	`)
	if err := r.db.SelectContext(ctx, &periods, query, cropID, string(zone), string(method)); err != nil {
		return nil, fmt.Errorf("failed to get kc schedule: %w", err)
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("kc schedule %s/%s/%s: %w", cropID, zone, method, validation.ErrNotFound)
	}
	return &KcSchedule{CropID: cropID, ClimateZone: zone, IrrigationMethod: method, Periods: periods}, nil
}

func (r *PostgresKcRepository) ListKcPeriods(ctx context.Context, cropID string, limit int) ([]KcPeriod, error) {
	var periods []KcPeriod
	query := r.db.Rebind(`
		SELECT stage, period_start_days, period_end_days, kc_value, kc_min, kc_max
		FROM crop_kc_periods
		WHERE crop_id = ? AND climate_zone = ?
		ORDER BY period_start_days
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &periods, query, cropID, genericZone, limit); err != nil {
		return nil, fmt.Errorf("failed to list kc periods: %w", err)
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("kc periods for %q: %w", cropID, validation.ErrNotFound)
	}
	return periods, nil
}

var kcSchema = []string{
	`CREATE TABLE IF NOT EXISTS crops (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		scientific_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		perennial BOOLEAN NOT NULL DEFAULT FALSE,
		plant_height_m DOUBLE PRECISION NOT NULL,
		root_depth_min_m DOUBLE PRECISION NOT NULL,
		root_depth_max_m DOUBLE PRECISION NOT NULL,
		management_allowed_depletion DOUBLE PRECISION NOT NULL,
		salinity_threshold_ec DOUBLE PRECISION NOT NULL,
		yield_decline_per_ec DOUBLE PRECISION NOT NULL,
		kc_ini DOUBLE PRECISION NOT NULL,
		kc_mid DOUBLE PRECISION NOT NULL,
		kc_end DOUBLE PRECISION NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS crop_growth_stages (
		crop_id TEXT NOT NULL REFERENCES crops(id),
		stage_order INTEGER NOT NULL,
		name TEXT NOT NULL,
		bbch_start INTEGER NOT NULL,
		bbch_end INTEGER NOT NULL,
		days INTEGER NOT NULL,
		PRIMARY KEY (crop_id, stage_order)
	)`,
	`CREATE TABLE IF NOT EXISTS crop_kc_periods (
		crop_id TEXT NOT NULL REFERENCES crops(id),
		climate_zone TEXT NOT NULL,
		irrigation_method TEXT NOT NULL,
		stage TEXT NOT NULL,
		period_start_days INTEGER NOT NULL,
		period_end_days INTEGER NOT NULL,
		kc_value DOUBLE PRECISION NOT NULL,
		kc_min DOUBLE PRECISION NOT NULL,
		kc_max DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (crop_id, climate_zone, irrigation_method, period_start_days)
	)`,
}

// Migrate creates the crop reference tables when they do not exist.
func (r *PostgresKcRepository) Migrate(ctx context.Context) error {
	for _, stmt := range kcSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate crop tables: %w", err)
		}
	}
	return nil
}

// Seed copies the embedded catalogue into the reference tables. Existing rows are kept.
func (r *PostgresKcRepository) Seed(ctx context.Context, catalog *CatalogRepository) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertCrop := tx.Rebind(`
		INSERT INTO crops (` + cropColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`)
	insertStage := tx.Rebind(`
		INSERT INTO crop_growth_stages (crop_id, stage_order, name, bbch_start, bbch_end, days)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (crop_id, stage_order) DO NOTHING
	`)
	insertPeriod := tx.Rebind(`
		INSERT INTO crop_kc_periods (
			crop_id, climate_zone, irrigation_method, stage,
			period_start_days, period_end_days, kc_value, kc_min, kc_max
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (crop_id, climate_zone, irrigation_method, period_start_days) DO NOTHING
	`)

	for _, c := range catalog.crops {
		if _, err := tx.ExecContext(ctx, insertCrop,
			c.ID, c.Name, c.ScientificName, c.Category, c.Perennial, c.PlantHeightM,
			c.RootDepthMinM, c.RootDepthMaxM, c.ManagementAllowedDepletion,
			c.SalinityThresholdEC, c.YieldDeclinePerEC, c.KcIni, c.KcMid, c.KcEnd,
		); err != nil {
			return fmt.Errorf("failed to seed crop %s: %w", c.ID, err)
		}
		for i, s := range c.Stages {
			if _, err := tx.ExecContext(ctx, insertStage, c.ID, i, s.Name, s.BBCHStart, s.BBCHEnd, s.Days); err != nil {
				return fmt.Errorf("failed to seed stage %s/%s: %w", c.ID, s.Name, err)
			}
		}
		for _, p := range GenericPeriods(c) {
			if _, err := tx.ExecContext(ctx, insertPeriod, c.ID, genericZone, genericZone, p.Stage,
				p.PeriodStartDays, p.PeriodEndDays, p.KcValue, p.KcMin, p.KcMax); err != nil {
				return fmt.Errorf("failed to seed kc period %s/%s: %w", c.ID, p.Stage, err)
			}
		}
	}

	for _, s := range catalog.schedules {
		for _, p := range s.Periods {
			if _, err := tx.ExecContext(ctx, insertPeriod, s.CropID, string(s.ClimateZone), string(s.IrrigationMethod),
				p.Stage, p.PeriodStartDays, p.PeriodEndDays, p.KcValue, p.KcMin, p.KcMax); err != nil {
				return fmt.Errorf("failed to seed kc schedule %s: %w", s.CropID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}
