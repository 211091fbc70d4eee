package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"flahasoil/internal/soil"
	"flahasoil/internal/validation"
)

// Repository defines the interface for analysis history access
type Repository interface {
	CreateAnalysis(ctx context.Context, record *SoilAnalysisRecord) error
	// GetAnalysis returns validation.ErrNotFound when no record has the ID.
	GetAnalysis(ctx context.Context, id uuid.UUID) (*SoilAnalysisRecord, error)
	ListAnalyses(ctx context.Context, limit int) ([]SoilAnalysisRecord, error)
	// ListLocations returns distinct geocoded sample locations, most recent first.
	ListLocations(ctx context.Context, limit int) ([]soil.Location, error)

	CreateIrrigation(ctx context.Context, record *IrrigationRecord) error
	ListIrrigation(ctx context.Context, analysisID uuid.UUID) ([]IrrigationRecord, error)
}

// GormRepository implements Repository with GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates or updates the history tables
func (r *GormRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&SoilAnalysisRecord{}, &IrrigationRecord{}); err != nil {
		return fmt.Errorf("failed to migrate analysis tables: %w", err)
	}
	return nil
}

// CreateAnalysis stores a new analysis, assigning an ID when it has none
func (r *GormRepository) CreateAnalysis(ctx context.Context, record *SoilAnalysisRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetAnalysis retrieves an analysis by ID
func (r *GormRepository) GetAnalysis(ctx context.Context, id uuid.UUID) (*SoilAnalysisRecord, error) {
	var record SoilAnalysisRecord
	err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("analysis %s: %w", id, validation.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &record, nil
}

// ListAnalyses returns the most recent analyses
func (r *GormRepository) ListAnalyses(ctx context.Context, limit int) ([]SoilAnalysisRecord, error) {
	var records []SoilAnalysisRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return records, nil
}

// ListLocations returns distinct geocoded sample locations
func (r *GormRepository) ListLocations(ctx context.Context, limit int) ([]soil.Location, error) {
	var rows []struct {
		Latitude  float64
		Longitude float64
	}
	err := r.db.WithContext(ctx).
		Model(&SoilAnalysisRecord{}).
		Select("latitude, longitude, MAX(created_at) AS last_seen").
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Group("latitude, longitude").
		Order("last_seen DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis locations: %w", err)
	}

	locations := make([]soil.Location, len(rows))
	for i, row := range rows {
		locations[i] = soil.Location{Latitude: row.Latitude, Longitude: row.Longitude}
	}
	return locations, nil
}

// CreateIrrigation stores a recommendation, assigning an ID when it has none
func (r *GormRepository) CreateIrrigation(ctx context.Context, record *IrrigationRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to create irrigation recommendation: %w", err)
	}
	return nil
}

// ListIrrigation returns the recommendations computed for an analysis, newest first
func (r *GormRepository) ListIrrigation(ctx context.Context, analysisID uuid.UUID) ([]IrrigationRecord, error) {
	var records []IrrigationRecord
	err := r.db.WithContext(ctx).
		Where("analysis_id = ?", analysisID).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list irrigation recommendations: %w", err)
	}
	return records, nil
}
