package analysis

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"flahasoil/internal/irrigation"
	"flahasoil/internal/salt"
	"flahasoil/internal/soil"
	"flahasoil/internal/weather"
)

// SoilAnalysisRecord is a stored soil analysis
type SoilAnalysisRecord struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Label             string    `json:"label"`
	SandPct           float64   `json:"sand_pct" gorm:"not null"`
	ClayPct           float64   `json:"clay_pct" gorm:"not null"`
	OrganicMatterPct  float64   `json:"organic_matter_pct" gorm:"not null"`
	BulkDensityFactor float64   `json:"bulk_density_factor" gorm:"not null"`
	TextureClass      string    `json:"texture_class" gorm:"index"`

	// Derived water characteristics as computed at analysis time
	Characteristics datatypes.JSON `json:"characteristics" gorm:"not null"`

	Latitude  *float64  `json:"latitude" gorm:"index:idx_soil_analyses_location"`
	Longitude *float64  `json:"longitude" gorm:"index:idx_soil_analyses_location"`
	SampledAt time.Time `json:"sampled_at" gorm:"index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for SoilAnalysisRecord
func (SoilAnalysisRecord) TableName() string {
	return "soil_analyses"
}

// IrrigationRecord is a stored irrigation recommendation
type IrrigationRecord struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	AnalysisID  *uuid.UUID     `json:"analysis_id" gorm:"type:uuid;index"`
	CropID      string         `json:"crop_id" gorm:"not null;index"`
	GrowthStage string         `json:"growth_stage"`
	KcStatus    string         `json:"kc_status"`
	ET0         float64        `json:"et0_mm_day"`
	ET0Status   string         `json:"et0_status"`
	Result      datatypes.JSON `json:"result" gorm:"not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for IrrigationRecord
func (IrrigationRecord) TableName() string {
	return "irrigation_recommendations"
}

// SoilAnalysis is the API view of an analysis
type SoilAnalysis struct {
	ID              *uuid.UUID                `json:"id,omitempty"`
	Label           string                    `json:"label,omitempty"`
	SampledAt       time.Time                 `json:"sampled_at"`
	Location        *soil.Location            `json:"location,omitempty"`
	Sample          soil.SoilSample           `json:"sample"`
	SiltPct         float64                   `json:"silt_pct"`
	Characteristics soil.WaterCharacteristics `json:"characteristics"`
	Stored          bool                      `json:"stored"`
}

// Record converts the analysis to the comparison engine's input.
func (a *SoilAnalysis) Record() soil.AnalysisRecord {
	var id string
	if a.ID != nil {
		id = a.ID.String()
	}
	return soil.AnalysisRecord{
		ID:              id,
		Label:           a.Label,
		SampledAt:       a.SampledAt,
		Location:        a.Location,
		Sample:          a.Sample,
		Characteristics: a.Characteristics,
	}
}

// toRecord converts an analysis to its stored form
func toRecord(a *SoilAnalysis) (*SoilAnalysisRecord, error) {
	characteristics, err := json.Marshal(a.Characteristics)
	if err != nil {
		return nil, fmt.Errorf("failed to encode characteristics: %w", err)
	}
	r := &SoilAnalysisRecord{
		Label:             a.Label,
		SandPct:           a.Sample.SandPct,
		ClayPct:           a.Sample.ClayPct,
		OrganicMatterPct:  a.Sample.OrganicMatterPct,
		BulkDensityFactor: a.Sample.BulkDensityFactor,
		TextureClass:      a.Characteristics.TextureClass,
		Characteristics:   datatypes.JSON(characteristics),
		SampledAt:         a.SampledAt,
	}
	if a.ID != nil {
		r.ID = *a.ID
	}
	if a.Location != nil {
		lat, lon := a.Location.Latitude, a.Location.Longitude
		r.Latitude = &lat
		r.Longitude = &lon
	}
	return r, nil
}

// ToAnalysis converts a stored record to its API view
func (r *SoilAnalysisRecord) ToAnalysis() (*SoilAnalysis, error) {
	id := r.ID
	a := &SoilAnalysis{
		ID:        &id,
		Label:     r.Label,
		SampledAt: r.SampledAt,
		Sample: soil.SoilSample{
			SandPct:           r.SandPct,
			ClayPct:           r.ClayPct,
			OrganicMatterPct:  r.OrganicMatterPct,
			BulkDensityFactor: r.BulkDensityFactor,
		},
		Stored: true,
	}
	a.SiltPct = a.Sample.SiltPct()
	if err := json.Unmarshal(r.Characteristics, &a.Characteristics); err != nil {
		return nil, fmt.Errorf("failed to decode characteristics of %s: %w", r.ID, err)
	}
	if r.Latitude != nil && r.Longitude != nil {
		a.Location = &soil.Location{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return a, nil
}

// SampleInput is the texture part of a request. Omitted organic matter and
// density factor take the soil package defaults.
type SampleInput struct {
	SandPct           *float64 `json:"sand_pct" binding:"required"`
	ClayPct           *float64 `json:"clay_pct" binding:"required"`
	OrganicMatterPct  *float64 `json:"organic_matter_pct"`
	BulkDensityFactor *float64 `json:"bulk_density_factor"`
}

// AnalyzeRequest represents a request to analyze a soil sample
type AnalyzeRequest struct {
	SampleInput
	Label     string     `json:"label"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	SampledAt *time.Time `json:"sampled_at"`
	Store     bool       `json:"store"`
}

// CurveRequest represents a request for a moisture-tension curve
type CurveRequest struct {
	SampleInput
	TensionPoints []float64 `json:"tension_points"`
}

// CurveResponse is a generated moisture-tension curve
type CurveResponse struct {
	Sample          soil.SoilSample             `json:"sample"`
	Characteristics soil.WaterCharacteristics   `json:"characteristics"`
	Points          []soil.MoistureTensionPoint `json:"points"`
}

// ProfileRequest represents a request for a layered soil profile
type ProfileRequest struct {
	SampleInput
	MaxDepth *float64 `json:"max_depth_cm"`
}

// CompareRequest represents a comparison of stored or inline analyses
type CompareRequest struct {
	Type        soil.ComparisonType `json:"type"`
	AnalysisIDs []uuid.UUID         `json:"analysis_ids"`
	Analyses    []InlineAnalysis    `json:"analyses"`
}

// InlineAnalysis is an unstored analysis supplied for comparison
type InlineAnalysis struct {
	SampleInput
	Label     string    `json:"label"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	SampledAt time.Time `json:"sampled_at"`
}

// IrrigationRequest represents a request for an irrigation recommendation. The soil
// comes from a stored analysis or an inline sample; ET0 comes from the request or,
// when omitted, from the weather service at the field location.
type IrrigationRequest struct {
	AnalysisID        *uuid.UUID             `json:"analysis_id"`
	Sample            *SampleInput           `json:"sample"`
	CropID            string                 `json:"crop_id" binding:"required"`
	ClimateZone       irrigation.ClimateZone `json:"climate_zone"`
	IrrigationMethod  irrigation.Method      `json:"irrigation_method"`
	GrowthStage       string                 `json:"growth_stage"`
	BBCHCode          *int                   `json:"bbch_code"`
	DaysAfterPlanting *int                   `json:"days_after_planting"`
	FieldAreaHa       float64                `json:"field_area_ha" binding:"required"`
	SlopePct          float64                `json:"slope_pct"`
	ET0               *float64               `json:"et0_mm_day"`
	WindSpeed         *float64               `json:"wind_speed_ms"`
	RHMin             *float64               `json:"rh_min_pct"`
	RootDepthCM       *float64               `json:"root_depth_cm"`
	MAD               *float64               `json:"management_allowed_depletion"`
	Region            string                 `json:"region"`
	Latitude          *float64               `json:"latitude"`
	Longitude         *float64               `json:"longitude"`
	Provider          string                 `json:"provider"`
}

// ET0Source describes where the ET0 of a recommendation came from
type ET0Source struct {
	Status   weather.Status    `json:"status"`
	Provider string            `json:"provider,omitempty"`
	Method   weather.ET0Method `json:"method,omitempty"`
	Note     string            `json:"note,omitempty"`
}

// IrrigationResponse is a stored irrigation recommendation
type IrrigationResponse struct {
	ID             uuid.UUID                  `json:"id"`
	AnalysisID     *uuid.UUID                 `json:"analysis_id,omitempty"`
	ClimateZone    irrigation.ClimateZone     `json:"climate_zone"`
	ET0Source      ET0Source                  `json:"et0_source"`
	Recommendation *irrigation.Recommendation `json:"recommendation"`
}

// LeachingRequest represents a leaching requirement calculation
type LeachingRequest = salt.LeachingInput

// DrainageRequest represents a drainage assessment
type DrainageRequest = salt.DrainageInput

// BalanceRequest represents a salt balance calculation
type BalanceRequest = salt.BalanceInput
