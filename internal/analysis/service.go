// Package analysis orchestrates the soil, irrigation, salt and weather calculators behind
// one service, persists analysis and recommendation history and serves the REST API.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flahasoil/internal/analysis/export"
	"flahasoil/internal/irrigation"
	"flahasoil/internal/salt"
	"flahasoil/internal/soil"
	"flahasoil/internal/validation"
	"flahasoil/internal/weather"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	// DefaultClimateZone is used for Kc resolution when neither the request nor a
	// location determines the zone.
	DefaultClimateZone = irrigation.ClimateGCCArid

	// ET0SourceRequest names caller-supplied ET0 in ET0Source.Provider.
	ET0SourceRequest = "request"
)

// ErrHistoryUnavailable is returned by history operations when no store is configured.
var ErrHistoryUnavailable = errors.New("analysis history is not configured")

// WeatherService is the subset of the weather normalizer the service uses
type WeatherService interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64, preferred string) (*weather.Observation, error)
	GetForecast(ctx context.Context, lat, lon float64, days int, preferred string) (*weather.Forecast, error)
	GetET0(ctx context.Context, lat, lon float64, preferred string) (*weather.ET0Estimate, error)
}

// Service provides soil analysis business logic
type Service struct {
	repo       Repository
	crops      irrigation.KcRepository
	calculator *irrigation.Calculator
	weather    WeatherService
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new analysis service. repo may be nil, in which case history
// operations fail with ErrHistoryUnavailable and recommendations are not persisted.
func NewService(repo Repository, crops irrigation.KcRepository, calculator *irrigation.Calculator, weatherService WeatherService, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		crops:      crops,
		calculator: calculator,
		weather:    weatherService,
		logger:     logger,
		now:        time.Now,
	}
}

// Analyze computes the water characteristics of a sample and stores the analysis when requested
func (s *Service) Analyze(ctx context.Context, req *AnalyzeRequest) (*SoilAnalysis, error) {
	sample, err := req.SampleInput.Sample()
	if err != nil {
		return nil, err
	}
	location, err := parseLocation(req.Latitude, req.Longitude)
	if err != nil {
		return nil, err
	}

	a := &SoilAnalysis{
		Label:           req.Label,
		SampledAt:       s.now().UTC(),
		Location:        location,
		Sample:          sample,
		SiltPct:         sample.SiltPct(),
		Characteristics: soil.Compute(sample),
	}
	if req.SampledAt != nil {
		a.SampledAt = req.SampledAt.UTC()
	}

	if !req.Store {
		return a, nil
	}
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}

	record, err := toRecord(a)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateAnalysis(ctx, record); err != nil {
		return nil, err
	}
	a.ID = &record.ID
	a.Stored = true

	s.logger.Info("Stored soil analysis",
		zap.String("analysis_id", record.ID.String()),
		zap.String("texture_class", record.TextureClass))
	return a, nil
}

// GetAnalysis retrieves a stored analysis
func (s *Service) GetAnalysis(ctx context.Context, id uuid.UUID) (*SoilAnalysis, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	record, err := s.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	return record.ToAnalysis()
}

// ListAnalyses returns the most recent stored analyses. The limit is clamped to [1, MaxListLimit].
func (s *Service) ListAnalyses(ctx context.Context, limit int) ([]*SoilAnalysis, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	records, err := s.repo.ListAnalyses(ctx, limit)
	if err != nil {
		return nil, err
	}
	analyses := make([]*SoilAnalysis, 0, len(records))
	for i := range records {
		a, err := records[i].ToAnalysis()
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, nil
}

// ListLocations returns distinct geocoded analysis locations
func (s *Service) ListLocations(ctx context.Context, limit int) ([]soil.Location, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	return s.repo.ListLocations(ctx, limit)
}

// Curve generates a moisture-tension curve. Without tension points the default grid is used.
func (s *Service) Curve(ctx context.Context, req *CurveRequest) (*CurveResponse, error) {
	sample, err := req.SampleInput.Sample()
	if err != nil {
		return nil, err
	}
	points, err := soil.NormalizeTensionPoints(req.TensionPoints)
	if err != nil {
		return nil, err
	}

	return &CurveResponse{
		Sample:          sample,
		Characteristics: soil.Compute(sample),
		Points:          soil.GenerateCurve(sample, points),
	}, nil
}

// Profile builds a layered soil profile, 100 cm deep unless requested otherwise
func (s *Service) Profile(ctx context.Context, req *ProfileRequest) (*soil.SoilProfile, error) {
	sample, err := req.SampleInput.Sample()
	if err != nil {
		return nil, err
	}
	depth := soil.DefaultProfileDepth
	if req.MaxDepth != nil {
		depth = *req.MaxDepth
	}
	return soil.BuildProfile(sample, depth)
}

// Compare summarizes stored analyses by ID or analyses supplied inline, but not both
func (s *Service) Compare(ctx context.Context, req *CompareRequest) (*soil.ComparisonResult, error) {
	kind := req.Type
	if kind == "" {
		kind = soil.ComparisonGeneral
	}

	var v validation.Collector
	switch {
	case len(req.AnalysisIDs) > 0 && len(req.Analyses) > 0:
		v.Add("analysis_ids", "CONFLICT", "give either analysis_ids or analyses, not both")
	case len(req.AnalysisIDs) > soil.MaxComparisonRecords:
		v.Add("analysis_ids", "OUT_OF_RANGE", "between %d and %d analyses are required, got %d",
			soil.MinComparisonRecords, soil.MaxComparisonRecords, len(req.AnalysisIDs))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	var records []soil.AnalysisRecord
	if len(req.AnalysisIDs) > 0 {
		for _, id := range req.AnalysisIDs {
			a, err := s.GetAnalysis(ctx, id)
			if err != nil {
				return nil, err
			}
			records = append(records, a.Record())
		}
	} else {
		for i, in := range req.Analyses {
			a, err := s.inlineAnalysis(in)
			if err != nil {
				return nil, prefixFields(err, fmt.Sprintf("analyses[%d].", i))
			}
			records = append(records, a.Record())
		}
	}

	return soil.Compare(records, kind)
}

func (s *Service) inlineAnalysis(in InlineAnalysis) (*SoilAnalysis, error) {
	sample, err := in.SampleInput.Sample()
	if err != nil {
		return nil, err
	}
	location, err := parseLocation(in.Latitude, in.Longitude)
	if err != nil {
		return nil, err
	}
	return &SoilAnalysis{
		Label:           in.Label,
		SampledAt:       in.SampledAt,
		Location:        location,
		Sample:          sample,
		SiltPct:         sample.SiltPct(),
		Characteristics: soil.Compute(sample),
	}, nil
}

// ListCrops returns the crop catalogue
func (s *Service) ListCrops(ctx context.Context) ([]irrigation.Crop, error) {
	return s.crops.ListCrops(ctx)
}

// RecommendIrrigation resolves the soil, climate zone, Kc and ET0 for a field, computes
// the recommendation and records it in the history store.
func (s *Service) RecommendIrrigation(ctx context.Context, req *IrrigationRequest) (*IrrigationResponse, error) {
	var characteristics soil.WaterCharacteristics
	var location *soil.Location

	switch {
	case req.AnalysisID != nil:
		a, err := s.GetAnalysis(ctx, *req.AnalysisID)
		if err != nil {
			return nil, err
		}
		characteristics = a.Characteristics
		location = a.Location
	case req.Sample != nil:
		sample, err := req.Sample.Sample()
		if err != nil {
			return nil, prefixFields(err, "sample.")
		}
		characteristics = soil.Compute(sample)
	default:
		var v validation.Collector
		v.Add("analysis_id", "REQUIRED", "analysis_id or sample is required")
		return nil, v.Err()
	}

	if req.Latitude != nil || req.Longitude != nil {
		loc, err := parseLocation(req.Latitude, req.Longitude)
		if err != nil {
			return nil, err
		}
		location = loc
	}

	zone := req.ClimateZone
	if zone == "" {
		zone = DefaultClimateZone
		if location != nil {
			zone = weather.ClimateZoneFor(location.Latitude, location.Longitude)
		}
	}

	et0, source, err := s.resolveET0(ctx, req, location)
	if err != nil {
		return nil, err
	}

	rec, err := s.calculator.Calculate(ctx, irrigation.Request{
		Soil:              characteristics,
		CropID:            req.CropID,
		ClimateZone:       zone,
		IrrigationMethod:  req.IrrigationMethod,
		GrowthStage:       req.GrowthStage,
		BBCHCode:          req.BBCHCode,
		DaysAfterPlanting: req.DaysAfterPlanting,
		FieldAreaHa:       req.FieldAreaHa,
		SlopePct:          req.SlopePct,
		ET0:               et0,
		WindSpeed:         req.WindSpeed,
		RHMin:             req.RHMin,
		RootDepthCM:       req.RootDepthCM,
		MAD:               req.MAD,
		Region:            req.Region,
	})
	if err != nil {
		return nil, err
	}

	resp := &IrrigationResponse{
		ID:             uuid.New(),
		AnalysisID:     req.AnalysisID,
		ClimateZone:    zone,
		ET0Source:      source,
		Recommendation: rec,
	}
	if s.repo == nil {
		return resp, nil
	}

	result, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recommendation: %w", err)
	}
	record := &IrrigationRecord{
		ID:          resp.ID,
		AnalysisID:  req.AnalysisID,
		CropID:      rec.CropID,
		GrowthStage: rec.GrowthStage,
		KcStatus:    string(rec.KcStatus),
		ET0:         et0,
		ET0Status:   string(source.Status),
		Result:      result,
	}
	if err := s.repo.CreateIrrigation(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("Stored irrigation recommendation",
		zap.String("recommendation_id", record.ID.String()),
		zap.String("crop_id", rec.CropID),
		zap.String("kc_status", record.KcStatus),
		zap.String("et0_status", record.ET0Status))
	return resp, nil
}

// resolveET0 prefers the caller's ET0 and otherwise asks the weather service at the location.
func (s *Service) resolveET0(ctx context.Context, req *IrrigationRequest, location *soil.Location) (float64, ET0Source, error) {
	if req.ET0 != nil {
		return *req.ET0, ET0Source{Status: weather.StatusExact, Provider: ET0SourceRequest}, nil
	}
	if location == nil || s.weather == nil {
		var v validation.Collector
		v.Add("et0_mm_day", "REQUIRED", "et0_mm_day is required when the field has no location")
		return 0, ET0Source{}, v.Err()
	}

	est, err := s.weather.GetET0(ctx, location.Latitude, location.Longitude, req.Provider)
	if err != nil {
		return 0, ET0Source{}, err
	}
	return est.ET0, ET0Source{
		Status:   est.Status,
		Provider: est.Provider,
		Method:   est.Method,
		Note:     est.Note,
	}, nil
}

// IrrigationHistory returns the recommendations stored for an analysis
func (s *Service) IrrigationHistory(ctx context.Context, analysisID uuid.UUID) ([]IrrigationRecord, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}
	if _, err := s.repo.GetAnalysis(ctx, analysisID); err != nil {
		return nil, err
	}
	return s.repo.ListIrrigation(ctx, analysisID)
}

// ExportDocument assembles a stored analysis with its default curve and profile
func (s *Service) ExportDocument(ctx context.Context, id uuid.UUID) (*export.Document, error) {
	a, err := s.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	profile, err := soil.BuildProfile(a.Sample, soil.DefaultProfileDepth)
	if err != nil {
		return nil, err
	}
	return &export.Document{
		AnalysisID:      id.String(),
		Label:           a.Label,
		SampledAt:       a.SampledAt,
		Location:        a.Location,
		Sample:          a.Sample,
		Characteristics: a.Characteristics,
		Curve:           soil.GenerateCurve(a.Sample, soil.DefaultTensionPoints),
		Profile:         profile,
	}, nil
}

// Leaching calculates a leaching requirement
func (s *Service) Leaching(ctx context.Context, req *LeachingRequest) (*salt.LeachingResult, error) {
	return salt.CalculateLeachingRequirement(*req)
}

// Drainage assesses drainage requirements
func (s *Service) Drainage(ctx context.Context, req *DrainageRequest) (*salt.DrainageAssessment, error) {
	return salt.AssessDrainageRequirements(*req)
}

// SaltBalance calculates a seasonal salt balance
func (s *Service) SaltBalance(ctx context.Context, req *BalanceRequest) (*salt.SaltBalance, error) {
	return salt.CalculateSaltBalance(*req)
}

// CurrentWeather returns normalized current conditions
func (s *Service) CurrentWeather(ctx context.Context, lat, lon float64, provider string) (*weather.Observation, error) {
	return s.weather.GetCurrentWeather(ctx, lat, lon, provider)
}

// Forecast returns a normalized daily forecast
func (s *Service) Forecast(ctx context.Context, lat, lon float64, days int, provider string) (*weather.Forecast, error) {
	return s.weather.GetForecast(ctx, lat, lon, days, provider)
}

// ET0 returns the reference evapotranspiration at a location
func (s *Service) ET0(ctx context.Context, lat, lon float64, provider string) (*weather.ET0Estimate, error) {
	return s.weather.GetET0(ctx, lat, lon, provider)
}

// Sample validates the input and fills the organic matter and density defaults.
func (in SampleInput) Sample() (soil.SoilSample, error) {
	var v validation.Collector
	if in.SandPct == nil {
		v.Add("sand_pct", "REQUIRED", "is required")
	}
	if in.ClayPct == nil {
		v.Add("clay_pct", "REQUIRED", "is required")
	}
	if err := v.Err(); err != nil {
		return soil.SoilSample{}, err
	}

	sample := soil.NewSample(*in.SandPct, *in.ClayPct)
	if in.OrganicMatterPct != nil {
		sample.OrganicMatterPct = *in.OrganicMatterPct
	}
	if in.BulkDensityFactor != nil {
		sample.BulkDensityFactor = *in.BulkDensityFactor
	}
	if err := sample.Validate(); err != nil {
		return soil.SoilSample{}, err
	}
	return sample, nil
}

// parseLocation accepts both coordinates or neither.
func parseLocation(lat, lon *float64) (*soil.Location, error) {
	if lat == nil && lon == nil {
		return nil, nil
	}
	var v validation.Collector
	if lat == nil || lon == nil {
		v.Add("latitude", "REQUIRED", "latitude and longitude must be given together")
		return nil, v.Err()
	}
	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		v.Add("latitude", "NOT_FINITE", "coordinates must be finite numbers")
		return nil, v.Err()
	}
	v.Range("latitude", *lat, -90, 90)
	v.Range("longitude", *lon, -180, 180)
	if err := v.Err(); err != nil {
		return nil, err
	}
	return &soil.Location{Latitude: *lat, Longitude: *lon}, nil
}

// prefixFields qualifies the field names of a validation error.
func prefixFields(err error, prefix string) error {
	fields := validation.Fields(err)
	if fields == nil {
		return err
	}
	out := make(validation.Errors, len(fields))
	for i, f := range fields {
		f.Field = prefix + f.Field
		out[i] = f
	}
	return out
}
