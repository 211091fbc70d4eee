package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flahasoil/internal/irrigation"
	"flahasoil/internal/soil"
	"flahasoil/internal/validation"
	"flahasoil/internal/weather"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateAnalysis(ctx context.Context, record *SoilAnalysisRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) GetAnalysis(ctx context.Context, id uuid.UUID) (*SoilAnalysisRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SoilAnalysisRecord), args.Error(1)
}

func (m *MockRepository) ListAnalyses(ctx context.Context, limit int) ([]SoilAnalysisRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SoilAnalysisRecord), args.Error(1)
}

func (m *MockRepository) ListLocations(ctx context.Context, limit int) ([]soil.Location, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]soil.Location), args.Error(1)
}

func (m *MockRepository) CreateIrrigation(ctx context.Context, record *IrrigationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRepository) ListIrrigation(ctx context.Context, analysisID uuid.UUID) ([]IrrigationRecord, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]IrrigationRecord), args.Error(1)
}

// MockWeatherService is a mock implementation of WeatherService
type MockWeatherService struct {
	mock.Mock
}

func (m *MockWeatherService) GetCurrentWeather(ctx context.Context, lat, lon float64, preferred string) (*weather.Observation, error) {
	args := m.Called(ctx, lat, lon, preferred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*weather.Observation), args.Error(1)
}

func (m *MockWeatherService) GetForecast(ctx context.Context, lat, lon float64, days int, preferred string) (*weather.Forecast, error) {
	args := m.Called(ctx, lat, lon, days, preferred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*weather.Forecast), args.Error(1)
}

func (m *MockWeatherService) GetET0(ctx context.Context, lat, lon float64, preferred string) (*weather.ET0Estimate, error) {
	args := m.Called(ctx, lat, lon, preferred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*weather.ET0Estimate), args.Error(1)
}

var testNow = time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)

func float64Ptr(v float64) *float64 { return &v }

func loamInput() SampleInput {
	return SampleInput{SandPct: float64Ptr(40), ClayPct: float64Ptr(20)}
}

func newTestService(t *testing.T, repo Repository, ws WeatherService) *Service {
	t.Helper()
	catalog, err := irrigation.NewCatalogRepository()
	require.NoError(t, err)
	calculator := irrigation.NewCalculator(irrigation.NewKcResolver(catalog), irrigation.CalculatorConfig{Region: "gcc"})
	svc := NewService(repo, catalog, calculator, ws, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func storedRecord(t *testing.T, sand, clay float64, location *soil.Location) *SoilAnalysisRecord {
	t.Helper()
	sample := soil.NewSample(sand, clay)
	id := uuid.New()
	record, err := toRecord(&SoilAnalysis{
		ID:              &id,
		SampledAt:       testNow,
		Location:        location,
		Sample:          sample,
		Characteristics: soil.Compute(sample),
	})
	require.NoError(t, err)
	return record
}

func TestAnalyzeWithoutStore(t *testing.T) {
	svc := newTestService(t, nil, nil)

	result, err := svc.Analyze(context.Background(), &AnalyzeRequest{SampleInput: loamInput()})
	require.NoError(t, err)

	assert.False(t, result.Stored)
	assert.Nil(t, result.ID)
	assert.Equal(t, testNow, result.SampledAt)
	assert.Equal(t, soil.DefaultOrganicMatter, result.Sample.OrganicMatterPct)
	assert.Equal(t, 40.0, result.SiltPct)
	assert.Equal(t, soil.Compute(result.Sample), result.Characteristics)
}

func TestAnalyzeStoresRecord(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)

	var saved *SoilAnalysisRecord
	repo.On("CreateAnalysis", mock.Anything, mock.AnythingOfType("*analysis.SoilAnalysisRecord")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*SoilAnalysisRecord)
			saved.ID = uuid.New()
		}).
		Return(nil)

	result, err := svc.Analyze(context.Background(), &AnalyzeRequest{
		SampleInput: loamInput(),
		Label:       "north block",
		Latitude:    float64Ptr(24.45),
		Longitude:   float64Ptr(54.38),
		Store:       true,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.True(t, result.Stored)
	assert.Equal(t, saved.ID, *result.ID)
	assert.Equal(t, "north block", saved.Label)
	assert.Equal(t, 24.45, *saved.Latitude)
	assert.Equal(t, result.Characteristics.TextureClass, saved.TextureClass)

	var stored soil.WaterCharacteristics
	require.NoError(t, json.Unmarshal(saved.Characteristics, &stored))
	assert.InDelta(t, result.Characteristics.FieldCapacityPct, stored.FieldCapacityPct, 1e-12)
	repo.AssertExpectations(t)
}

func TestAnalyzeValidation(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, &AnalyzeRequest{})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Len(t, validation.Fields(err), 2)

	_, err = svc.Analyze(ctx, &AnalyzeRequest{
		SampleInput: SampleInput{SandPct: float64Ptr(70), ClayPct: float64Ptr(40)},
	})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "TEXTURE_SUM", validation.Fields(err)[0].Code)

	_, err = svc.Analyze(ctx, &AnalyzeRequest{SampleInput: loamInput(), Latitude: float64Ptr(24)})
	require.ErrorIs(t, err, validation.ErrInvalidInput)

	_, err = svc.Analyze(ctx, &AnalyzeRequest{SampleInput: loamInput(), Store: true})
	assert.ErrorIs(t, err, ErrHistoryUnavailable)
}

func TestGetAnalysisNotFound(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)
	id := uuid.New()

	repo.On("GetAnalysis", mock.Anything, id).Return(nil, validation.ErrNotFound)

	_, err := svc.GetAnalysis(context.Background(), id)
	assert.ErrorIs(t, err, validation.ErrNotFound)
}

func TestListAnalysesClampsLimit(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)
	record := storedRecord(t, 40, 20, nil)

	repo.On("ListAnalyses", mock.Anything, MaxListLimit).Return([]SoilAnalysisRecord{*record}, nil).Once()
	repo.On("ListAnalyses", mock.Anything, DefaultListLimit).Return([]SoilAnalysisRecord{}, nil).Once()

	analyses, err := svc.ListAnalyses(context.Background(), 1000)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, record.ID, *analyses[0].ID)
	assert.True(t, analyses[0].Stored)

	analyses, err = svc.ListAnalyses(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, analyses)
	repo.AssertExpectations(t)
}

func TestCurveDefaultsAndSorting(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	result, err := svc.Curve(ctx, &CurveRequest{SampleInput: loamInput()})
	require.NoError(t, err)
	require.Len(t, result.Points, len(soil.DefaultTensionPoints))
	assert.Equal(t, 5000.0, result.Points[len(result.Points)-1].TensionKPa)

	result, err = svc.Curve(ctx, &CurveRequest{SampleInput: loamInput(), TensionPoints: []float64{1500, 33, 0}})
	require.NoError(t, err)
	require.Len(t, result.Points, 3)
	assert.Equal(t, []float64{0, 33, 1500}, []float64{
		result.Points[0].TensionKPa, result.Points[1].TensionKPa, result.Points[2].TensionKPa,
	})
	assert.InDelta(t, result.Characteristics.FieldCapacityPct, result.Points[1].MoistureContentPct, 1e-9)

	_, err = svc.Curve(ctx, &CurveRequest{SampleInput: loamInput(), TensionPoints: []float64{-1}})
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestProfileDepth(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	profile, err := svc.Profile(ctx, &ProfileRequest{SampleInput: loamInput()})
	require.NoError(t, err)
	assert.Equal(t, soil.DefaultProfileDepth, profile.MaxDepth)

	_, err = svc.Profile(ctx, &ProfileRequest{SampleInput: loamInput(), MaxDepth: float64Ptr(301)})
	assert.ErrorIs(t, err, validation.ErrInvalidInput)
}

func TestCompareInline(t *testing.T) {
	svc := newTestService(t, nil, nil)

	result, err := svc.Compare(context.Background(), &CompareRequest{
		Analyses: []InlineAnalysis{
			{SampleInput: loamInput()},
			{SampleInput: SampleInput{SandPct: float64Ptr(85), ClayPct: float64Ptr(5)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, soil.ComparisonGeneral, result.Type)
	assert.Equal(t, 2, result.Count)
}

func TestCompareInlineValidationIsIndexed(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, err := svc.Compare(context.Background(), &CompareRequest{
		Analyses: []InlineAnalysis{
			{SampleInput: loamInput()},
			{SampleInput: SampleInput{SandPct: float64Ptr(120), ClayPct: float64Ptr(5)}},
		},
	})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "analyses[1].sand_pct", validation.Fields(err)[0].Field)
}

func TestCompareByIDs(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)
	a := storedRecord(t, 40, 20, &soil.Location{Latitude: 24.40, Longitude: 54.30})
	b := storedRecord(t, 60, 10, &soil.Location{Latitude: 24.50, Longitude: 54.40})

	repo.On("GetAnalysis", mock.Anything, a.ID).Return(a, nil)
	repo.On("GetAnalysis", mock.Anything, b.ID).Return(b, nil)

	result, err := svc.Compare(context.Background(), &CompareRequest{
		Type:        soil.ComparisonSpatial,
		AnalysisIDs: []uuid.UUID{a.ID, b.ID},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Spatial)
	assert.Equal(t, 2, result.Spatial.GeocodedCount)
	repo.AssertExpectations(t)
}

func TestCompareRejectsMixedSources(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, err := svc.Compare(context.Background(), &CompareRequest{
		AnalysisIDs: []uuid.UUID{uuid.New()},
		Analyses:    []InlineAnalysis{{SampleInput: loamInput()}},
	})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "CONFLICT", validation.Fields(err)[0].Code)
}

func TestRecommendIrrigationWithWeatherET0(t *testing.T) {
	repo := new(MockRepository)
	ws := new(MockWeatherService)
	svc := newTestService(t, repo, ws)
	stored := storedRecord(t, 40, 20, &soil.Location{Latitude: 24.45, Longitude: 54.38})

	repo.On("GetAnalysis", mock.Anything, stored.ID).Return(stored, nil)
	ws.On("GetET0", mock.Anything, 24.45, 54.38, "").Return(&weather.ET0Estimate{
		ET0:      7.5,
		Method:   weather.ET0MethodProvider,
		Provider: weather.ProviderET0Service,
		Status:   weather.StatusExact,
	}, nil)

	var saved *IrrigationRecord
	repo.On("CreateIrrigation", mock.Anything, mock.AnythingOfType("*analysis.IrrigationRecord")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*IrrigationRecord) }).
		Return(nil)

	resp, err := svc.RecommendIrrigation(context.Background(), &IrrigationRequest{
		AnalysisID:       &stored.ID,
		CropID:           "tomato",
		IrrigationMethod: irrigation.MethodDrip,
		GrowthStage:      irrigation.StageMid,
		FieldAreaHa:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, irrigation.ClimateGCCArid, resp.ClimateZone)
	assert.Equal(t, weather.StatusExact, resp.ET0Source.Status)
	assert.Equal(t, weather.ProviderET0Service, resp.ET0Source.Provider)
	assert.Equal(t, irrigation.StatusExact, resp.Recommendation.KcStatus)
	assert.Equal(t, 1.20, resp.Recommendation.Kc)
	assert.InDelta(t, 9.0, resp.Recommendation.ETc, 1e-9)

	require.NotNil(t, saved)
	assert.Equal(t, resp.ID, saved.ID)
	assert.Equal(t, stored.ID, *saved.AnalysisID)
	assert.Equal(t, 7.5, saved.ET0)
	assert.Equal(t, "exact", saved.ET0Status)
	repo.AssertExpectations(t)
	ws.AssertExpectations(t)
}

func TestRecommendIrrigationInlineSampleNeedsET0WithoutLocation(t *testing.T) {
	svc := newTestService(t, nil, new(MockWeatherService))
	input := loamInput()

	_, err := svc.RecommendIrrigation(context.Background(), &IrrigationRequest{
		Sample:      &input,
		CropID:      "tomato",
		GrowthStage: irrigation.StageMid,
		FieldAreaHa: 1,
	})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "et0_mm_day", validation.Fields(err)[0].Field)

	resp, err := svc.RecommendIrrigation(context.Background(), &IrrigationRequest{
		Sample:      &input,
		CropID:      "tomato",
		GrowthStage: irrigation.StageMid,
		FieldAreaHa: 1,
		ET0:         float64Ptr(6),
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultClimateZone, resp.ClimateZone)
	assert.Equal(t, ET0SourceRequest, resp.ET0Source.Provider)
	assert.NotEqual(t, uuid.Nil, resp.ID)
}

func TestRecommendIrrigationErrors(t *testing.T) {
	svc := newTestService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.RecommendIrrigation(ctx, &IrrigationRequest{CropID: "tomato", FieldAreaHa: 1})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "analysis_id", validation.Fields(err)[0].Field)

	bad := SampleInput{SandPct: float64Ptr(40)}
	_, err = svc.RecommendIrrigation(ctx, &IrrigationRequest{Sample: &bad, CropID: "tomato", FieldAreaHa: 1})
	require.ErrorIs(t, err, validation.ErrInvalidInput)
	assert.Equal(t, "sample.clay_pct", validation.Fields(err)[0].Field)

	input := loamInput()
	_, err = svc.RecommendIrrigation(ctx, &IrrigationRequest{
		Sample:      &input,
		CropID:      "kale",
		GrowthStage: irrigation.StageMid,
		FieldAreaHa: 1,
		ET0:         float64Ptr(6),
	})
	assert.ErrorIs(t, err, validation.ErrNotFound)
}

func TestRecommendIrrigationStoreFailure(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)
	input := loamInput()

	repo.On("CreateIrrigation", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	_, err := svc.RecommendIrrigation(context.Background(), &IrrigationRequest{
		Sample:      &input,
		CropID:      "tomato",
		GrowthStage: irrigation.StageMid,
		FieldAreaHa: 1,
		ET0:         float64Ptr(6),
	})
	assert.EqualError(t, err, "connection reset")
}

func TestIrrigationHistory(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)
	stored := storedRecord(t, 40, 20, nil)

	repo.On("GetAnalysis", mock.Anything, stored.ID).Return(stored, nil)
	repo.On("ListIrrigation", mock.Anything, stored.ID).Return([]IrrigationRecord{{CropID: "tomato"}}, nil)

	records, err := svc.IrrigationHistory(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "tomato", records[0].CropID)
}

func TestExportDocument(t *testing.T) {
	repo := new(MockRepository)
	svc := newTestService(t, repo, nil)
	stored := storedRecord(t, 40, 20, &soil.Location{Latitude: 24.45, Longitude: 54.38})

	repo.On("GetAnalysis", mock.Anything, stored.ID).Return(stored, nil)

	doc, err := svc.ExportDocument(context.Background(), stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID.String(), doc.AnalysisID)
	assert.Len(t, doc.Curve, len(soil.DefaultTensionPoints))
	require.NotNil(t, doc.Profile)
	assert.Equal(t, soil.DefaultProfileDepth, doc.Profile.MaxDepth)
	assert.Equal(t, 24.45, doc.Location.Latitude)
}
