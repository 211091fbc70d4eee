package soil

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/paulmach/orb"

	"flahasoil/internal/validation"
	"flahasoil/pkg/geospatial"
)

// ComparisonType selects the extra descriptors produced by Compare
type ComparisonType string

const (
	ComparisonTemporal ComparisonType = "temporal"
	ComparisonSpatial  ComparisonType = "spatial"
	ComparisonGeneral  ComparisonType = "general"
)

const (
	// MinComparisonRecords and MaxComparisonRecords bound the records accepted by Compare.
	MinComparisonRecords = 2
	MaxComparisonRecords = 10

	significantChangePct = 5.0
	highVariabilityCV    = 0.20
	lowRetentionPAW      = 15.0
	slowDrainageKs       = 2.0
	wideAreaKm           = 1.0
)

// Parameter names used in statistics, trends and recommendations.
const (
	ParamFieldCapacity         = "field_capacity"
	ParamWiltingPoint          = "wilting_point"
	ParamPlantAvailableWater   = "plant_available_water"
	ParamSaturation            = "saturation"
	ParamSaturatedConductivity = "saturated_conductivity"
)

var comparisonParameters = []struct {
	name  string
	unit  string
	value func(WaterCharacteristics) float64
}{
	{ParamFieldCapacity, "%", func(w WaterCharacteristics) float64 { return w.FieldCapacityPct }},
	{ParamWiltingPoint, "%", func(w WaterCharacteristics) float64 { return w.WiltingPointPct }},
	{ParamPlantAvailableWater, "%", func(w WaterCharacteristics) float64 { return w.PlantAvailableWaterPct }},
	{ParamSaturation, "%", func(w WaterCharacteristics) float64 { return w.SaturationPct }},
	{ParamSaturatedConductivity, "mm/hr", func(w WaterCharacteristics) float64 { return w.SaturatedConductivity }},
}

// ParameterStats summarizes one parameter across the compared records.
// CoefficientOfVariation is the ratio of population standard deviation to mean.
type ParameterStats struct {
	Parameter              string  `json:"parameter"`
	Unit                   string  `json:"unit"`
	Min                    float64 `json:"min"`
	Max                    float64 `json:"max"`
	Mean                   float64 `json:"mean"`
	StdDev                 float64 `json:"std_dev"`
	CoefficientOfVariation float64 `json:"coefficient_of_variation"`
}

// ParameterTrend is the first-versus-last change of one parameter
type ParameterTrend struct {
	Parameter     string  `json:"parameter"`
	First         float64 `json:"first"`
	Last          float64 `json:"last"`
	Delta         float64 `json:"delta"`
	PercentChange float64 `json:"percent_change"`
	Direction     string  `json:"direction"`
	Significant   bool    `json:"significant"`
}

// TemporalTrends describes how records evolve over time
type TemporalTrends struct {
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Trends []ParameterTrend `json:"trends"`
}

// SpatialSummary describes the geographic spread of geocoded records
type SpatialSummary struct {
	GeocodedCount   int      `json:"geocoded_count"`
	Centroid        Location `json:"centroid"`
	LatitudeSpread  float64  `json:"latitude_spread"`
	LongitudeSpread float64  `json:"longitude_spread"`
	MaxDistanceKm   float64  `json:"max_distance_km"`
	BoundingAreaHa  float64  `json:"bounding_area_ha"`
}

// Recommendation is a rule-based finding on a comparison
type Recommendation struct {
	Parameter   string `json:"parameter,omitempty"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ComparisonResult is the output of Compare
type ComparisonResult struct {
	Type            ComparisonType   `json:"type"`
	Count           int              `json:"count"`
	Statistics      []ParameterStats `json:"statistics"`
	Temporal        *TemporalTrends  `json:"temporal,omitempty"`
	Spatial         *SpatialSummary  `json:"spatial,omitempty"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Stat returns the statistics of the named parameter.
func (r *ComparisonResult) Stat(parameter string) (ParameterStats, bool) {
	for _, s := range r.Statistics {
		if s.Parameter == parameter {
			return s, true
		}
	}
	return ParameterStats{}, false
}

// Compare summarizes between 2 and 10 analysis records. Temporal comparisons add first-versus-last
// trends; spatial comparisons add a centroid summary when at least two records carry a location.
func Compare(records []AnalysisRecord, kind ComparisonType) (*ComparisonResult, error) {
	var c validation.Collector
	if n := len(records); n < MinComparisonRecords || n > MaxComparisonRecords {
		c.Add("analyses", "OUT_OF_RANGE", "between %d and %d analyses are required, got %d",
			MinComparisonRecords, MaxComparisonRecords, n)
	}
	c.OneOf("type", string(kind), string(ComparisonTemporal), string(ComparisonSpatial), string(ComparisonGeneral))
	if err := c.Err(); err != nil {
		return nil, err
	}

	result := &ComparisonResult{
		Type:       kind,
		Count:      len(records),
		Statistics: make([]ParameterStats, 0, len(comparisonParameters)),
	}

	for _, p := range comparisonParameters {
		values := make([]float64, len(records))
		for i, r := range records {
			values[i] = p.value(r.Characteristics)
		}
		summary := describe(values)
		summary.Parameter = p.name
		summary.Unit = p.unit
		result.Statistics = append(result.Statistics, summary)
	}

	switch kind {
	case ComparisonTemporal:
		result.Temporal = temporalTrends(records)
	case ComparisonSpatial:
		result.Spatial = spatialSummary(records)
	}

	result.Recommendations = recommend(result)
	return result, nil
}

func describe(values []float64) ParameterStats {
	var out ParameterStats
	out.Min, _ = stats.Min(values)
	out.Max, _ = stats.Max(values)
	out.Mean, _ = stats.Mean(values)
	out.StdDev, _ = stats.StandardDeviationPopulation(values)
	if out.Mean != 0 {
		out.CoefficientOfVariation = out.StdDev / math.Abs(out.Mean)
	}
	return out
}

func temporalTrends(records []AnalysisRecord) *TemporalTrends {
	sorted := make([]AnalysisRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SampledAt.Before(sorted[j].SampledAt)
	})

	first, last := sorted[0], sorted[len(sorted)-1]
	trends := &TemporalTrends{
		From:   first.SampledAt,
		To:     last.SampledAt,
		Trends: make([]ParameterTrend, 0, len(comparisonParameters)),
	}

	for _, p := range comparisonParameters {
		a := p.value(first.Characteristics)
		b := p.value(last.Characteristics)
		t := ParameterTrend{
			Parameter: p.name,
			First:     a,
			Last:      b,
			Delta:     b - a,
		}
		if a != 0 {
			t.PercentChange = (b - a) / math.Abs(a) * 100
		}
		t.Significant = math.Abs(t.PercentChange) > significantChangePct
		switch {
		case !t.Significant:
			t.Direction = "stable"
		case t.Delta > 0:
			t.Direction = "increasing"
		default:
			t.Direction = "decreasing"
		}
		trends.Trends = append(trends.Trends, t)
	}
	return trends
}

func spatialSummary(records []AnalysisRecord) *SpatialSummary {
	var points []orb.Point
	for _, r := range records {
		if r.Location == nil {
			continue
		}
		points = append(points, geospatial.Point(r.Location.Latitude, r.Location.Longitude))
	}
	if len(points) < 2 {
		return nil
	}

	centroid := geospatial.CalculateCentroid(points)
	latSpread, lonSpread := geospatial.Spread(points)
	return &SpatialSummary{
		GeocodedCount:   len(points),
		Centroid:        Location{Latitude: centroid.Lat(), Longitude: centroid.Lon()},
		LatitudeSpread:  latSpread,
		LongitudeSpread: lonSpread,
		MaxDistanceKm:   geospatial.MaxDistanceKm(points),
		BoundingAreaHa:  geospatial.BoundingAreaHa(points),
	}
}

func recommend(result *ComparisonResult) []Recommendation {
	recs := []Recommendation{}

	for _, s := range result.Statistics {
		if s.CoefficientOfVariation > highVariabilityCV {
			recs = append(recs, Recommendation{
				Parameter:   s.Parameter,
				Priority:    "medium",
				Title:       "High variability",
				Description: "Values vary by more than 20% between analyses; consider zone-based management and additional sampling.",
			})
		}
	}

	if paw, ok := result.Stat(ParamPlantAvailableWater); ok && paw.Mean < lowRetentionPAW {
		recs = append(recs, Recommendation{
			Parameter:   ParamPlantAvailableWater,
			Priority:    "high",
			Title:       "Low water retention risk",
			Description: "Mean plant available water is below 15%; add organic matter and irrigate lighter and more often.",
		})
	}

	if ks, ok := result.Stat(ParamSaturatedConductivity); ok && ks.Mean < slowDrainageKs {
		recs = append(recs, Recommendation{
			Parameter:   ParamSaturatedConductivity,
			Priority:    "high",
			Title:       "Slow drainage",
			Description: "Mean saturated conductivity is below 2 mm/hr; assess drainage before leaching salts.",
		})
	}

	if result.Temporal != nil {
		for _, t := range result.Temporal.Trends {
			if t.Parameter == ParamPlantAvailableWater && t.Significant && t.Delta < 0 {
				recs = append(recs, Recommendation{
					Parameter:   t.Parameter,
					Priority:    "high",
					Title:       "Declining water retention",
					Description: "Plant available water dropped by more than 5% over the period; review tillage and organic inputs.",
				})
			}
		}
	}

	if result.Spatial != nil && result.Spatial.MaxDistanceKm > wideAreaKm {
		if paw, ok := result.Stat(ParamPlantAvailableWater); ok && paw.CoefficientOfVariation > highVariabilityCV {
			recs = append(recs, Recommendation{
				Parameter:   ParamPlantAvailableWater,
				Priority:    "medium",
				Title:       "Variable-rate irrigation candidate",
				Description: "Water retention differs across sampling sites more than 1 km apart; split the field into irrigation zones.",
			})
		}
	}

	return recs
}
