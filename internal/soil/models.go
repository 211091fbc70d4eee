package soil

import (
	"math"
	"time"

	"flahasoil/internal/validation"
)

const (
	// DefaultOrganicMatter is used when the caller omits organic matter (percent).
	DefaultOrganicMatter = 2.5
	// DefaultBulkDensityFactor is used when the caller omits the density adjustment.
	DefaultBulkDensityFactor = 1.0
)

// SoilSample represents the texture and organic inputs of one soil analysis
type SoilSample struct {
	SandPct           float64 `json:"sand_pct"`
	ClayPct           float64 `json:"clay_pct"`
	OrganicMatterPct  float64 `json:"organic_matter_pct"`
	BulkDensityFactor float64 `json:"bulk_density_factor"`
}

// NewSample builds a sample with the default organic matter and density factor.
func NewSample(sandPct, clayPct float64) SoilSample {
	return SoilSample{
		SandPct:           sandPct,
		ClayPct:           clayPct,
		OrganicMatterPct:  DefaultOrganicMatter,
		BulkDensityFactor: DefaultBulkDensityFactor,
	}
}

// SiltPct is the remainder of the texture triangle.
func (s SoilSample) SiltPct() float64 {
	return 100 - s.SandPct - s.ClayPct
}

// Validate checks the caller-layer bounds on a sample.
func (s SoilSample) Validate() error {
	var c validation.Collector
	c.Range("sand_pct", s.SandPct, 0, 100)
	c.Range("clay_pct", s.ClayPct, 0, 100)
	if s.SandPct+s.ClayPct > 100 {
		c.Add("sand_pct", "TEXTURE_SUM", "sand_pct + clay_pct must not exceed 100, got %g", s.SandPct+s.ClayPct)
	}
	c.Range("organic_matter_pct", s.OrganicMatterPct, 0, 20)
	c.Range("bulk_density_factor", s.BulkDensityFactor, 0.8, 1.8)
	return c.Err()
}

// WaterCharacteristics represents the derived water retention properties of a sample.
// Moisture values are volumetric percent; SaturatedConductivity is mm/hr.
type WaterCharacteristics struct {
	FieldCapacityPct       float64  `json:"field_capacity_pct"`
	WiltingPointPct        float64  `json:"wilting_point_pct"`
	PlantAvailableWaterPct float64  `json:"plant_available_water_pct"`
	SaturationPct          float64  `json:"saturation_pct"`
	SaturatedConductivity  float64  `json:"saturated_conductivity_mm_hr"`
	TextureClass           string   `json:"texture_class"`
	Adjustments            []string `json:"adjustments,omitempty"`
}

// Rounded returns a copy rounded to one decimal place for display.
func (w WaterCharacteristics) Rounded() WaterCharacteristics {
	w.FieldCapacityPct = Round(w.FieldCapacityPct, 1)
	w.WiltingPointPct = Round(w.WiltingPointPct, 1)
	w.PlantAvailableWaterPct = Round(w.PlantAvailableWaterPct, 1)
	w.SaturationPct = Round(w.SaturationPct, 1)
	w.SaturatedConductivity = Round(w.SaturatedConductivity, 1)
	return w
}

// MoistureTensionPoint is one point of a moisture retention curve
type MoistureTensionPoint struct {
	TensionKPa         float64 `json:"tension_kpa"`
	MoistureContentPct float64 `json:"moisture_content_pct"`
	TensionLog10       float64 `json:"tension_log10"`
}

// HorizonName identifies a conventional soil horizon
type HorizonName string

const (
	HorizonO HorizonName = "O"
	HorizonA HorizonName = "A"
	HorizonB HorizonName = "B"
	HorizonC HorizonName = "C"
)

// SoilHorizon represents one layer of a soil profile. Depths are in cm.
type SoilHorizon struct {
	Name              HorizonName          `json:"name"`
	DepthStart        float64              `json:"depth_start_cm"`
	DepthEnd          float64              `json:"depth_end_cm"`
	Thickness         float64              `json:"thickness_cm"`
	OrganicMatterPct  float64              `json:"organic_matter_pct"`
	BulkDensityFactor float64              `json:"bulk_density_factor"`
	Water             WaterCharacteristics `json:"water_characteristics"`
}

// RootZoneAverages are depth-weighted means over the root zone
type RootZoneAverages struct {
	FieldCapacityPct       float64 `json:"field_capacity_pct"`
	WiltingPointPct        float64 `json:"wilting_point_pct"`
	PlantAvailableWaterPct float64 `json:"plant_available_water_pct"`
}

// RestrictiveLayer flags a slowly permeable horizon inside the root zone
type RestrictiveLayer struct {
	Horizon               HorizonName `json:"horizon"`
	DepthStart            float64     `json:"depth_start_cm"`
	SaturatedConductivity float64     `json:"saturated_conductivity_mm_hr"`
	Severity              string      `json:"severity"`
}

// SoilProfile is an ordered set of horizons with root-zone summaries
type SoilProfile struct {
	MaxDepth         float64           `json:"max_depth_cm"`
	Horizons         []SoilHorizon     `json:"horizons"`
	RootZoneDepth    float64           `json:"root_zone_depth_cm"`
	RootZoneAverages RootZoneAverages  `json:"root_zone_averages"`
	RestrictiveLayer *RestrictiveLayer `json:"restrictive_layer"`
}

// Location is a WGS84 coordinate pair
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AnalysisRecord is one analysis fed into a comparison
type AnalysisRecord struct {
	ID              string               `json:"id"`
	Label           string               `json:"label,omitempty"`
	SampledAt       time.Time            `json:"sampled_at"`
	Location        *Location            `json:"location,omitempty"`
	Sample          SoilSample           `json:"sample"`
	Characteristics WaterCharacteristics `json:"characteristics"`
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
