package irrigation

import (
	"flahasoil/internal/soil"
)

// ClimateZone identifies the climate for which a Kc schedule applies
type ClimateZone string

const (
	ClimateGCCArid           ClimateZone = "gcc_arid"
	ClimateMENAMediterranean ClimateZone = "mena_mediterranean"
	ClimateTemperate         ClimateZone = "temperate"
)

// Method represents an irrigation method
type Method string

const (
	MethodDrip           Method = "drip"
	MethodSubsurfaceDrip Method = "subsurface_drip"
	MethodMicroSprinkler Method = "micro_sprinkler"
	MethodSprinkler      Method = "sprinkler"
	MethodCenterPivot    Method = "center_pivot"
	MethodSurface        Method = "surface"
)

// Stage names of the FAO-56 four-period crop development model
const (
	StageInitial     = "initial"
	StageDevelopment = "development"
	StageMid         = "mid_season"
	StageLate        = "late_season"
)

// ResolutionStatus tags how a Kc value was obtained
type ResolutionStatus string

const (
	StatusExact     ResolutionStatus = "exact"
	StatusFallback  ResolutionStatus = "fallback"
	StatusEstimated ResolutionStatus = "estimated"
)

// GrowthStage represents a BBCH-coded crop development stage
type GrowthStage struct {
	Name      string `json:"name" yaml:"name" db:"name"`
	BBCHStart int    `json:"bbch_start" yaml:"bbch_start" db:"bbch_start"`
	BBCHEnd   int    `json:"bbch_end" yaml:"bbch_end" db:"bbch_end"`
	Days      int    `json:"days" yaml:"days" db:"days"`
}

// KcPeriod is one growth period of a Kc schedule. Days are counted from planting
// (or from the start of the season for perennials); the end day is exclusive.
type KcPeriod struct {
	Stage           string  `json:"stage" yaml:"stage" db:"stage"`
	PeriodStartDays int     `json:"period_start_days" yaml:"period_start_days" db:"period_start_days"`
	PeriodEndDays   int     `json:"period_end_days" yaml:"period_end_days" db:"period_end_days"`
	KcValue         float64 `json:"kc_value" yaml:"kc_value" db:"kc_value"`
	KcMin           float64 `json:"kc_min" yaml:"kc_min" db:"kc_min"`
	KcMax           float64 `json:"kc_max" yaml:"kc_max" db:"kc_max"`
}

// KcSchedule is the ordered set of periods for a crop in one climate with one method
type KcSchedule struct {
	CropID           string      `json:"crop_id" yaml:"crop_id"`
	ClimateZone      ClimateZone `json:"climate_zone" yaml:"climate_zone"`
	IrrigationMethod Method      `json:"irrigation_method" yaml:"irrigation_method"`
	Periods          []KcPeriod  `json:"periods" yaml:"periods"`
}

// Crop represents a crop in the reference catalogue
type Crop struct {
	ID                         string        `json:"id" yaml:"id" db:"id"`
	Name                       string        `json:"name" yaml:"name" db:"name"`
	ScientificName             string        `json:"scientific_name" yaml:"scientific_name" db:"scientific_name"`
	Category                   string        `json:"category" yaml:"category" db:"category"`
	Perennial                  bool          `json:"perennial" yaml:"perennial" db:"perennial"`
	PlantHeightM               float64       `json:"plant_height_m" yaml:"plant_height_m" db:"plant_height_m"`
	RootDepthMinM              float64       `json:"root_depth_min_m" yaml:"root_depth_min_m" db:"root_depth_min_m"`
	RootDepthMaxM              float64       `json:"root_depth_max_m" yaml:"root_depth_max_m" db:"root_depth_max_m"`
	ManagementAllowedDepletion float64       `json:"management_allowed_depletion" yaml:"management_allowed_depletion" db:"management_allowed_depletion"`
	SalinityThresholdEC        float64       `json:"salinity_threshold_ec" yaml:"salinity_threshold_ec" db:"salinity_threshold_ec"`
	YieldDeclinePerEC          float64       `json:"yield_decline_per_ec" yaml:"yield_decline_per_ec" db:"yield_decline_per_ec"`
	Stages                     []GrowthStage `json:"stages" yaml:"stages" db:"-"`
	KcIni                      float64       `json:"kc_ini" yaml:"kc_ini" db:"kc_ini"`
	KcMid                      float64       `json:"kc_mid" yaml:"kc_mid" db:"kc_mid"`
	KcEnd                      float64       `json:"kc_end" yaml:"kc_end" db:"kc_end"`
}

// SeasonDays is the length of the growing season in days.
func (c Crop) SeasonDays() int {
	var total int
	for _, s := range c.Stages {
		total += s.Days
	}
	return total
}

// StageForBBCH returns the stage that contains the BBCH code.
func (c Crop) StageForBBCH(code int) (GrowthStage, bool) {
	for _, s := range c.Stages {
		if code >= s.BBCHStart && code <= s.BBCHEnd {
			return s, true
		}
	}
	return GrowthStage{}, false
}

// KcResolution is the tagged outcome of a Kc lookup. Status is the lowest confidence
// that applies: fallback outranks estimated, so ClimateAdjusted is reported separately.
type KcResolution struct {
	Status          ResolutionStatus `json:"status"`
	CropID          string           `json:"crop_id"`
	Period          KcPeriod         `json:"period"`
	Kc              float64          `json:"kc"`
	ClimateAdjusted bool             `json:"climate_adjusted"`
	Note            string           `json:"note,omitempty"`
}

// Inputs are the values the irrigation recommendation is computed from
type Inputs struct {
	Soil          soil.WaterCharacteristics
	Kc            float64
	ET0           float64
	GrowthStage   string
	FieldAreaHa   float64
	SlopePct      float64
	RootDepthCM   float64
	MAD           float64
	SeasonDays    int
	CurrentMethod Method
	Region        string
}

// Economics is the rule-based cost scoring of a recommended system
type Economics struct {
	Region              string   `json:"region"`
	InstallationCostUSD float64  `json:"installation_cost_usd"`
	SeasonalWaterUseM3  float64  `json:"seasonal_water_use_m3"`
	BaselineWaterUseM3  float64  `json:"baseline_water_use_m3"`
	WaterPriceUSDPerM3  float64  `json:"water_price_usd_per_m3"`
	SeasonalSavingsUSD  float64  `json:"seasonal_savings_usd"`
	ROIPct              float64  `json:"roi_pct"`
	PaybackSeasons      *float64 `json:"payback_seasons"`
}

// Recommendation is the result of an irrigation calculation. IrrigationFrequencyDays
// is nil when there is no crop water demand.
type Recommendation struct {
	CropID                  string           `json:"crop_id,omitempty"`
	GrowthStage             string           `json:"growth_stage"`
	Kc                      float64          `json:"kc"`
	KcStatus                ResolutionStatus `json:"kc_status,omitempty"`
	KcClimateAdjusted       bool             `json:"kc_climate_adjusted"`
	KcNote                  string           `json:"kc_note,omitempty"`
	ET0                     float64          `json:"et0_mm_day"`
	ETc                     float64          `json:"etc_mm_day"`
	RootDepthCM             float64          `json:"root_depth_cm"`
	IrrigationDepthMM       float64          `json:"irrigation_depth_mm"`
	GrossIrrigationDepthMM  float64          `json:"gross_irrigation_depth_mm"`
	IrrigationFrequencyDays *float64         `json:"irrigation_frequency_days"`
	MaxApplicationRateMMHr  float64          `json:"max_application_rate_mm_hr"`
	SystemRecommendation    Method           `json:"system_recommendation"`
	SystemEfficiency        float64          `json:"system_efficiency"`
	SystemRationale         string           `json:"system_rationale"`
	Economics               Economics        `json:"economics"`
}
