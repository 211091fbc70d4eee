// Package salt implements FAO-29 leaching requirements, drainage assessment and
// seasonal salt mass balances for irrigated fields.
package salt

import (
	"math"

	"flahasoil/internal/validation"
)

// Climate zones with a leaching adjustment factor
const (
	ZoneGCCArid           = "gcc_arid"
	ZoneMENAMediterranean = "mena_mediterranean"
	ZoneTemperate         = "temperate"
)

// Seasons with a leaching adjustment factor
const (
	SeasonSummer     = "summer"
	SeasonWinter     = "winter"
	SeasonTransition = "transition"
)

// Leaching schedule categories
const (
	FrequencyEveryIrrigation = "every_irrigation"
	FrequencyWeekly          = "weekly"
	FrequencyBiweekly        = "biweekly"
	FrequencyMonthly         = "monthly"
)

// Economic recommendations
const (
	EconomicallyBeneficial = "economically_beneficial"
	MonitorClosely         = "monitor_closely"
)

const (
	// MaxLeachingFraction caps the adjusted leaching fraction.
	MaxLeachingFraction = 0.5

	// DefaultCropWaterNeedMM is the irrigation event depth used when none is given.
	DefaultCropWaterNeedMM = 25.0
	// DefaultWaterPriceUSDPerM3 is the desalinated water price used when none is given.
	DefaultWaterPriceUSDPerM3 = 1.5
	// DefaultCropValueUSDPerHa is the crop value used for damage estimates when none is given.
	DefaultCropValueUSDPerHa = 5000.0
	// DefaultYieldDeclinePerEC is the Maas-Hoffman slope (% per dS/m) used when none is given.
	DefaultYieldDeclinePerEC = 10.0

	// equilibriumConcentration approximates soil ECe from water EC under normal leaching.
	equilibriumConcentration = 1.5

	hotTemperatureC  = 35.0
	dryHumidityPct   = 20.0
	highEvaporationM = 8.0
)

var climateFactors = map[string]float64{
	ZoneGCCArid:           1.3,
	ZoneMENAMediterranean: 1.1,
	ZoneTemperate:         1.0,
}

var seasonFactors = map[string]float64{
	SeasonSummer:     1.4,
	SeasonWinter:     0.8,
	SeasonTransition: 1.0,
}

// LeachingInput holds the inputs of a leaching requirement calculation.
// Zero or nil optional fields take the package defaults.
type LeachingInput struct {
	SoilEC          float64 `json:"soil_ec"`
	WaterEC         float64 `json:"water_ec"`
	CropThresholdEC float64 `json:"crop_threshold_ec"`
	ClimateZone     string  `json:"climate_zone"`
	Season          string  `json:"season"`

	TemperatureC      *float64 `json:"temperature_c,omitempty"`
	HumidityPct       *float64 `json:"humidity_pct,omitempty"`
	EvaporationMMDay  *float64 `json:"evaporation_mm_day,omitempty"`
	CropWaterNeedMM   *float64 `json:"crop_water_need_mm,omitempty"`
	FieldAreaHa       *float64 `json:"field_area_ha,omitempty"`
	WaterPriceUSDM3   *float64 `json:"water_price_usd_m3,omitempty"`
	CropValueUSDPerHa *float64 `json:"crop_value_usd_per_ha,omitempty"`
	YieldDeclinePerEC *float64 `json:"yield_decline_per_ec,omitempty"`
}

// LeachingEconomics compares the cost of the extra water with the salt damage it avoids
type LeachingEconomics struct {
	ExtraWaterM3        float64 `json:"extra_water_m3"`
	ExtraWaterCostUSD   float64 `json:"extra_water_cost_usd"`
	ProjectedSoilEC     float64 `json:"projected_soil_ec"`
	YieldLossAvoidedPct float64 `json:"yield_loss_avoided_pct"`
	DamageAvoidedUSD    float64 `json:"damage_avoided_usd"`
	NetBenefitUSD       float64 `json:"net_benefit_usd"`
	Recommendation      string  `json:"recommendation"`
}

// LeachingResult is the outcome of a leaching requirement calculation
type LeachingResult struct {
	BaseLeachingFraction float64           `json:"base_leaching_fraction"`
	ClimateFactor        float64           `json:"climate_factor"`
	SeasonalFactor       float64           `json:"seasonal_factor"`
	EnvironmentalFactor  float64           `json:"environmental_factor"`
	LeachingFraction     float64           `json:"leaching_fraction"`
	Capped               bool              `json:"capped"`
	CropWaterNeedMM      float64           `json:"crop_water_need_mm"`
	IrrigationDepthMM    float64           `json:"irrigation_depth_mm"`
	LeachingDepthMM      float64           `json:"leaching_depth_mm"`
	TotalWaterNeedM3     float64           `json:"total_water_need_m3"`
	LeachingFrequency    string            `json:"leaching_frequency"`
	Economics            LeachingEconomics `json:"economics"`
}

// CalculateLeachingRequirement applies the FAO-29 leaching fraction with climate, season
// and weather adjustments. Water at or above five times the crop threshold is rejected.
func CalculateLeachingRequirement(in LeachingInput) (*LeachingResult, error) {
	if err := validateLeaching(in); err != nil {
		return nil, err
	}

	zone := in.ClimateZone
	if zone == "" {
		zone = ZoneTemperate
	}
	season := in.Season
	if season == "" {
		season = SeasonTransition
	}

	base := in.WaterEC / (5*in.CropThresholdEC - in.WaterEC)
	env := environmentalFactor(in)

	res := &LeachingResult{
		BaseLeachingFraction: base,
		ClimateFactor:        climateFactors[zone],
		SeasonalFactor:       seasonFactors[season],
		EnvironmentalFactor:  env,
	}
	lf := base * res.ClimateFactor * res.SeasonalFactor * env
	if lf > MaxLeachingFraction {
		lf = MaxLeachingFraction
		res.Capped = true
	}
	res.LeachingFraction = lf

	res.CropWaterNeedMM = valueOr(in.CropWaterNeedMM, DefaultCropWaterNeedMM)
	res.IrrigationDepthMM = res.CropWaterNeedMM / (1 - lf)
	res.LeachingDepthMM = res.IrrigationDepthMM - res.CropWaterNeedMM

	area := valueOr(in.FieldAreaHa, 1)
	res.TotalWaterNeedM3 = res.IrrigationDepthMM * 10 * area
	res.LeachingFrequency = leachingFrequency(lf)
	res.Economics = leachingEconomics(in, res, area)

	return res, nil
}

func validateLeaching(in LeachingInput) error {
	var c validation.Collector
	c.Range("soil_ec", in.SoilEC, 0, 50)
	c.Range("water_ec", in.WaterEC, 0, 25)
	c.Range("crop_threshold_ec", in.CropThresholdEC, 0, 25)
	if in.ClimateZone != "" {
		c.OneOf("climate_zone", in.ClimateZone, ZoneGCCArid, ZoneMENAMediterranean, ZoneTemperate)
	}
	if in.Season != "" {
		c.OneOf("season", in.Season, SeasonSummer, SeasonWinter, SeasonTransition)
	}
	if in.HumidityPct != nil {
		c.Range("humidity_pct", *in.HumidityPct, 0, 100)
	}
	if in.EvaporationMMDay != nil {
		c.Range("evaporation_mm_day", *in.EvaporationMMDay, 0, 30)
	}
	if in.CropWaterNeedMM != nil {
		c.Positive("crop_water_need_mm", *in.CropWaterNeedMM)
	}
	if in.FieldAreaHa != nil {
		c.Positive("field_area_ha", *in.FieldAreaHa)
	}
	if in.TemperatureC != nil {
		c.Range("temperature_c", *in.TemperatureC, -60, 60)
	}
	if in.WaterPriceUSDM3 != nil {
		c.NonNegative("water_price_usd_m3", *in.WaterPriceUSDM3)
	}
	if err := c.Err(); err != nil {
		return err
	}

	if limit := 5 * in.CropThresholdEC; in.WaterEC >= limit {
		c.Add("water_ec", "WATER_TOO_SALINE",
			"water EC %g dS/m is too saline for a crop threshold of %g dS/m; it must be below %g dS/m",
			in.WaterEC, in.CropThresholdEC, limit)
	}
	return c.Err()
}

func environmentalFactor(in LeachingInput) float64 {
	f := 1.0
	if in.TemperatureC != nil && *in.TemperatureC > hotTemperatureC {
		f *= 1.1
	}
	if in.HumidityPct != nil && *in.HumidityPct < dryHumidityPct {
		f *= 1.05
	}
	if in.EvaporationMMDay != nil && *in.EvaporationMMDay > highEvaporationM {
		f *= 1.15
	}
	return f
}

func leachingFrequency(lf float64) string {
	switch {
	case lf > 0.3:
		return FrequencyEveryIrrigation
	case lf > 0.15:
		return FrequencyWeekly
	case lf > 0.05:
		return FrequencyBiweekly
	default:
		return FrequencyMonthly
	}
}

// leachingEconomics weighs the extra water against the Maas-Hoffman yield loss expected
// at the soil salinity that builds up without leaching.
func leachingEconomics(in LeachingInput, res *LeachingResult, area float64) LeachingEconomics {
	price := valueOr(in.WaterPriceUSDM3, DefaultWaterPriceUSDPerM3)
	cropValue := valueOr(in.CropValueUSDPerHa, DefaultCropValueUSDPerHa)
	slope := valueOr(in.YieldDeclinePerEC, DefaultYieldDeclinePerEC)

	e := LeachingEconomics{
		ExtraWaterM3:    res.LeachingDepthMM * 10 * area,
		ProjectedSoilEC: math.Max(in.SoilEC, in.WaterEC*equilibriumConcentration),
	}
	e.ExtraWaterCostUSD = e.ExtraWaterM3 * price
	e.YieldLossAvoidedPct = math.Min(100, slope*math.Max(0, e.ProjectedSoilEC-in.CropThresholdEC))
	e.DamageAvoidedUSD = e.YieldLossAvoidedPct / 100 * cropValue * area
	e.NetBenefitUSD = e.DamageAvoidedUSD - e.ExtraWaterCostUSD

	e.Recommendation = MonitorClosely
	if e.NetBenefitUSD > 0 {
		e.Recommendation = EconomicallyBeneficial
	}
	return e
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
