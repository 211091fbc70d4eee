package salt

import (
	"fmt"

	"flahasoil/internal/validation"
)

// Drainage classes
const (
	WellDrained           = "well_drained"
	ModeratelyWellDrained = "moderately_well_drained"
	SomewhatPoorlyDrained = "somewhat_poorly_drained"
	PoorlyDrained         = "poorly_drained"
)

// Drainage system types
const (
	SystemSubsurfaceTile = "subsurface_tile"
	SystemSurface        = "surface"
	SystemMole           = "mole"
	SystemCombination    = "combination"
)

const (
	shallowGroundwaterM  = 2.0
	slowConductivity     = 2.0
	highLeachingFraction = 0.25
)

// DrainageInput holds the soil and field data of a drainage assessment
type DrainageInput struct {
	SaturatedConductivity float64 `json:"saturated_conductivity_mm_hr"`
	ClayPct               float64 `json:"clay_pct"`
	FieldAreaHa           float64 `json:"field_area_ha"`
	SlopePct              float64 `json:"slope_pct"`

	GroundwaterDepthM  *float64 `json:"groundwater_depth_m,omitempty"`
	SeasonalWaterTable bool     `json:"seasonal_water_table"`
	LeachingFraction   *float64 `json:"leaching_fraction,omitempty"`
}

// DrainageSystem is a drainage design specification
type DrainageSystem struct {
	Type             string  `json:"type"`
	Spacing          string  `json:"spacing"`
	Depth            string  `json:"depth"`
	Material         string  `json:"material"`
	CostUSDPerHa     float64 `json:"cost_usd_per_ha"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// DrainageAssessment is the outcome of a drainage assessment
type DrainageAssessment struct {
	DrainageClass    string          `json:"drainage_class"`
	DrainageRequired bool            `json:"drainage_required"`
	Reasons          []string        `json:"reasons"`
	System           *DrainageSystem `json:"system"`
}

var systemSpecs = map[string]DrainageSystem{
	SystemSubsurfaceTile: {
		Type:         SystemSubsurfaceTile,
		Spacing:      "15-30 m laterals",
		Depth:        "1.2-1.8 m",
		Material:     "corrugated perforated PE pipe with gravel envelope",
		CostUSDPerHa: 2500,
	},
	SystemSurface: {
		Type:         SystemSurface,
		Spacing:      "50-100 m field ditches",
		Depth:        "0.3-0.6 m",
		Material:     "graded open ditches with grassed waterways",
		CostUSDPerHa: 600,
	},
	SystemMole: {
		Type:         SystemMole,
		Spacing:      "2-5 m mole channels",
		Depth:        "0.4-0.7 m",
		Material:     "unlined mole channels drawn into collector pipes",
		CostUSDPerHa: 400,
	},
	SystemCombination: {
		Type:         SystemCombination,
		Spacing:      "20-40 m laterals with surface ditches",
		Depth:        "1.0-1.5 m",
		Material:     "perforated PE pipe with open surface drains",
		CostUSDPerHa: 3200,
	},
}

// AssessDrainageRequirements classifies internal drainage and, when drainage is needed,
// selects a system type. Any single trigger makes drainage required.
func AssessDrainageRequirements(in DrainageInput) (*DrainageAssessment, error) {
	var c validation.Collector
	c.Range("saturated_conductivity_mm_hr", in.SaturatedConductivity, 0, 1000)
	c.Range("clay_pct", in.ClayPct, 0, 100)
	c.Positive("field_area_ha", in.FieldAreaHa)
	c.Range("slope_pct", in.SlopePct, 0, 100)
	if in.GroundwaterDepthM != nil {
		c.Range("groundwater_depth_m", *in.GroundwaterDepthM, 0, 100)
	}
	if in.LeachingFraction != nil {
		c.Range("leaching_fraction", *in.LeachingFraction, 0, 1)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	a := &DrainageAssessment{
		DrainageClass: DrainageClass(in.SaturatedConductivity, in.ClayPct),
		Reasons:       []string{},
	}

	if in.SeasonalWaterTable {
		a.Reasons = append(a.Reasons, "seasonal high water table")
	}
	if in.GroundwaterDepthM != nil && *in.GroundwaterDepthM < shallowGroundwaterM {
		a.Reasons = append(a.Reasons, fmt.Sprintf("groundwater at %.1f m is shallower than 2 m", *in.GroundwaterDepthM))
	}
	if a.DrainageClass == PoorlyDrained {
		a.Reasons = append(a.Reasons, "soil is poorly drained")
	}
	if in.SaturatedConductivity < slowConductivity {
		a.Reasons = append(a.Reasons, fmt.Sprintf("saturated conductivity %.2f mm/hr is below 2 mm/hr", in.SaturatedConductivity))
	}
	if in.LeachingFraction != nil && *in.LeachingFraction > highLeachingFraction {
		a.Reasons = append(a.Reasons, fmt.Sprintf("leaching fraction %.2f exceeds 0.25", *in.LeachingFraction))
	}

	a.DrainageRequired = len(a.Reasons) > 0
	if a.DrainageRequired {
		spec := systemSpecs[selectSystem(in.ClayPct, in.SaturatedConductivity, in.SlopePct)]
		spec.EstimatedCostUSD = spec.CostUSDPerHa * in.FieldAreaHa
		a.System = &spec
	}
	return a, nil
}

// DrainageClass maps conductivity (mm/hr) and clay content to a drainage class.
func DrainageClass(ks, clayPct float64) string {
	switch {
	case ks > 10 && clayPct < 20:
		return WellDrained
	case ks > 2 && clayPct < 35:
		return ModeratelyWellDrained
	case ks > 0.5:
		return SomewhatPoorlyDrained
	default:
		return PoorlyDrained
	}
}

func selectSystem(clayPct, ks, slopePct float64) string {
	switch {
	case clayPct > 40 && ks < 0.5:
		return SystemMole
	case slopePct > 5:
		return SystemSurface
	case ks < 2 && clayPct > 30:
		return SystemCombination
	default:
		return SystemSubsurfaceTile
	}
}
