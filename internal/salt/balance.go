package salt

import (
	"fmt"

	"flahasoil/internal/validation"
)

// Monitoring periods of a salt balance
const (
	PeriodMonthly  = "monthly"
	PeriodSeasonal = "seasonal"
	PeriodAnnual   = "annual"
)

// Salt balance statuses
const (
	StatusImproving = "improving"
	StatusStable    = "stable"
	StatusWarning   = "warning"
	StatusCritical  = "critical"
)

const (
	// SaltPerECUnit converts m3 x dS/m to kg of dissolved salt.
	SaltPerECUnit = 0.64
	// RainwaterEC is the salinity assumed for precipitation (dS/m).
	RainwaterEC = 0.05

	leachingEfficiency = 0.8
	drainageEfficiency = 0.9
	runoffShare        = 0.1
	leachateEnrichment = 2.0
)

// balanceThresholds are the warning and critical net accumulations in kg/ha per period.
var balanceThresholds = map[string]struct{ warning, critical float64 }{
	PeriodMonthly:  {50, 150},
	PeriodSeasonal: {150, 400},
	PeriodAnnual:   {500, 1200},
}

// FertilizerInput is a fertilizer application contributing salts
type FertilizerInput struct {
	Name         string  `json:"name"`
	AmountKg     float64 `json:"amount_kg"`
	SaltFraction float64 `json:"salt_fraction"`
}

// BalanceInput holds the water and salt flows of one monitoring period. Volumes are m3
// over the whole field, EC values dS/m.
type BalanceInput struct {
	IrrigationVolumeM3    float64           `json:"irrigation_volume_m3"`
	IrrigationEC          float64           `json:"irrigation_ec"`
	Fertilizers           []FertilizerInput `json:"fertilizers"`
	PrecipitationVolumeM3 float64           `json:"precipitation_volume_m3"`
	LeachingVolumeM3      float64           `json:"leaching_volume_m3"`
	DrainageVolumeM3      float64           `json:"drainage_volume_m3"`
	CropUptakeKg          float64           `json:"crop_uptake_kg"`
	FieldAreaHa           float64           `json:"field_area_ha"`
	Period                string            `json:"period"`

	// LeachateEC defaults to twice the irrigation EC; DrainageEC defaults to LeachateEC.
	LeachateEC          *float64 `json:"leachate_ec,omitempty"`
	DrainageEC          *float64 `json:"drainage_ec,omitempty"`
	GroundwaterVolumeM3 float64  `json:"groundwater_volume_m3"`
	GroundwaterEC       float64  `json:"groundwater_ec"`
}

// SaltInputs are salt additions in kg
type SaltInputs struct {
	Irrigation  float64 `json:"irrigation"`
	Fertilizer  float64 `json:"fertilizer"`
	Atmospheric float64 `json:"atmospheric"`
	Groundwater float64 `json:"groundwater"`
	Total       float64 `json:"total"`
}

// SaltOutputs are salt removals in kg
type SaltOutputs struct {
	Leaching      float64 `json:"leaching"`
	Drainage      float64 `json:"drainage"`
	CropUptake    float64 `json:"crop_uptake"`
	SurfaceRunoff float64 `json:"surface_runoff"`
	Total         float64 `json:"total"`
}

// SaltBalance is the salt mass balance of a field over one period
type SaltBalance struct {
	Period            string      `json:"period"`
	Inputs            SaltInputs  `json:"inputs"`
	Outputs           SaltOutputs `json:"outputs"`
	NetBalanceKg      float64     `json:"net_balance_kg"`
	NetBalanceKgPerHa float64     `json:"net_balance_kg_per_ha"`
	Status            string      `json:"status"`
	Recommendations   []string    `json:"recommendations"`
}

// CalculateSaltBalance totals salt inputs and outputs for the period and classifies the
// net accumulation per hectare against the period's thresholds.
func CalculateSaltBalance(in BalanceInput) (*SaltBalance, error) {
	if err := validateBalance(in); err != nil {
		return nil, err
	}

	leachateEC := in.IrrigationEC * leachateEnrichment
	if in.LeachateEC != nil {
		leachateEC = *in.LeachateEC
	}
	drainageEC := leachateEC
	if in.DrainageEC != nil {
		drainageEC = *in.DrainageEC
	}

	var inputs SaltInputs
	inputs.Irrigation = saltKg(in.IrrigationVolumeM3, in.IrrigationEC)
	for _, f := range in.Fertilizers {
		inputs.Fertilizer += f.AmountKg * f.SaltFraction
	}
	inputs.Atmospheric = saltKg(in.PrecipitationVolumeM3, RainwaterEC)
	inputs.Groundwater = saltKg(in.GroundwaterVolumeM3, in.GroundwaterEC)
	inputs.Total = inputs.Irrigation + inputs.Fertilizer + inputs.Atmospheric + inputs.Groundwater

	var outputs SaltOutputs
	outputs.Leaching = saltKg(in.LeachingVolumeM3, leachateEC) * leachingEfficiency
	outputs.Drainage = saltKg(in.DrainageVolumeM3, drainageEC) * drainageEfficiency
	outputs.CropUptake = in.CropUptakeKg
	outputs.SurfaceRunoff = saltKg(in.PrecipitationVolumeM3*runoffShare, in.IrrigationEC)
	outputs.Total = outputs.Leaching + outputs.Drainage + outputs.CropUptake + outputs.SurfaceRunoff

	b := &SaltBalance{
		Period:       in.Period,
		Inputs:       inputs,
		Outputs:      outputs,
		NetBalanceKg: inputs.Total - outputs.Total,
	}
	b.NetBalanceKgPerHa = b.NetBalanceKg / in.FieldAreaHa
	b.Status = balanceStatus(b.NetBalanceKgPerHa, in.Period)
	b.Recommendations = balanceRecommendations(b, in)
	return b, nil
}

func validateBalance(in BalanceInput) error {
	var c validation.Collector
	c.OneOf("period", in.Period, PeriodMonthly, PeriodSeasonal, PeriodAnnual)
	c.Positive("field_area_ha", in.FieldAreaHa)
	c.Range("irrigation_ec", in.IrrigationEC, 0, 25)
	nonNegative := []struct {
		field string
		value float64
	}{
		{"irrigation_volume_m3", in.IrrigationVolumeM3},
		{"precipitation_volume_m3", in.PrecipitationVolumeM3},
		{"leaching_volume_m3", in.LeachingVolumeM3},
		{"drainage_volume_m3", in.DrainageVolumeM3},
		{"crop_uptake_kg", in.CropUptakeKg},
		{"groundwater_volume_m3", in.GroundwaterVolumeM3},
		{"groundwater_ec", in.GroundwaterEC},
	}
	for _, f := range nonNegative {
		c.NonNegative(f.field, f.value)
	}
	for i, f := range in.Fertilizers {
		c.NonNegative(fmt.Sprintf("fertilizers[%d].amount_kg", i), f.AmountKg)
		c.Range(fmt.Sprintf("fertilizers[%d].salt_fraction", i), f.SaltFraction, 0, 1)
	}
	if in.LeachateEC != nil {
		c.Range("leachate_ec", *in.LeachateEC, 0, 100)
	}
	if in.DrainageEC != nil {
		c.Range("drainage_ec", *in.DrainageEC, 0, 100)
	}
	return c.Err()
}

func saltKg(volumeM3, ec float64) float64 {
	return volumeM3 * ec * SaltPerECUnit
}

func balanceStatus(netKgPerHa float64, period string) string {
	t := balanceThresholds[period]
	switch {
	case netKgPerHa < 0:
		return StatusImproving
	case netKgPerHa < t.warning:
		return StatusStable
	case netKgPerHa < t.critical:
		return StatusWarning
	default:
		return StatusCritical
	}
}

func balanceRecommendations(b *SaltBalance, in BalanceInput) []string {
	recs := []string{}
	switch b.Status {
	case StatusImproving:
		recs = append(recs, "Salt is being removed; keep the current leaching schedule.")
	case StatusStable:
		recs = append(recs, "Salt accumulation is low; continue monitoring soil EC each period.")
	case StatusWarning:
		recs = append(recs, "Salt is accumulating; increase the leaching fraction or apply a leaching irrigation.")
	case StatusCritical:
		recs = append(recs, "Salt is accumulating rapidly; schedule a reclamation leaching and assess drainage capacity.")
	}
	if b.Inputs.Total > 0 && b.Inputs.Fertilizer/b.Inputs.Total > 0.2 {
		recs = append(recs, "Fertilizer contributes over 20% of salt inputs; switch to low salt-index fertilizers.")
	}
	if b.Status != StatusImproving && in.DrainageVolumeM3 == 0 && in.LeachingVolumeM3 > 0 {
		recs = append(recs, "Leached salts are not drained from the field; check the drainage outlet.")
	}
	return recs
}
