package main

import (
	"flahasoil/internal/salt"
	"flahasoil/internal/soil"
)

// present applies display rounding to a command result. Types without a display
// form pass through unchanged.
func present(v interface{}) interface{} {
	switch r := v.(type) {
	case soil.WaterCharacteristics:
		return r.Rounded()
	case []soil.MoistureTensionPoint:
		out := make([]soil.MoistureTensionPoint, len(r))
		for i, p := range r {
			p.MoistureContentPct = soil.Round(p.MoistureContentPct, 1)
			p.TensionLog10 = soil.Round(p.TensionLog10, 3)
			out[i] = p
		}
		return out
	case *soil.SoilProfile:
		return presentProfile(*r)
	case *salt.LeachingResult:
		return presentLeaching(*r)
	}
	return v
}

func presentProfile(p soil.SoilProfile) soil.SoilProfile {
	horizons := make([]soil.SoilHorizon, len(p.Horizons))
	for i, h := range p.Horizons {
		h.BulkDensityFactor = soil.Round(h.BulkDensityFactor, 2)
		h.OrganicMatterPct = soil.Round(h.OrganicMatterPct, 1)
		h.Water = h.Water.Rounded()
		horizons[i] = h
	}
	p.Horizons = horizons
	p.RootZoneAverages = soil.RootZoneAverages{
		FieldCapacityPct:       soil.Round(p.RootZoneAverages.FieldCapacityPct, 1),
		WiltingPointPct:        soil.Round(p.RootZoneAverages.WiltingPointPct, 1),
		PlantAvailableWaterPct: soil.Round(p.RootZoneAverages.PlantAvailableWaterPct, 1),
	}
	if p.RestrictiveLayer != nil {
		layer := *p.RestrictiveLayer
		layer.SaturatedConductivity = soil.Round(layer.SaturatedConductivity, 1)
		p.RestrictiveLayer = &layer
	}
	return p
}

// Fractions and factors keep three places, money two, depths and volumes one.
func presentLeaching(r salt.LeachingResult) salt.LeachingResult {
	r.BaseLeachingFraction = soil.Round(r.BaseLeachingFraction, 3)
	r.ClimateFactor = soil.Round(r.ClimateFactor, 3)
	r.SeasonalFactor = soil.Round(r.SeasonalFactor, 3)
	r.EnvironmentalFactor = soil.Round(r.EnvironmentalFactor, 3)
	r.LeachingFraction = soil.Round(r.LeachingFraction, 3)
	r.CropWaterNeedMM = soil.Round(r.CropWaterNeedMM, 1)
	r.IrrigationDepthMM = soil.Round(r.IrrigationDepthMM, 1)
	r.LeachingDepthMM = soil.Round(r.LeachingDepthMM, 1)
	r.TotalWaterNeedM3 = soil.Round(r.TotalWaterNeedM3, 1)

	e := &r.Economics
	e.ExtraWaterM3 = soil.Round(e.ExtraWaterM3, 1)
	e.ExtraWaterCostUSD = soil.Round(e.ExtraWaterCostUSD, 2)
	e.ProjectedSoilEC = soil.Round(e.ProjectedSoilEC, 2)
	e.YieldLossAvoidedPct = soil.Round(e.YieldLossAvoidedPct, 1)
	e.DamageAvoidedUSD = soil.Round(e.DamageAvoidedUSD, 2)
	e.NetBenefitUSD = soil.Round(e.NetBenefitUSD, 2)
	return r
}
