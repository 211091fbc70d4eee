package soil

import (
	"math"

	"flahasoil/internal/validation"
)

const (
	// DefaultProfileDepth is the profile depth (cm) used when the caller omits it.
	DefaultProfileDepth = 100.0
	// MaxProfileDepth bounds the profiles the builder accepts (cm).
	MaxProfileDepth = 300.0

	rootZoneLimit          = 30.0
	restrictiveKs          = 2.0
	severeRestrictiveKs    = 0.5
	densityIncreaseAtDepth = 0.2
)

// horizonTemplate is the fixed O/A/B/C layout. An end of 0 extends to the profile depth.
var horizonTemplate = []struct {
	name     HorizonName
	start    float64
	end      float64
	omFactor float64
}{
	{HorizonO, 0, 5, 3.0},
	{HorizonA, 5, 25, 1.5},
	{HorizonB, 25, 60, 0.8},
	{HorizonC, 60, 0, 0.3},
}

// BuildProfile partitions a soil column of maxDepth cm into horizons, computes the water
// characteristics of each and summarizes the root zone.
func BuildProfile(s SoilSample, maxDepth float64) (*SoilProfile, error) {
	var c validation.Collector
	if maxDepth <= 0 || maxDepth > MaxProfileDepth || math.IsNaN(maxDepth) {
		c.Add("max_depth", "OUT_OF_RANGE", "must be in (0, %g] cm, got %g", MaxProfileDepth, maxDepth)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	profile := &SoilProfile{
		MaxDepth:      maxDepth,
		RootZoneDepth: math.Min(rootZoneLimit, maxDepth),
	}

	for _, tpl := range horizonTemplate {
		start := tpl.start
		end := tpl.end
		if end == 0 || end > maxDepth {
			end = maxDepth
		}
		if start >= end {
			continue
		}

		midFraction := ((start + end) / 2) / maxDepth
		layer := SoilSample{
			SandPct:           s.SandPct,
			ClayPct:           s.ClayPct,
			OrganicMatterPct:  s.OrganicMatterPct * tpl.omFactor,
			BulkDensityFactor: s.BulkDensityFactor + densityIncreaseAtDepth*midFraction,
		}

		profile.Horizons = append(profile.Horizons, SoilHorizon{
			Name:              tpl.name,
			DepthStart:        start,
			DepthEnd:          end,
			Thickness:         end - start,
			OrganicMatterPct:  layer.OrganicMatterPct,
			BulkDensityFactor: layer.BulkDensityFactor,
			Water:             Compute(layer),
		})
	}

	profile.RootZoneAverages = rootZoneAverages(profile.Horizons, profile.RootZoneDepth)
	profile.RestrictiveLayer = findRestrictiveLayer(profile.Horizons, profile.RootZoneDepth)

	return profile, nil
}

// overlap returns the length of [start, end) inside [0, depth).
func overlap(h SoilHorizon, depth float64) float64 {
	return math.Max(0, math.Min(h.DepthEnd, depth)-h.DepthStart)
}

func rootZoneAverages(horizons []SoilHorizon, depth float64) RootZoneAverages {
	var avg RootZoneAverages
	var total float64
	for _, h := range horizons {
		w := overlap(h, depth)
		if w == 0 {
			continue
		}
		avg.FieldCapacityPct += h.Water.FieldCapacityPct * w
		avg.WiltingPointPct += h.Water.WiltingPointPct * w
		avg.PlantAvailableWaterPct += h.Water.PlantAvailableWaterPct * w
		total += w
	}
	if total == 0 {
		return RootZoneAverages{}
	}
	avg.FieldCapacityPct /= total
	avg.WiltingPointPct /= total
	avg.PlantAvailableWaterPct /= total
	return avg
}

// findRestrictiveLayer returns the first root-zone horizon, by depth, that drains slowly.
func findRestrictiveLayer(horizons []SoilHorizon, depth float64) *RestrictiveLayer {
	for _, h := range horizons {
		if overlap(h, depth) == 0 {
			continue
		}
		ks := h.Water.SaturatedConductivity
		if ks >= restrictiveKs {
			continue
		}
		severity := "moderate"
		if ks < severeRestrictiveKs {
			severity = "high"
		}
		return &RestrictiveLayer{
			Horizon:               h.Name,
			DepthStart:            h.DepthStart,
			SaturatedConductivity: ks,
			Severity:              severity,
		}
	}
	return nil
}
