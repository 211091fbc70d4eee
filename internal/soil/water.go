package soil

import "math"

const (
	// minSandForLog keeps the saturation log term inside its domain.
	minSandForLog = 0.1
	// ksCoefficient scales the drainable porosity cube into mm/hr.
	ksCoefficient = 1930.0
)

// retention holds volumetric water contents (m3/m3) before density scaling
type retention struct {
	theta33     float64
	theta1500   float64
	thetaS      float64
	adjustments []string
}

// Compute derives the water characteristics of a sample using the Saxton-Rawls
// pedotransfer regressions. Inputs are not validated here; see SoilSample.Validate.
func Compute(s SoilSample) WaterCharacteristics {
	r := computeRetention(s)
	bd := s.BulkDensityFactor

	fc := r.theta33 * bd * 100
	wp := r.theta1500 * bd * 100

	ks := ksCoefficient * math.Pow(r.thetaS-r.theta33, 3)
	if ks < 0 {
		ks = 0
		r.adjustments = append(r.adjustments, "saturated conductivity clamped at 0")
	}

	return WaterCharacteristics{
		FieldCapacityPct:       fc,
		WiltingPointPct:        wp,
		PlantAvailableWaterPct: fc - wp,
		SaturationPct:          r.thetaS * bd * 100,
		SaturatedConductivity:  ks,
		TextureClass:           ClassifyTexture(s.SandPct, s.ClayPct),
		Adjustments:            r.adjustments,
	}
}

func computeRetention(s SoilSample) retention {
	S := s.SandPct / 100
	C := s.ClayPct / 100
	OM := s.OrganicMatterPct / 100

	var r retention

	t1500 := -0.024*S + 0.487*C + 0.006*OM + 0.005*(S*OM) - 0.013*(C*OM) + 0.068*(S*C) + 0.031
	r.theta1500 = t1500 + (0.14*t1500 - 0.02)

	t33 := -0.251*S + 0.195*C + 0.011*OM + 0.006*(S*OM) - 0.027*(C*OM) + 0.452*(S*C) + 0.299
	r.theta33 = t33 + (1.283*t33*t33 - 0.374*t33 - 0.015)

	sand := s.SandPct
	if sand < minSandForLog {
		sand = minSandForLog
		r.adjustments = append(r.adjustments, "sand below 0.1% clamped for saturation estimate")
	}
	r.thetaS = 0.332 - 7.251e-4*sand + 0.1276*math.Log10(sand)

	if r.theta1500 < 0 {
		r.theta1500 = 0
		r.adjustments = append(r.adjustments, "wilting point clamped at 0")
	}
	if r.theta33 < 0 {
		r.theta33 = 0
		r.adjustments = append(r.adjustments, "field capacity clamped at 0")
	}
	if r.theta33 < r.theta1500 {
		r.theta1500 = r.theta33
		r.adjustments = append(r.adjustments, "wilting point capped at field capacity")
	}
	if r.thetaS < r.theta33 {
		r.thetaS = r.theta33
		r.adjustments = append(r.adjustments, "saturation raised to field capacity")
	}

	return r
}
