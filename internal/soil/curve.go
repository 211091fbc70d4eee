package soil

import (
	"fmt"
	"math"
	"sort"

	"flahasoil/internal/validation"
)

const (
	fieldCapacityTension = 33.0
	wiltingPointTension  = 1500.0
	dryDecayScale        = 3000.0
)

// DefaultTensionPoints is the tension grid (kPa) used when the caller supplies none.
var DefaultTensionPoints = []float64{0, 10, 33, 100, 200, 500, 1000, 1500, 3000, 5000}

// GenerateCurve returns the moisture content at each tension point, in the order given.
// The curve is anchored at saturation, field capacity (33 kPa) and wilting point (1500 kPa).
func GenerateCurve(s SoilSample, tensionPoints []float64) []MoistureTensionPoint {
	r := computeRetention(s)

	points := make([]MoistureTensionPoint, 0, len(tensionPoints))
	for _, t := range tensionPoints {
		theta := moistureAt(r, t) * s.BulkDensityFactor
		if theta < 0 {
			theta = 0
		}
		points = append(points, MoistureTensionPoint{
			TensionKPa:         t,
			MoistureContentPct: theta * 100,
			TensionLog10:       tensionLog10(t),
		})
	}
	return points
}

// NormalizeTensionPoints validates tensions and returns a sorted copy without duplicates.
func NormalizeTensionPoints(tensionPoints []float64) ([]float64, error) {
	if len(tensionPoints) == 0 {
		out := make([]float64, len(DefaultTensionPoints))
		copy(out, DefaultTensionPoints)
		return out, nil
	}

	var c validation.Collector
	for i, t := range tensionPoints {
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			c.Add(fmt.Sprintf("tension_points[%d]", i), "OUT_OF_RANGE", "must be a finite tension >= 0, got %g", t)
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	out := make([]float64, len(tensionPoints))
	copy(out, tensionPoints)
	sort.Float64s(out)

	unique := out[:1]
	for _, t := range out[1:] {
		if t != unique[len(unique)-1] {
			unique = append(unique, t)
		}
	}
	return unique, nil
}

func moistureAt(r retention, tension float64) float64 {
	switch {
	case tension <= fieldCapacityTension:
		return r.thetaS - (r.thetaS-r.theta33)*math.Sqrt(math.Max(tension, 0)/fieldCapacityTension)
	case tension <= wiltingPointTension:
		frac := math.Log(tension/fieldCapacityTension) / math.Log(wiltingPointTension/fieldCapacityTension)
		return r.theta33 - (r.theta33-r.theta1500)*frac
	default:
		return r.theta1500 * math.Exp(-(tension-wiltingPointTension)/dryDecayScale)
	}
}

// tensionLog10 reports 0 for a zero tension instead of -Inf.
func tensionLog10(t float64) float64 {
	if t <= 0 {
		return 0
	}
	return math.Log10(t)
}
