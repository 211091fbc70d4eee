package irrigation

import (
	"context"
	"errors"
	"fmt"
	"math"

	"flahasoil/internal/validation"
)

// FallbackPeriodCount is the number of generic periods used when no schedule matches.
const FallbackPeriodCount = 4

// KcQuery identifies the crop, context and growth position to resolve a Kc for.
// Either Stage or DaysAfterPlanting must be set; Stage wins when both are.
type KcQuery struct {
	CropID            string
	ClimateZone       ClimateZone
	IrrigationMethod  Method
	Stage             string
	BBCHCode          *int
	DaysAfterPlanting *int
	// WindSpeed (m/s at 2 m) and RHMin (%) enable the FAO-56 climatic adjustment.
	WindSpeed *float64
	RHMin     *float64
}

// KcResolver looks up crop coefficients with an explicit degradation tag
type KcResolver struct {
	repo KcRepository
}

// NewKcResolver creates a new Kc resolver
func NewKcResolver(repo KcRepository) *KcResolver {
	return &KcResolver{repo: repo}
}

// Crop returns the catalogue entry of a crop.
func (r *KcResolver) Crop(ctx context.Context, cropID string) (*Crop, error) {
	return r.repo.GetCrop(ctx, cropID)
}

// Resolve returns the Kc for the query. A missing schedule is not an error: the first
// generic periods of the crop are used and the result is tagged as a fallback. Only an
// unknown crop fails, with validation.ErrNotFound.
func (r *KcResolver) Resolve(ctx context.Context, q KcQuery) (*KcResolution, error) {
	crop, err := r.repo.GetCrop(ctx, q.CropID)
	if err != nil {
		return nil, err
	}

	stage := q.Stage
	if stage == "" && q.BBCHCode != nil {
		s, ok := crop.StageForBBCH(*q.BBCHCode)
		if !ok {
			var c validation.Collector
			c.Add("bbch_code", "OUT_OF_RANGE", "no growth stage of %s covers BBCH %d", crop.ID, *q.BBCHCode)
			return nil, c.Err()
		}
		stage = s.Name
	}
	if stage == "" && q.DaysAfterPlanting == nil {
		var c validation.Collector
		c.Add("growth_stage", "REQUIRED", "growth stage, BBCH code or days after planting is required")
		return nil, c.Err()
	}

	res := &KcResolution{Status: StatusExact, CropID: crop.ID}

	var periods []KcPeriod
	schedule, err := r.repo.GetKcSchedule(ctx, crop.ID, q.ClimateZone, q.IrrigationMethod)
	switch {
	case err == nil:
		periods = schedule.Periods
	case errors.Is(err, validation.ErrNotFound):
		periods, err = r.repo.ListKcPeriods(ctx, crop.ID, FallbackPeriodCount)
		if err != nil {
			return nil, fmt.Errorf("failed to load generic kc periods: %w", err)
		}
		res.Status = StatusFallback
		res.Note = fmt.Sprintf("no Kc schedule for %s in %s with %s irrigation; generic FAO-56 periods used",
			crop.ID, q.ClimateZone, q.IrrigationMethod)
	default:
		return nil, fmt.Errorf("failed to load kc schedule: %w", err)
	}

	period, ok := selectPeriod(periods, stage, q.DaysAfterPlanting)
	if !ok {
		var c validation.Collector
		c.Add("growth_stage", "UNSUPPORTED_VALUE", "%s has no %q period", crop.ID, stage)
		return nil, c.Err()
	}
	res.Period = period
	res.Kc = period.KcValue

	if q.WindSpeed != nil && q.RHMin != nil && (period.Stage == StageMid || period.Stage == StageLate) && period.KcValue > 0.45 {
		res.Kc = AdjustKcForClimate(period.KcValue, *q.WindSpeed, *q.RHMin, crop.PlantHeightM)
		res.ClimateAdjusted = true
		if res.Status == StatusExact {
			res.Status = StatusEstimated
		}
		note := fmt.Sprintf("Kc adjusted for wind %.1f m/s and RHmin %.0f%%", *q.WindSpeed, *q.RHMin)
		if res.Note != "" {
			note = res.Note + "; " + note
		}
		res.Note = note
	}

	return res, nil
}

// selectPeriod picks the period by stage name, or by day when no stage is given.
// Days past the last period map to the last period.
func selectPeriod(periods []KcPeriod, stage string, days *int) (KcPeriod, bool) {
	if len(periods) == 0 {
		return KcPeriod{}, false
	}
	if stage != "" {
		for _, p := range periods {
			if p.Stage == stage {
				return p, true
			}
		}
		return KcPeriod{}, false
	}
	for _, p := range periods {
		if *days >= p.PeriodStartDays && *days < p.PeriodEndDays {
			return p, true
		}
	}
	if *days < periods[0].PeriodStartDays {
		return periods[0], true
	}
	return periods[len(periods)-1], true
}

// AdjustKcForClimate applies FAO-56 equation 62 to a mid or late season Kc.
// Wind, humidity and height are clamped to the ranges the equation was fitted on.
func AdjustKcForClimate(kc, windSpeed, rhMin, plantHeightM float64) float64 {
	u2 := clamp(windSpeed, 1, 6)
	rh := clamp(rhMin, 20, 80)
	h := clamp(plantHeightM, 0.1, 10)
	return kc + (0.04*(u2-2)-0.004*(rh-45))*math.Pow(h/3, 0.3)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
