package salt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flahasoil/internal/validation"
)

func ptr(v float64) *float64 { return &v }

func TestLeachingRequirementGulfSummer(t *testing.T) {
	res, err := CalculateLeachingRequirement(LeachingInput{
		SoilEC:          4,
		WaterEC:         2,
		CropThresholdEC: 3,
		ClimateZone:     ZoneGCCArid,
		Season:          SeasonSummer,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.1538, res.BaseLeachingFraction, 1e-4)
	assert.Equal(t, 1.3, res.ClimateFactor)
	assert.Equal(t, 1.4, res.SeasonalFactor)
	assert.Equal(t, 1.0, res.EnvironmentalFactor)
	assert.InDelta(t, 0.280, res.LeachingFraction, 1e-3)
	assert.False(t, res.Capped)

	assert.Equal(t, DefaultCropWaterNeedMM, res.CropWaterNeedMM)
	assert.InDelta(t, 25/(1-res.LeachingFraction), res.IrrigationDepthMM, 1e-9)
	assert.InDelta(t, res.IrrigationDepthMM-25, res.LeachingDepthMM, 1e-9)
	assert.InDelta(t, res.IrrigationDepthMM*10, res.TotalWaterNeedM3, 1e-9)
	assert.Equal(t, FrequencyWeekly, res.LeachingFrequency)

	e := res.Economics
	assert.InDelta(t, res.LeachingDepthMM*10*DefaultWaterPriceUSDPerM3, e.ExtraWaterCostUSD, 1e-9)
	assert.Equal(t, 4.0, e.ProjectedSoilEC)
	assert.InDelta(t, 10.0, e.YieldLossAvoidedPct, 1e-9)
	assert.InDelta(t, 500.0, e.DamageAvoidedUSD, 1e-9)
	assert.Equal(t, EconomicallyBeneficial, e.Recommendation)
}

func TestLeachingRequirementRejectsSalineWater(t *testing.T) {
	for _, waterEC := range []float64{15, 20} {
		_, err := CalculateLeachingRequirement(LeachingInput{SoilEC: 4, WaterEC: waterEC, CropThresholdEC: 3})

		require.Error(t, err)
		assert.True(t, errors.Is(err, validation.ErrInvalidInput))
		fields := validation.Fields(err)
		require.Len(t, fields, 1)
		assert.Equal(t, "water_ec", fields[0].Field)
		assert.Equal(t, "WATER_TOO_SALINE", fields[0].Code)
		assert.Contains(t, fields[0].Message, "too saline")
	}
}

func TestLeachingRequirementCapsFraction(t *testing.T) {
	res, err := CalculateLeachingRequirement(LeachingInput{SoilEC: 4, WaterEC: 14.9, CropThresholdEC: 3})
	require.NoError(t, err)

	assert.Equal(t, MaxLeachingFraction, res.LeachingFraction)
	assert.True(t, res.Capped)
	assert.Equal(t, FrequencyEveryIrrigation, res.LeachingFrequency)
	assert.InDelta(t, 50.0, res.IrrigationDepthMM, 1e-9)
}

func TestLeachingEnvironmentalFactors(t *testing.T) {
	res, err := CalculateLeachingRequirement(LeachingInput{
		SoilEC:           2,
		WaterEC:          1,
		CropThresholdEC:  3,
		ClimateZone:      ZoneMENAMediterranean,
		Season:           SeasonWinter,
		TemperatureC:     ptr(40),
		HumidityPct:      ptr(10),
		EvaporationMMDay: ptr(10),
		FieldAreaHa:      ptr(2),
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.1*1.05*1.15, res.EnvironmentalFactor, 1e-12)
	assert.InDelta(t, (1.0/14)*1.1*0.8*1.1*1.05*1.15, res.LeachingFraction, 1e-12)
	assert.InDelta(t, res.IrrigationDepthMM*20, res.TotalWaterNeedM3, 1e-9)
	// soil and water are below the crop threshold, so leaching avoids no damage
	assert.Zero(t, res.Economics.DamageAvoidedUSD)
	assert.Equal(t, MonitorClosely, res.Economics.Recommendation)
}

func TestLeachingFrequency(t *testing.T) {
	assert.Equal(t, FrequencyEveryIrrigation, leachingFrequency(0.31))
	assert.Equal(t, FrequencyWeekly, leachingFrequency(0.2))
	assert.Equal(t, FrequencyBiweekly, leachingFrequency(0.1))
	assert.Equal(t, FrequencyMonthly, leachingFrequency(0.05))
}

func TestLeachingValidation(t *testing.T) {
	_, err := CalculateLeachingRequirement(LeachingInput{
		SoilEC:          60,
		WaterEC:         -1,
		CropThresholdEC: 30,
		ClimateZone:     "tropical",
		Season:          "monsoon",
	})

	require.Error(t, err)
	var fields []string
	for _, f := range validation.Fields(err) {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"soil_ec", "water_ec", "crop_threshold_ec", "climate_zone", "season"}, fields)
}

func TestLeachingRejectsNonFiniteInput(t *testing.T) {
	_, err := CalculateLeachingRequirement(LeachingInput{
		SoilEC:          4,
		WaterEC:         math.NaN(),
		CropThresholdEC: 3,
		TemperatureC:    ptr(math.Inf(1)),
	})

	require.ErrorIs(t, err, validation.ErrInvalidInput)
	fields := validation.Fields(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "water_ec", fields[0].Field)
	assert.Equal(t, "NOT_FINITE", fields[0].Code)
	assert.Equal(t, "temperature_c", fields[1].Field)
}
