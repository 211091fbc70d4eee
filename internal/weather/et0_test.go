package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtraterrestrialRadiation(t *testing.T) {
	// 20 degrees south on 3 September
	assert.InDelta(t, 32.2, ExtraterrestrialRadiation(-20, 246), 0.1)

	// polar night
	assert.Equal(t, 0.0, ExtraterrestrialRadiation(80, 355))

	summer := ExtraterrestrialRadiation(45, 172)
	winter := ExtraterrestrialRadiation(45, 355)
	assert.Greater(t, summer, winter)
}

func TestHargreaves(t *testing.T) {
	ra := ExtraterrestrialRadiation(24.5, 196)
	assert.InDelta(t, 7.69, Hargreaves(30, 44, ra), 0.01)
	assert.Equal(t, 0.0, Hargreaves(30, 30, ra))
	assert.Equal(t, 0.0, Hargreaves(35, 30, ra))
}

func TestPenmanMonteith(t *testing.T) {
	ra := ExtraterrestrialRadiation(24.5, 196)

	base := PenmanMonteith(30, 44, 30, 4, ra)
	assert.InDelta(t, 9.73, base, 0.01)

	assert.Less(t, PenmanMonteith(30, 44, 30, 1, ra), base, "calmer air evaporates less")
	assert.Less(t, PenmanMonteith(30, 44, 80, 4, ra), base, "humid air evaporates less")
	assert.GreaterOrEqual(t, PenmanMonteith(-5, -1, 95, 0, ExtraterrestrialRadiation(60, 355)), 0.0)
}

func TestEstimateET0_MethodSelection(t *testing.T) {
	day := DailyWeather{
		Date:     time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC),
		Latitude: 24.5,
		TempMinC: 30,
		TempMaxC: 44,
	}

	v, method := EstimateET0(day)
	assert.Equal(t, ET0MethodHargreaves, method)
	assert.InDelta(t, 7.69, v, 0.01)

	day.HumidityPct = floatPtr(30)
	_, method = EstimateET0(day)
	assert.Equal(t, ET0MethodHargreaves, method, "wind is still missing")

	day.WindSpeedMS = floatPtr(4)
	v, method = EstimateET0(day)
	assert.Equal(t, ET0MethodPenmanMonteith, method)
	assert.InDelta(t, 9.73, v, 0.01)
}
