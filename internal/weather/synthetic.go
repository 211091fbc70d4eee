package weather

import (
	"time"
)

// syntheticObservation builds deterministic current conditions from the regional normals.
func syntheticObservation(lat, lon float64, at time.Time, note string) *Observation {
	zone := ClimateZoneFor(lat, lon)
	c := climatologies[zone]
	return &Observation{
		Latitude:     lat,
		Longitude:    lon,
		TemperatureC: c.meanTempC[monthIndex(lat, at)],
		HumidityPct:  c.humidityPct,
		PressureHPa:  1013.25,
		WindSpeedMS:  c.windSpeedMS,
		Condition:    ConditionClear,
		Description:  "regional climatological average (" + string(zone) + ")",
		ObservedAt:   at.UTC(),
		Provider:     ProviderSynthetic,
		Status:       StatusEstimated,
		Note:         note,
	}
}

// syntheticForecast builds deterministic daily values from the regional normals.
func syntheticForecast(lat, lon float64, days int, start time.Time, note string) *Forecast {
	zone := ClimateZoneFor(lat, lon)
	c := climatologies[zone]
	day0 := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	out := &Forecast{
		Latitude:  lat,
		Longitude: lon,
		Days:      make([]ForecastDay, 0, days),
		IssuedAt:  start.UTC(),
		Provider:  ProviderSynthetic,
		Status:    StatusEstimated,
		Note:      note,
	}
	for i := 0; i < days; i++ {
		date := day0.AddDate(0, 0, i)
		mean := c.meanTempC[monthIndex(lat, date)]
		out.Days = append(out.Days, ForecastDay{
			Date:        date,
			TempMinC:    mean - c.diurnalRange/2,
			TempMaxC:    mean + c.diurnalRange/2,
			HumidityPct: floatPtr(c.humidityPct),
			WindSpeedMS: floatPtr(c.windSpeedMS),
			Condition:   ConditionClear,
		})
	}
	return out
}

// climatologyEstimate returns the regional monthly normal as an ET0 estimate.
func climatologyEstimate(lat, lon float64, at time.Time, note string) *ET0Estimate {
	et0, zone := ClimatologicalET0(lat, lon, at)
	return &ET0Estimate{
		Latitude:  lat,
		Longitude: lon,
		Date:      time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		ET0:       et0,
		Method:    ET0MethodClimatology,
		Zone:      string(zone),
		Provider:  ProviderSynthetic,
		Status:    StatusEstimated,
		Note:      note,
	}
}
