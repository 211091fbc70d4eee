// Package weather normalizes observations, forecasts and reference evapotranspiration
// from several providers into one schema, degrading to estimates when providers fail.
package weather

import (
	"time"
)

// Provider names in their fixed fallback order.
const (
	ProviderOpenWeather = "openweathermap"
	ProviderNOAA        = "noaa"
	ProviderET0Service  = "et0service"
	ProviderSynthetic   = "synthetic"
)

// FallbackOrder is the order in which providers are tried after the preferred one.
var FallbackOrder = []string{ProviderOpenWeather, ProviderNOAA, ProviderET0Service}

// Status tags the confidence of a normalized result
type Status string

const (
	// StatusExact means the preferred provider answered live.
	StatusExact Status = "exact"
	// StatusFallback means another live provider answered.
	StatusFallback Status = "fallback"
	// StatusEstimated means the value was computed or synthesized.
	StatusEstimated Status = "estimated"
)

// Condition represents a normalized sky condition
type Condition string

const (
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
	ConditionFog     Condition = "fog"
	ConditionUnknown Condition = "unknown"
)

var conditionSeverity = map[Condition]int{
	ConditionUnknown: 0,
	ConditionClear:   1,
	ConditionCloudy:  2,
	ConditionFog:     3,
	ConditionRain:    4,
	ConditionSnow:    5,
	ConditionStorm:   6,
}

// worse returns the more severe of two conditions.
func worse(a, b Condition) Condition {
	if conditionSeverity[b] > conditionSeverity[a] {
		return b
	}
	return a
}

// Observation represents current conditions at a location
type Observation struct {
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	TemperatureC    float64   `json:"temperature_c"`
	HumidityPct     float64   `json:"humidity_pct"`
	PressureHPa     float64   `json:"pressure_hpa"`
	WindSpeedMS     float64   `json:"wind_speed_ms"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	CloudCoverPct   *float64  `json:"cloud_cover_pct,omitempty"`
	Condition       Condition `json:"condition"`
	Description     string    `json:"description,omitempty"`
	ObservedAt      time.Time `json:"observed_at"`
	Provider        string    `json:"provider"`
	Status          Status    `json:"status"`
	Note            string    `json:"note,omitempty"`
}

// ForecastDay represents one forecast day. Humidity and wind are optional because
// not every provider reports them per day.
type ForecastDay struct {
	Date            time.Time `json:"date"`
	TempMinC        float64   `json:"temp_min_c"`
	TempMaxC        float64   `json:"temp_max_c"`
	HumidityPct     *float64  `json:"humidity_pct,omitempty"`
	WindSpeedMS     *float64  `json:"wind_speed_ms,omitempty"`
	PrecipitationMM float64   `json:"precipitation_mm"`
	Condition       Condition `json:"condition"`
}

// Forecast represents a normalized multi-day forecast
type Forecast struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Days      []ForecastDay `json:"days"`
	IssuedAt  time.Time     `json:"issued_at"`
	Provider  string        `json:"provider"`
	Status    Status        `json:"status"`
	Note      string        `json:"note,omitempty"`
}

// ET0Method names how a reference evapotranspiration value was obtained
type ET0Method string

const (
	ET0MethodProvider       ET0Method = "provider"
	ET0MethodPenmanMonteith ET0Method = "penman_monteith"
	ET0MethodHargreaves     ET0Method = "hargreaves"
	ET0MethodClimatology    ET0Method = "climatology"
)

// ET0Estimate represents a daily reference evapotranspiration value in mm/day
type ET0Estimate struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Date      time.Time `json:"date"`
	ET0       float64   `json:"et0_mm_day"`
	Method    ET0Method `json:"method"`
	Zone      string    `json:"climate_zone"`
	Provider  string    `json:"provider"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"`
}
