package weather

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultNOAAURL is the api.weather.gov root.
const DefaultNOAAURL = "https://api.weather.gov"

const defaultNOAAUserAgent = "flahasoil (support@flahasoil.local)"

// NOAAClient reads observations and forecasts from the US National Weather Service API
type NOAAClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNOAAClient creates a new NOAA client. The API requires a User-Agent identifying the caller.
func NewNOAAClient(baseURL, userAgent string, timeout time.Duration) *NOAAClient {
	if baseURL == "" {
		baseURL = DefaultNOAAURL
	}
	if userAgent == "" {
		userAgent = defaultNOAAUserAgent
	}
	return &NOAAClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (c *NOAAClient) Name() string {
	return ProviderNOAA
}

type noaaValue struct {
	Value    *float64 `json:"value"`
	UnitCode string   `json:"unitCode"`
}

type noaaPoint struct {
	Properties struct {
		Forecast            string `json:"forecast"`
		ObservationStations string `json:"observationStations"`
	} `json:"properties"`
}

type noaaStations struct {
	Features []struct {
		ID string `json:"id"`
	} `json:"features"`
}

type noaaObservation struct {
	Properties struct {
		Timestamp             time.Time `json:"timestamp"`
		TextDescription       string    `json:"textDescription"`
		Temperature           noaaValue `json:"temperature"`
		RelativeHumidity      noaaValue `json:"relativeHumidity"`
		BarometricPressure    noaaValue `json:"barometricPressure"`
		WindSpeed             noaaValue `json:"windSpeed"`
		PrecipitationLastHour noaaValue `json:"precipitationLastHour"`
	} `json:"properties"`
}

type noaaPeriod struct {
	StartTime                  string    `json:"startTime"`
	IsDaytime                  bool      `json:"isDaytime"`
	Temperature                float64   `json:"temperature"`
	TemperatureUnit            string    `json:"temperatureUnit"`
	WindSpeed                  string    `json:"windSpeed"`
	ShortForecast              string    `json:"shortForecast"`
	ProbabilityOfPrecipitation noaaValue `json:"probabilityOfPrecipitation"`
	RelativeHumidity           noaaValue `json:"relativeHumidity"`
}

type noaaForecast struct {
	Properties struct {
		Periods []noaaPeriod `json:"periods"`
	} `json:"properties"`
}

func (c *NOAAClient) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", c.userAgent)
	h.Set("Accept", "application/geo+json")
	return h
}

func (c *NOAAClient) point(ctx context.Context, lat, lon float64) (*noaaPoint, error) {
	var p noaaPoint
	endpoint := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lon)
	if err := getJSON(ctx, c.client, ProviderNOAA, endpoint, nil, c.header(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Current resolves the nearest station for the point and returns its latest observation
func (c *NOAAClient) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	p, err := c.point(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if p.Properties.ObservationStations == "" {
		return nil, permanent(fmt.Errorf("%s: no observation stations for %.4f,%.4f", ProviderNOAA, lat, lon))
	}

	var stations noaaStations
	if err := getJSON(ctx, c.client, ProviderNOAA, p.Properties.ObservationStations, nil, c.header(), &stations); err != nil {
		return nil, err
	}
	if len(stations.Features) == 0 {
		return nil, permanent(fmt.Errorf("%s: no observation stations for %.4f,%.4f", ProviderNOAA, lat, lon))
	}

	var raw noaaObservation
	endpoint := strings.TrimRight(stations.Features[0].ID, "/") + "/observations/latest"
	if err := getJSON(ctx, c.client, ProviderNOAA, endpoint, nil, c.header(), &raw); err != nil {
		return nil, err
	}
	obs := normalizeNOAAObservation(raw)
	obs.Latitude, obs.Longitude = lat, lon
	return obs, nil
}

// Forecast returns daily forecasts built from the day and night periods
func (c *NOAAClient) Forecast(ctx context.Context, lat, lon float64, days int) ([]ForecastDay, error) {
	p, err := c.point(ctx, lat, lon)
	if err != nil {
		return nil, err
	}
	if p.Properties.Forecast == "" {
		return nil, permanent(fmt.Errorf("%s: no forecast office for %.4f,%.4f", ProviderNOAA, lat, lon))
	}

	var raw noaaForecast
	if err := getJSON(ctx, c.client, ProviderNOAA, p.Properties.Forecast, nil, c.header(), &raw); err != nil {
		return nil, err
	}
	out := foldNOAAPeriods(raw.Properties.Periods)
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty forecast", ProviderNOAA)
	}
	if len(out) > days {
		out = out[:days]
	}
	return out, nil
}

func normalizeNOAAObservation(raw noaaObservation) *Observation {
	props := raw.Properties
	obs := &Observation{
		Condition:   noaaConditionFor(props.TextDescription),
		Description: props.TextDescription,
		ObservedAt:  props.Timestamp.UTC(),
		Provider:    ProviderNOAA,
	}
	if v := props.Temperature.Value; v != nil {
		obs.TemperatureC = *v
		if strings.HasSuffix(props.Temperature.UnitCode, "degF") {
			obs.TemperatureC = fahrenheitToCelsius(*v)
		}
	}
	if v := props.RelativeHumidity.Value; v != nil {
		obs.HumidityPct = *v
	}
	if v := props.BarometricPressure.Value; v != nil {
		obs.PressureHPa = *v / 100
	}
	if v := props.WindSpeed.Value; v != nil {
		obs.WindSpeedMS = noaaSpeedToMS(*v, props.WindSpeed.UnitCode)
	}
	if v := props.PrecipitationLastHour.Value; v != nil {
		obs.PrecipitationMM = *v
	}
	return obs
}

// foldNOAAPeriods pairs day and night periods by their local calendar date.
func foldNOAAPeriods(periods []noaaPeriod) []ForecastDay {
	var out []ForecastDay
	index := make(map[string]int)
	for _, p := range periods {
		start, err := time.Parse(time.RFC3339, p.StartTime)
		if err != nil {
			continue
		}
		key := start.Format("2006-01-02")
		temp := p.Temperature
		if strings.EqualFold(p.TemperatureUnit, "F") {
			temp = fahrenheitToCelsius(temp)
		}

		i, ok := index[key]
		if !ok {
			out = append(out, ForecastDay{
				Date:      time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
				TempMinC:  temp,
				TempMaxC:  temp,
				Condition: ConditionUnknown,
			})
			i = len(out) - 1
			index[key] = i
		}
		day := &out[i]
		if temp < day.TempMinC {
			day.TempMinC = temp
		}
		if temp > day.TempMaxC {
			day.TempMaxC = temp
		}
		day.Condition = worse(day.Condition, noaaConditionFor(p.ShortForecast))
		if v := p.RelativeHumidity.Value; v != nil {
			day.HumidityPct = floatPtr(*v)
		}
		if ws, ok := parseNOAAWind(p.WindSpeed); ok && p.IsDaytime {
			day.WindSpeedMS = floatPtr(ws)
		}
	}
	return out
}

var windNumber = regexp.MustCompile(`\d+(\.\d+)?`)

// parseNOAAWind reads strings such as "10 mph" or "5 to 15 mph" and returns the mean in m/s.
func parseNOAAWind(s string) (float64, bool) {
	matches := windNumber.FindAllString(s, -1)
	if len(matches) == 0 {
		return 0, false
	}
	var sum float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		sum += v
	}
	mean := sum / float64(len(matches))
	if strings.Contains(strings.ToLower(s), "km/h") {
		return mean / 3.6, true
	}
	return mean * 0.44704, true
}

func noaaSpeedToMS(v float64, unit string) float64 {
	switch {
	case strings.HasSuffix(unit, "km_h-1"):
		return v / 3.6
	case strings.HasSuffix(unit, "mi_h-1"):
		return v * 0.44704
	case strings.HasSuffix(unit, "kt"):
		return v * 0.514444
	default:
		return v
	}
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// noaaConditionFor maps NWS text descriptions to a Condition by keyword.
func noaaConditionFor(text string) Condition {
	t := strings.ToLower(text)
	switch {
	case t == "":
		return ConditionUnknown
	case strings.Contains(t, "thunder"):
		return ConditionStorm
	case strings.Contains(t, "snow"), strings.Contains(t, "sleet"), strings.Contains(t, "ice"):
		return ConditionSnow
	case strings.Contains(t, "rain"), strings.Contains(t, "shower"), strings.Contains(t, "drizzle"):
		return ConditionRain
	case strings.Contains(t, "fog"), strings.Contains(t, "haze"), strings.Contains(t, "smoke"):
		return ConditionFog
	case strings.Contains(t, "cloud"), strings.Contains(t, "overcast"):
		return ConditionCloudy
	case strings.Contains(t, "clear"), strings.Contains(t, "sunny"), strings.Contains(t, "fair"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}
