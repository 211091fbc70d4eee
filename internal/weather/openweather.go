package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherClient reads current conditions and the 5-day/3-hour forecast from OpenWeatherMap
type OpenWeatherClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewOpenWeatherClient creates a new OpenWeatherMap client
func NewOpenWeatherClient(baseURL, apiKey string, timeout time.Duration) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	return &OpenWeatherClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (c *OpenWeatherClient) Name() string {
	return ProviderOpenWeather
}

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmCurrent struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds *struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain *struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Snow *struct {
		OneHour float64 `json:"1h"`
	} `json:"snow"`
	Weather []owmCondition `json:"weather"`
}

type owmForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Rain *struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
	Weather []owmCondition `json:"weather"`
}

type owmForecast struct {
	List []owmForecastEntry `json:"list"`
}

func (c *OpenWeatherClient) query(lat, lon float64) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)
	return q
}

// Current fetches current conditions
func (c *OpenWeatherClient) Current(ctx context.Context, lat, lon float64) (*Observation, error) {
	if c.apiKey == "" {
		return nil, permanent(fmt.Errorf("%s: %w", ProviderOpenWeather, ErrProviderNotConfigured))
	}
	var raw owmCurrent
	if err := getJSON(ctx, c.client, ProviderOpenWeather, c.baseURL+"/weather", c.query(lat, lon), nil, &raw); err != nil {
		return nil, err
	}
	obs := normalizeOWMCurrent(raw)
	obs.Latitude, obs.Longitude = lat, lon
	return obs, nil
}

// Forecast fetches up to five days of 3-hourly forecasts and folds them into days
func (c *OpenWeatherClient) Forecast(ctx context.Context, lat, lon float64, days int) ([]ForecastDay, error) {
	if c.apiKey == "" {
		return nil, permanent(fmt.Errorf("%s: %w", ProviderOpenWeather, ErrProviderNotConfigured))
	}
	q := c.query(lat, lon)
	q.Set("cnt", strconv.Itoa(days*8))

	var raw owmForecast
	if err := getJSON(ctx, c.client, ProviderOpenWeather, c.baseURL+"/forecast", q, nil, &raw); err != nil {
		return nil, err
	}
	if len(raw.List) == 0 {
		return nil, fmt.Errorf("%s: empty forecast", ProviderOpenWeather)
	}
	out := foldOWMForecast(raw.List)
	if len(out) > days {
		out = out[:days]
	}
	return out, nil
}

func normalizeOWMCurrent(raw owmCurrent) *Observation {
	obs := &Observation{
		TemperatureC: raw.Main.Temp,
		HumidityPct:  raw.Main.Humidity,
		PressureHPa:  raw.Main.Pressure,
		WindSpeedMS:  raw.Wind.Speed,
		Condition:    ConditionUnknown,
		ObservedAt:   time.Unix(raw.Dt, 0).UTC(),
		Provider:     ProviderOpenWeather,
	}
	if raw.Clouds != nil {
		obs.CloudCoverPct = floatPtr(raw.Clouds.All)
	}
	if raw.Rain != nil {
		obs.PrecipitationMM += raw.Rain.OneHour
	}
	if raw.Snow != nil {
		obs.PrecipitationMM += raw.Snow.OneHour
	}
	if len(raw.Weather) > 0 {
		obs.Condition = owmConditionFor(raw.Weather[0].ID)
		obs.Description = raw.Weather[0].Description
	}
	return obs
}

// foldOWMForecast groups 3-hour entries by UTC date.
func foldOWMForecast(entries []owmForecastEntry) []ForecastDay {
	type acc struct {
		day      ForecastDay
		humSum   float64
		windSum  float64
		readings int
	}
	byDate := make(map[time.Time]*acc)
	for _, e := range entries {
		t := time.Unix(e.Dt, 0).UTC()
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		a, ok := byDate[date]
		if !ok {
			a = &acc{day: ForecastDay{
				Date:      date,
				TempMinC:  e.Main.TempMin,
				TempMaxC:  e.Main.TempMax,
				Condition: ConditionUnknown,
			}}
			byDate[date] = a
		}
		if e.Main.TempMin < a.day.TempMinC {
			a.day.TempMinC = e.Main.TempMin
		}
		if e.Main.TempMax > a.day.TempMaxC {
			a.day.TempMaxC = e.Main.TempMax
		}
		if e.Rain != nil {
			a.day.PrecipitationMM += e.Rain.ThreeHour
		}
		for _, w := range e.Weather {
			a.day.Condition = worse(a.day.Condition, owmConditionFor(w.ID))
		}
		a.humSum += e.Main.Humidity
		a.windSum += e.Wind.Speed
		a.readings++
	}

	out := make([]ForecastDay, 0, len(byDate))
	for _, a := range byDate {
		a.day.HumidityPct = floatPtr(a.humSum / float64(a.readings))
		a.day.WindSpeedMS = floatPtr(a.windSum / float64(a.readings))
		out = append(out, a.day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// owmConditionFor maps OpenWeatherMap condition codes to a Condition.
func owmConditionFor(id int) Condition {
	switch {
	case id >= 200 && id < 300:
		return ConditionStorm
	case id >= 300 && id < 600:
		return ConditionRain
	case id >= 600 && id < 700:
		return ConditionSnow
	case id >= 700 && id < 800:
		return ConditionFog
	case id == 800:
		return ConditionClear
	case id > 800 && id < 900:
		return ConditionCloudy
	default:
		return ConditionUnknown
	}
}
