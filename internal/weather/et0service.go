package weather

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ET0ServiceClient reads daily reference evapotranspiration from a dedicated ET0 API
type ET0ServiceClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewET0ServiceClient creates a new ET0 service client
func NewET0ServiceClient(baseURL, apiKey string, timeout time.Duration) *ET0ServiceClient {
	return &ET0ServiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
	}
}

// Name returns the provider name
func (c *ET0ServiceClient) Name() string {
	return ProviderET0Service
}

type et0Response struct {
	ET0  *float64 `json:"et0"`
	Unit string   `json:"unit"`
}

// ET0 fetches today's reference evapotranspiration in mm/day
func (c *ET0ServiceClient) ET0(ctx context.Context, lat, lon float64) (float64, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return 0, permanent(fmt.Errorf("%s: %w", ProviderET0Service, ErrProviderNotConfigured))
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))
	header := http.Header{}
	header.Set("X-API-Key", c.apiKey)

	var raw et0Response
	if err := getJSON(ctx, c.client, ProviderET0Service, c.baseURL+"/et0", q, header, &raw); err != nil {
		return 0, err
	}
	if raw.ET0 == nil {
		return 0, fmt.Errorf("%s: response has no et0 value", ProviderET0Service)
	}
	v := *raw.ET0
	if strings.EqualFold(raw.Unit, "in/day") {
		v *= 25.4
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%s: invalid et0 value %v", ProviderET0Service, v)
	}
	return v, nil
}
