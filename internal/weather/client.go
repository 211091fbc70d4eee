package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"flahasoil/internal/validation"
)

// DefaultRequestTimeout bounds a single provider request.
const DefaultRequestTimeout = 10 * time.Second

// ErrProviderNotConfigured is returned by a client that lacks credentials.
var ErrProviderNotConfigured = errors.New("weather provider not configured")

// Provider is a named weather data source
type Provider interface {
	Name() string
}

// CurrentProvider serves current conditions
type CurrentProvider interface {
	Provider
	Current(ctx context.Context, lat, lon float64) (*Observation, error)
}

// ForecastProvider serves daily forecasts
type ForecastProvider interface {
	Provider
	Forecast(ctx context.Context, lat, lon float64, days int) ([]ForecastDay, error)
}

// ET0Provider serves reference evapotranspiration directly
type ET0Provider interface {
	Provider
	ET0(ctx context.Context, lat, lon float64) (float64, error)
}

// StatusError is a non-2xx provider response
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Body)
}

// Unwrap lets errors.Is match validation.ErrUpstreamUnavailable.
func (e *StatusError) Unwrap() error {
	return validation.ErrUpstreamUnavailable
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

// getJSON performs a GET and decodes the JSON body into out. Client errors other than
// 408 and 429 are permanent.
func getJSON(ctx context.Context, client *http.Client, provider, endpoint string, query url.Values, header http.Header, out interface{}) error {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return permanent(fmt.Errorf("failed to build %s request: %w", provider, err))
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s request failed: %v", validation.ErrUpstreamUnavailable, provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		statusErr := &StatusError{Provider: provider, Code: resp.StatusCode, Body: string(b)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return permanent(statusErr)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", validation.ErrUpstreamUnavailable, provider, err)
	}
	return nil
}

func floatPtr(v float64) *float64 {
	return &v
}
