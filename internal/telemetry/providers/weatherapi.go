package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/calloff/internal/telemetry"
	"github.com/sony/gobreaker"
)

// WeatherAPIProvider implements telemetry.WeatherProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		httpCfg: newHTTPConfig(client),
		circuit: newBreaker("weatherapi"),
	}
}

// SetBaseURL overrides the endpoint for testing.
func (p *WeatherAPIProvider) SetBaseURL(u string) {
	p.baseURL = u
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Current(ctx context.Context, airport telemetry.Airport) (telemetry.Weather, error) {
	if p.apiKey == "" {
		return telemetry.Weather{}, fmt.Errorf("weatherapi: %w", errMissingKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// WeatherAPI uses "q" for location; "lat,lon" avoids ambiguous airport names.
		values.Set("q", fmt.Sprintf("%f,%f", airport.Lat, airport.Lon))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	var payload struct {
		Current struct {
			TempF     *float64 `json:"temp_f"`
			VisMiles  *float64 `json:"vis_miles"`
			Condition struct {
				Text string `json:"text"`
			} `json:"condition"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return telemetry.Weather{}, err
	}

	cur := payload.Current
	if cur.TempF == nil || cur.VisMiles == nil {
		return telemetry.Weather{}, fmt.Errorf("weatherapi: %w", errIncomplete)
	}

	return telemetry.Weather{
		Summary:         strings.TrimSpace(cur.Condition.Text),
		TemperatureF:    *cur.TempF,
		VisibilityMiles: *cur.VisMiles,
		ProviderName:    p.name,
	}, nil
}
