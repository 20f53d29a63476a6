package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/calloff/internal/telemetry"
	"github.com/sony/gobreaker"
)

// OpenWeatherProvider implements telemetry.WeatherProvider for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: newHTTPConfig(client),
		circuit: newBreaker("openweather"),
	}
}

// SetBaseURL overrides the endpoint for testing.
func (p *OpenWeatherProvider) SetBaseURL(u string) {
	p.baseURL = u
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Current(ctx context.Context, airport telemetry.Airport) (telemetry.Weather, error) {
	if p.apiKey == "" {
		return telemetry.Weather{}, fmt.Errorf("openweather: %w", errMissingKey)
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", p.apiKey)
		values.Set("units", "imperial")
		values.Set("lat", fmt.Sprintf("%f", airport.Lat))
		values.Set("lon", fmt.Sprintf("%f", airport.Lon))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	var payload struct {
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		// Visibility is reported in meters regardless of units.
		Visibility *float64               `json:"visibility"`
		Weather    []openWeatherCondition `json:"weather"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return telemetry.Weather{}, err
	}

	if payload.Main.Temp == nil || payload.Visibility == nil {
		return telemetry.Weather{}, fmt.Errorf("openweather: %w", errIncomplete)
	}

	return telemetry.Weather{
		Summary:         summarizeOpenWeather(payload.Weather),
		TemperatureF:    *payload.Main.Temp,
		VisibilityMiles: metersToMiles(*payload.Visibility),
		ProviderName:    p.name,
	}, nil
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// summarizeOpenWeather renders the primary condition as "Main (description)",
// e.g. "Fog (light fog)".
func summarizeOpenWeather(items []openWeatherCondition) string {
	if len(items) == 0 {
		return ""
	}
	c := items[0]
	if c.Description == "" {
		return c.Main
	}
	if c.Main == "" {
		return c.Description
	}
	return fmt.Sprintf("%s (%s)", c.Main, c.Description)
}
