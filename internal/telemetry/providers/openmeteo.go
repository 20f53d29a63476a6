package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/calloff/internal/telemetry"
	"github.com/sony/gobreaker"
)

// OpenMeteoProvider implements telemetry.WeatherProvider for Open-Meteo. It
// needs no API key, which makes it the usual last-resort fallback.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: newHTTPConfig(client),
		circuit: newBreaker("openmeteo"),
	}
}

// SetBaseURL overrides the endpoint for testing.
func (p *OpenMeteoProvider) SetBaseURL(u string) {
	p.baseURL = u
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Current(ctx context.Context, airport telemetry.Airport) (telemetry.Weather, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", airport.Lat))
		values.Set("longitude", fmt.Sprintf("%f", airport.Lon))
		values.Set("current", "temperature_2m,visibility,weather_code")
		values.Set("temperature_unit", "fahrenheit")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	var payload struct {
		Current struct {
			Temperature *float64 `json:"temperature_2m"`
			Visibility  *float64 `json:"visibility"` // meters
			WeatherCode *int     `json:"weather_code"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return telemetry.Weather{}, err
	}

	cur := payload.Current
	if cur.Temperature == nil || cur.Visibility == nil || cur.WeatherCode == nil {
		return telemetry.Weather{}, fmt.Errorf("openmeteo: %w", errIncomplete)
	}

	return telemetry.Weather{
		Summary:         describeWMOCode(*cur.WeatherCode),
		TemperatureF:    *cur.Temperature,
		VisibilityMiles: metersToMiles(*cur.Visibility),
		ProviderName:    p.name,
	}, nil
}

// describeWMOCode maps WMO weather interpretation codes to summary text.
func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "Clear sky"
	case code >= 1 && code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "Rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "Snow"
	case code >= 95:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}
