package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/i474232898/calloff/internal/telemetry"
	"github.com/sony/gobreaker"
)

// OpenSky state vector index of the on_ground flag.
const openSkyOnGround = 8

// OpenSkyProvider implements telemetry.TrafficProvider using the OpenSky
// Network state vectors API. It counts airborne aircraft inside the airport's
// bounding box.
type OpenSkyProvider struct {
	name     string
	username string
	password string
	baseURL  string
	httpCfg  HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
}

// NewOpenSkyProvider creates the provider. Credentials are optional; anonymous
// access works with a lower rate limit.
func NewOpenSkyProvider(client *http.Client, username, password string) *OpenSkyProvider {
	return &OpenSkyProvider{
		name:     "opensky",
		username: username,
		password: password,
		baseURL:  "https://opensky-network.org/api/states/all",
		httpCfg:  newHTTPConfig(client),
		circuit:  newBreaker("opensky"),
	}
}

// SetBaseURL overrides the endpoint for testing.
func (p *OpenSkyProvider) SetBaseURL(u string) {
	p.baseURL = u
}

func (p *OpenSkyProvider) Name() string {
	return p.name
}

func (p *OpenSkyProvider) FlightCount(ctx context.Context, airport telemetry.Airport) (int, error) {
	if airport.RadiusKm <= 0 {
		return 0, fmt.Errorf("opensky: radius must be positive")
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		minLat, minLon, maxLat, maxLon := airport.BoundingBox()

		values := url.Values{}
		values.Set("lamin", fmt.Sprintf("%f", minLat))
		values.Set("lomin", fmt.Sprintf("%f", minLon))
		values.Set("lamax", fmt.Sprintf("%f", maxLat))
		values.Set("lomax", fmt.Sprintf("%f", maxLon))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		if p.username != "" {
			req.SetBasicAuth(p.username, p.password)
		}
		return req, nil
	}

	var payload struct {
		Time   int64   `json:"time"`
		States [][]any `json:"states"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, buildRequest, &payload); err != nil {
		return 0, err
	}

	// "states" is null when nothing is in the box.
	count := 0
	for _, sv := range payload.States {
		if len(sv) <= openSkyOnGround {
			continue
		}
		if onGround, ok := sv[openSkyOnGround].(bool); ok && onGround {
			continue
		}
		count++
	}
	return count, nil
}
