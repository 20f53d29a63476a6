package telemetry

import (
	"fmt"
	"math"
)

// Airport is the place whose traffic and weather are sampled each tick.
type Airport struct {
	Code     string  `json:"code"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radiusKm"`
}

// Key returns a canonical string key for logging.
func (a Airport) Key() string {
	if a.Code != "" {
		return a.Code
	}
	return fmt.Sprintf("%.4f,%.4f", a.Lat, a.Lon)
}

// BoundingBox returns the lat/lon box of RadiusKm around the airport.
func (a Airport) BoundingBox() (minLat, minLon, maxLat, maxLon float64) {
	const kmPerDegree = 111.32
	dLat := a.RadiusKm / kmPerDegree
	dLon := dLat
	if c := math.Cos(a.Lat * math.Pi / 180); c > 1e-6 {
		dLon = a.RadiusKm / (kmPerDegree * c)
	}
	return a.Lat - dLat, a.Lon - dLon, a.Lat + dLat, a.Lon + dLon
}

// Weather is one provider's view of current conditions at the airport.
type Weather struct {
	Summary         string  `json:"summary"`
	TemperatureF    float64 `json:"temperatureF"`
	VisibilityMiles float64 `json:"visibilityMiles"`

	// Provider that produced the reading.
	ProviderName string `json:"provider,omitempty"`
}

// Reading is the combined telemetry for a single tick. A nil field means the
// corresponding provider failed or timed out.
type Reading struct {
	FlightCount *int     `json:"flightCount,omitempty"`
	Weather     *Weather `json:"weather,omitempty"`
}

// WithFlights returns a copy of r with the flight count set.
func (r Reading) WithFlights(n int) Reading {
	r.FlightCount = &n
	return r
}

// WithWeather returns a copy of r with the weather set.
func (r Reading) WithWeather(w Weather) Reading {
	r.Weather = &w
	return r
}
