package telemetry

import (
	"context"
	"errors"
)

// ErrUnavailable marks a reading that could not be obtained. It is never fatal
// to a tick; the affected part of the Reading is simply left empty.
var ErrUnavailable = errors.New("telemetry unavailable")

// TrafficProvider abstracts a live air-traffic source (e.g. OpenSky).
type TrafficProvider interface {
	Name() string
	FlightCount(ctx context.Context, airport Airport) (int, error)
}

// WeatherProvider abstracts a current-conditions source (e.g. WeatherAPI, OpenWeatherMap, Open-Meteo).
type WeatherProvider interface {
	Name() string
	Current(ctx context.Context, airport Airport) (Weather, error)
}
