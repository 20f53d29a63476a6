package providers

import (
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/calloff/internal/telemetry"
)

// ResolveAirport replaces the airport coordinates with the location of a postal
// address, using the Google geocoding API.
func ResolveAirport(airport telemetry.Airport, address, apiKey string) (telemetry.Airport, error) {
	if apiKey == "" {
		return airport, fmt.Errorf("geocoder: %w", errMissingKey)
	}
	if address == "" {
		return airport, fmt.Errorf("geocoder: airport address is empty")
	}

	geocoder.ApiKey = apiKey

	loc, err := geocoder.Geocoding(geocoder.Address{Street: address})
	if err != nil {
		return airport, fmt.Errorf("geocoder: %w", err)
	}

	airport.Lat = loc.Latitude
	airport.Lon = loc.Longitude
	return airport, nil
}
