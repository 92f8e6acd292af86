package location

import (
	"context"
	"errors"
	"time"

	"googlemaps.github.io/maps"
)

// ErrNoAddress is returned when reverse geocoding finds nothing for a position.
var ErrNoAddress = errors.New("no address found for position")

// Address is a human-readable description of a position.
type Address struct {
	Formatted string `json:"formatted"`
	Locality  string `json:"locality,omitempty"`
	Country   string `json:"country,omitempty"`
}

// ReverseGeocodeClient is the part of the Maps client used for reverse geocoding.
type ReverseGeocodeClient interface {
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ReverseGeocoder resolves samples to addresses.
type ReverseGeocoder struct {
	client  ReverseGeocodeClient
	timeout time.Duration
}

// NewReverseGeocoder creates a ReverseGeocoder. A non-positive timeout defaults to 10s.
func NewReverseGeocoder(client ReverseGeocodeClient, timeout time.Duration) *ReverseGeocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ReverseGeocoder{client: client, timeout: timeout}
}

// Lookup returns the best address for the sample's coordinates.
func (r *ReverseGeocoder) Lookup(ctx context.Context, sample PositionSample) (Address, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results, err := r.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: sample.Latitude, Lng: sample.Longitude},
	})
	if err != nil {
		return Address{}, err
	}
	if len(results) == 0 {
		return Address{}, ErrNoAddress
	}

	first := results[0]
	addr := Address{Formatted: first.FormattedAddress}
	for _, component := range first.AddressComponents {
		for _, kind := range component.Types {
			switch kind {
			case "locality":
				addr.Locality = component.LongName
			case "country":
				addr.Country = component.ShortName
			}
		}
	}
	return addr, nil
}
