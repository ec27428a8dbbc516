package domain

import "context"

// Place is what a geocoding provider knows about a coordinate.
type Place struct {
	Name             string
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves coordinates to human-readable places.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, c Coordinate) (Place, error)
}
