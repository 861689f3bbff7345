package geocode

import (
	"context"
	"fmt"

	"github.com/dparkr/dparkr/internal/domain"
	"googlemaps.github.io/maps"
)

// Geocoder resolves street addresses through the Google Maps Geocoding API.
type Geocoder struct {
	client *maps.Client
}

func NewGeocoder(apiKey string, opts ...maps.ClientOption) (*Geocoder, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// Geocode returns the coordinates of the best match for address.
func (g *Geocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode %q: %w", address, err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("%w: address %q not found", domain.ErrInvalidInput, address)
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
