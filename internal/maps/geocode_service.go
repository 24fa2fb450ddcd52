// README: Destination geocoding (Google Maps Geocoding API) resolving the country of a free-text place.
package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"googlemaps.github.io/maps"
)

// Geocoder is the subset of *maps.Client used here.
type Geocoder interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// GeocodeService maps destinations to countries. Answers, including "no country", are memoized.
type GeocodeService struct {
	client Geocoder
	memo   *gocache.Cache
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey string, ttl time.Duration) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return NewGeocodeServiceWithClient(client, ttl), nil
}

func NewGeocodeServiceWithClient(client Geocoder, ttl time.Duration) *GeocodeService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GeocodeService{client: client, memo: gocache.New(ttl, 2*ttl)}
}

// Country returns the long country name for destination, or "" when the API finds none.
func (s *GeocodeService) Country(ctx context.Context, destination string) (string, error) {
	key := strings.ToLower(strings.Join(strings.Fields(destination), " "))
	if key == "" {
		return "", nil
	}
	if v, ok := s.memo.Get(key); ok {
		return v.(string), nil
	}

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: destination, Language: "en"})
	if err != nil {
		return "", fmt.Errorf("maps api error: %w", err)
	}

	country := ""
	for _, res := range results {
		if c := countryOf(res.AddressComponents); c != "" {
			country = c
			break
		}
	}
	s.memo.SetDefault(key, country)
	return country, nil
}

func countryOf(components []maps.AddressComponent) string {
	for _, c := range components {
		for _, t := range c.Types {
			if t == "country" {
				return c.LongName
			}
		}
	}
	return ""
}
