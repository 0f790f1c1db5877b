// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocode resolves map coordinates into the three-level place
// hierarchy (city/town, state/province, country) the application pins notes
// to, and place hierarchies back into representative coordinates for
// rendering each level on the map.
package geocode

import (
	"context"
	"fmt"

	"github.com/Femosky/MapOfSecrets/spatial"
)

// PlaceInfo is one resolved administrative entity.
type PlaceInfo struct {
	PlaceID string `json:"placeId"`
	Name    string `json:"name"`
}

// GeneralLocation is the resolved three-level hierarchy for a coordinate.
// Either all three levels are present or the resolution failed; partial
// hierarchies are never produced.
type GeneralLocation struct {
	CityTown      PlaceInfo `json:"cityTown"`
	StateProvince PlaceInfo `json:"stateProvince"`
	Country       PlaceInfo `json:"country"`
}

// GeneralCoordinates holds the representative point for each hierarchy
// level, distinct from the coordinate of any individual note.
type GeneralCoordinates struct {
	CityTown      spatial.Coordinates `json:"cityTown"`
	StateProvince spatial.Coordinates `json:"stateProvince"`
	Country       spatial.Coordinates `json:"country"`
}

// ReverseGeocoder turns a coordinate into a place hierarchy.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, coords spatial.Coordinates) (*GeneralLocation, error)
}

// ForwardGeocoder turns a free-text place query into a coordinate.
type ForwardGeocoder interface {
	Geocode(ctx context.Context, query string) (spatial.Coordinates, error)
}

// Resolver combines a reverse and a forward geocoder into the place
// resolution pipeline.
type Resolver struct {
	reverse ReverseGeocoder
	forward ForwardGeocoder
}

// NewResolver creates a resolver over the given providers.
func NewResolver(reverse ReverseGeocoder, forward ForwardGeocoder) *Resolver {
	return &Resolver{reverse: reverse, forward: forward}
}

// GeneralLocation resolves a coordinate to its place hierarchy.
func (r *Resolver) GeneralLocation(ctx context.Context, coords spatial.Coordinates) (*GeneralLocation, error) {
	if !coords.Valid() {
		return nil, &Error{
			Type:    ErrorTypeInvalidRequest,
			Message: fmt.Sprintf("coordinates out of range: %+v", coords),
		}
	}

	loc, err := r.reverse.ReverseGeocode(ctx, coords)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding %v: %w", coords, err)
	}

	return loc, nil
}

// GeneralCoordinates resolves a representative point for each level of the
// hierarchy by issuing one forward query per level. All three queries must
// succeed or the whole operation fails; partial results are never surfaced.
func (r *Resolver) GeneralCoordinates(ctx context.Context, loc *GeneralLocation) (*GeneralCoordinates, error) {
	queries := []struct {
		level string
		query string
	}{
		{"cityTown", fmt.Sprintf("%s, %s, %s", loc.CityTown.Name, loc.StateProvince.Name, loc.Country.Name)},
		{"stateProvince", fmt.Sprintf("%s, %s", loc.StateProvince.Name, loc.Country.Name)},
		{"country", loc.Country.Name},
	}

	var coords [3]spatial.Coordinates

	for i, q := range queries {
		c, err := r.forward.Geocode(ctx, q.query)
		if err != nil {
			return nil, fmt.Errorf("resolving %s coordinates for %q: %w", q.level, q.query, err)
		}

		coords[i] = c
	}

	return &GeneralCoordinates{
		CityTown:      coords[0],
		StateProvince: coords[1],
		Country:       coords[2],
	}, nil
}
