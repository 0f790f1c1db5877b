// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/Femosky/MapOfSecrets/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReverse struct {
	loc *GeneralLocation
	err error
}

func (f *fakeReverse) ReverseGeocode(_ context.Context, _ spatial.Coordinates) (*GeneralLocation, error) {
	return f.loc, f.err
}

type fakeForward struct {
	answers map[string]spatial.Coordinates
	calls   []string
}

func (f *fakeForward) Geocode(_ context.Context, query string) (spatial.Coordinates, error) {
	f.calls = append(f.calls, query)

	coords, ok := f.answers[query]
	if !ok {
		return spatial.Coordinates{}, &Error{Type: ErrorTypeNotFound, Message: "no geocoding result for " + query}
	}

	return coords, nil
}

func torontoHierarchy() *GeneralLocation {
	return &GeneralLocation{
		CityTown:      PlaceInfo{PlaceID: "place-toronto", Name: "Toronto"},
		StateProvince: PlaceInfo{PlaceID: "place-ontario", Name: "Ontario"},
		Country:       PlaceInfo{PlaceID: "place-canada", Name: "Canada"},
	}
}

func TestResolverGeneralLocation(t *testing.T) {
	r := NewResolver(&fakeReverse{loc: torontoHierarchy()}, &fakeForward{})

	loc, err := r.GeneralLocation(context.Background(), spatial.Coordinates{Latitude: 43.6, Longitude: -79.4})
	require.NoError(t, err)
	assert.Equal(t, "Toronto", loc.CityTown.Name)
}

func TestResolverGeneralLocationRejectsInvalidCoordinates(t *testing.T) {
	r := NewResolver(&fakeReverse{loc: torontoHierarchy()}, &fakeForward{})

	_, err := r.GeneralLocation(context.Background(), spatial.Coordinates{Latitude: 120, Longitude: 0})

	var geoErr *Error

	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, ErrorTypeInvalidRequest, geoErr.Type)
}

func TestResolverGeneralCoordinatesQueriesPerLevel(t *testing.T) {
	forward := &fakeForward{answers: map[string]spatial.Coordinates{
		"Toronto, Ontario, Canada": {Latitude: 43.65, Longitude: -79.38},
		"Ontario, Canada":          {Latitude: 50.00, Longitude: -86.00},
		"Canada":                   {Latitude: 56.13, Longitude: -106.35},
	}}

	r := NewResolver(&fakeReverse{}, forward)

	coords, err := r.GeneralCoordinates(context.Background(), torontoHierarchy())
	require.NoError(t, err)

	assert.Equal(t, []string{"Toronto, Ontario, Canada", "Ontario, Canada", "Canada"}, forward.calls)
	assert.InDelta(t, 43.65, coords.CityTown.Latitude, 1e-9)
	assert.InDelta(t, 50.00, coords.StateProvince.Latitude, 1e-9)
	assert.InDelta(t, 56.13, coords.Country.Latitude, 1e-9)
}

func TestResolverGeneralCoordinatesAllOrNothing(t *testing.T) {
	// state query fails: the whole operation fails, nothing partial comes back
	forward := &fakeForward{answers: map[string]spatial.Coordinates{
		"Toronto, Ontario, Canada": {Latitude: 43.65, Longitude: -79.38},
		"Canada":                   {Latitude: 56.13, Longitude: -106.35},
	}}

	r := NewResolver(&fakeReverse{}, forward)

	coords, err := r.GeneralCoordinates(context.Background(), torontoHierarchy())

	require.Error(t, err)
	assert.Nil(t, coords)
}

func TestResolverGeneralLocationPropagatesProviderError(t *testing.T) {
	wantErr := &Error{Type: ErrorTypeNetwork, Message: "boom"}
	r := NewResolver(&fakeReverse{err: wantErr}, &fakeForward{})

	_, err := r.GeneralLocation(context.Background(), spatial.Coordinates{Latitude: 1, Longitude: 1})

	var geoErr *Error

	require.ErrorAs(t, err, &geoErr)
	assert.Equal(t, ErrorTypeNetwork, geoErr.Type)
	assert.True(t, errors.Is(err, wantErr))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Toronto, ON, Canada", want: "Toronto"},
		{in: "Canada", want: "Canada"},
		{in: "  Ontario , Canada", want: "Ontario"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.in))
	}
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "São Paulo", want: "saopaulo"},
		{in: "Sao Paulo", want: "saopaulo"},
		{in: "Québec", want: "quebec"},
		{in: "St. John's", want: "stjohns"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), tt.in)
	}
}
