// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNominatimGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Ontario, Canada", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "mapofsecrets-test", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"lat": "50.000678", "lon": "-86.000977", "display_name": "Ontario, Canada"},
			{"lat": "34.065846", "lon": "-117.648430", "display_name": "Ontario, California"}
		]`))
	}))
	defer srv.Close()

	n := NewNominatimClient("mapofsecrets-test", WithNominatimBaseURL(srv.URL))

	coords, err := n.Geocode(context.Background(), "Ontario, Canada")
	require.NoError(t, err)

	// first result wins
	assert.InDelta(t, 50.000678, coords.Latitude, 1e-9)
	assert.InDelta(t, -86.000977, coords.Longitude, 1e-9)
}

func TestNominatimGeocodeEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	n := NewNominatimClient("mapofsecrets-test", WithNominatimBaseURL(srv.URL))

	_, err := n.Geocode(context.Background(), "Nowhereville")

	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestNominatimGeocodeBadLatitude(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "not-a-number", "lon": "0"}]`))
	}))
	defer srv.Close()

	n := NewNominatimClient("mapofsecrets-test", WithNominatimBaseURL(srv.URL))

	_, err := n.Geocode(context.Background(), "Toronto")
	assert.Error(t, err)
}

func TestNominatimGeocodeRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewNominatimClient("mapofsecrets-test", WithNominatimBaseURL(srv.URL))

	_, err := n.Geocode(context.Background(), "Toronto")

	require.Error(t, err)
	assert.True(t, IsRateLimitError(err))
}
