// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/Femosky/MapOfSecrets/spatial"
)

const defaultGoogleMapsBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Administrative feature types used by the Google Geocoding API.
const (
	typeLocality   = "locality"
	typeAdminArea1 = "administrative_area_level_1"
	typeAdminArea2 = "administrative_area_level_2"
	typeAdminArea3 = "administrative_area_level_3"
	typeCountry    = "country"
)

// GoogleMapsGeocoder reverse-geocodes through the Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// GoogleMapsOption configures a GoogleMapsGeocoder.
type GoogleMapsOption func(*GoogleMapsGeocoder)

// WithGoogleMapsBaseURL overrides the API endpoint, used in tests.
func WithGoogleMapsBaseURL(baseURL string) GoogleMapsOption {
	return func(g *GoogleMapsGeocoder) {
		g.baseURL = baseURL
	}
}

// WithGoogleMapsHTTPClient overrides the HTTP client.
func WithGoogleMapsHTTPClient(c *http.Client) GoogleMapsOption {
	return func(g *GoogleMapsGeocoder) {
		g.httpClient = c
	}
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(apiKey string, opts ...GoogleMapsOption) *GoogleMapsGeocoder {
	g := &GoogleMapsGeocoder{
		apiKey:  apiKey,
		baseURL: defaultGoogleMapsBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

type googleMapsResult struct {
	PlaceID          string   `json:"place_id"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
}

type googleMapsResponse struct {
	Results []googleMapsResult `json:"results"`
	Status  string             `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, ...
}

// ReverseGeocode resolves a coordinate to its city/state/country hierarchy.
// The locality lookup falls back to coarser administrative areas to handle
// regions without a named city. A missing level fails the whole resolution.
func (g *GoogleMapsGeocoder) ReverseGeocode(ctx context.Context, coords spatial.Coordinates) (*GeneralLocation, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", coords.Latitude, coords.Longitude))
	params.Set("key", g.apiKey)

	gmResp, err := g.query(ctx, params)
	if err != nil {
		return nil, err
	}

	cityResult := findResultByType(gmResp.Results, typeLocality)
	if cityResult == nil {
		cityResult = findResultByType(gmResp.Results, typeAdminArea2)
	}

	if cityResult == nil {
		cityResult = findResultByType(gmResp.Results, typeAdminArea3)
	}

	stateResult := findResultByType(gmResp.Results, typeAdminArea1)
	countryResult := findResultByType(gmResp.Results, typeCountry)

	if cityResult == nil || stateResult == nil || countryResult == nil {
		return nil, &Error{
			Type:    ErrorTypeIncomplete,
			Message: fmt.Sprintf("incomplete hierarchy for %v (city=%t state=%t country=%t)", coords, cityResult != nil, stateResult != nil, countryResult != nil),
		}
	}

	return &GeneralLocation{
		CityTown:      placeInfoFromResult(cityResult),
		StateProvince: placeInfoFromResult(stateResult),
		Country:       placeInfoFromResult(countryResult),
	}, nil
}

// Geocode resolves a free-text query to a coordinate, so the Google backend
// can also serve as the forward provider when Nominatim is not configured.
func (g *GoogleMapsGeocoder) Geocode(ctx context.Context, query string) (spatial.Coordinates, error) {
	params := url.Values{}
	params.Set("address", query)
	params.Set("key", g.apiKey)

	gmResp, err := g.queryGeometry(ctx, params)
	if err != nil {
		return spatial.Coordinates{}, err
	}

	return gmResp, nil
}

func (g *GoogleMapsGeocoder) query(ctx context.Context, params url.Values) (*googleMapsResponse, error) {
	resp, err := g.get(ctx, params)
	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if err := statusError(gmResp.Status); err != nil {
		return nil, err
	}

	if len(gmResp.Results) == 0 {
		return nil, &Error{Type: ErrorTypeNotFound, Message: "no geocoding results"}
	}

	return &gmResp, nil
}

func (g *GoogleMapsGeocoder) queryGeometry(ctx context.Context, params url.Values) (spatial.Coordinates, error) {
	resp, err := g.get(ctx, params)
	if err != nil {
		return spatial.Coordinates{}, err
	}

	defer resp.Body.Close()

	var gmResp struct {
		Results []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
		Status string `json:"status"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return spatial.Coordinates{}, fmt.Errorf("decoding response: %w", err)
	}

	if err := statusError(gmResp.Status); err != nil {
		return spatial.Coordinates{}, err
	}

	if len(gmResp.Results) == 0 {
		return spatial.Coordinates{}, &Error{Type: ErrorTypeNotFound, Message: "no geocoding results"}
	}

	loc := gmResp.Results[0].Geometry.Location

	return spatial.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}

func (g *GoogleMapsGeocoder) get(ctx context.Context, params url.Values) (*http.Response, error) {
	reqURL := g.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Type: ErrorTypeNetwork, Message: "geocoding request failed", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	return resp, nil
}

func statusError(status string) error {
	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS":
		return &Error{Type: ErrorTypeNotFound, Message: "no results for location"}
	case "OVER_QUERY_LIMIT":
		return &Error{Type: ErrorTypeQuotaExceeded, Message: "google maps status: OVER_QUERY_LIMIT"}
	case "OVER_DAILY_LIMIT":
		return &Error{Type: ErrorTypeQuotaExceeded, Message: "google maps status: OVER_DAILY_LIMIT"}
	case "INVALID_REQUEST":
		return &Error{Type: ErrorTypeInvalidRequest, Message: "google maps status: INVALID_REQUEST"}
	default:
		return &Error{Type: ErrorTypeUnknown, Message: "google maps status: " + status}
	}
}

func findResultByType(results []googleMapsResult, typ string) *googleMapsResult {
	for i := range results {
		if slices.Contains(results[i].Types, typ) {
			return &results[i]
		}
	}

	return nil
}

func placeInfoFromResult(r *googleMapsResult) PlaceInfo {
	return PlaceInfo{
		PlaceID: r.PlaceID,
		Name:    DisplayName(r.FormattedAddress),
	}
}
