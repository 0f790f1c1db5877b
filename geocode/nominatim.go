// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Femosky/MapOfSecrets/spatial"
)

const defaultNominatimBaseURL = "https://nominatim.openstreetmap.org/search.php"

// NominatimClient forward-geocodes free-text queries through the OSM
// Nominatim search endpoint.
type NominatimClient struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NominatimOption configures a NominatimClient.
type NominatimOption func(*NominatimClient)

// WithNominatimBaseURL overrides the search endpoint, used in tests.
func WithNominatimBaseURL(baseURL string) NominatimOption {
	return func(n *NominatimClient) {
		n.baseURL = baseURL
	}
}

// WithNominatimHTTPClient overrides the HTTP client.
func WithNominatimHTTPClient(c *http.Client) NominatimOption {
	return func(n *NominatimClient) {
		n.httpClient = c
	}
}

// NewNominatimClient creates a new Nominatim forward geocoder. Nominatim's
// usage policy requires an identifying User-Agent.
func NewNominatimClient(userAgent string, opts ...NominatimOption) *NominatimClient {
	n := &NominatimClient{
		baseURL:   defaultNominatimBaseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode resolves a free-text query ("Toronto, Ontario, Canada") to a
// coordinate. The first result wins.
func (n *NominatimClient) Geocode(ctx context.Context, query string) (spatial.Coordinates, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")

	reqURL := n.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return spatial.Coordinates{}, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return spatial.Coordinates{}, &Error{Type: ErrorTypeNetwork, Message: "nominatim request failed", Err: err}
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return spatial.Coordinates{}, ClassifyHTTPError(resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return spatial.Coordinates{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(results) == 0 {
		return spatial.Coordinates{}, &Error{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("no geocoding result for %q", query),
		}
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return spatial.Coordinates{}, fmt.Errorf("parsing latitude %q: %w", results[0].Lat, err)
	}

	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return spatial.Coordinates{}, fmt.Errorf("parsing longitude %q: %w", results[0].Lon, err)
	}

	return spatial.Coordinates{Latitude: lat, Longitude: lng}, nil
}
