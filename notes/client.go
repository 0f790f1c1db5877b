// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Femosky/MapOfSecrets/spatial"
	"github.com/Femosky/MapOfSecrets/utils/httputils"
)

// Client talks to the notes backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOptions configuration for the notes backend client.
type ClientOptions struct {
	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Timeout for each request; zero means a 15s default
	Timeout time.Duration
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, options *ClientOptions) *Client {
	if options == nil {
		options = &ClientOptions{}
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	transport := httputils.NewTransport(options.UserAgent, options.EnableHTTPTrace, options.EnableHTTPBodyTrace)

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type createNoteRequest struct {
	Text     string   `json:"text"`
	Location Location `json:"location"`
}

type createNoteResponse struct {
	NoteID string `json:"noteId"`
	Error  string `json:"error,omitempty"`
}

// CreateNote submits a note and returns the identifier the backend assigned.
// A backend-reported error field fails the call; the note is durable only
// when a non-empty identifier comes back.
func (c *Client) CreateNote(ctx context.Context, text string, location Location) (string, error) {
	var resp createNoteResponse

	err := c.post(ctx, "/notes", createNoteRequest{Text: text, Location: location}, &resp)
	if err != nil {
		return "", fmt.Errorf("creating note: %w", err)
	}

	if resp.Error != "" {
		return "", fmt.Errorf("creating note: backend: %s", resp.Error)
	}

	if resp.NoteID == "" {
		return "", fmt.Errorf("creating note: backend returned no note id")
	}

	return resp.NoteID, nil
}

type notesByPlaceRequest struct {
	LocationType string `json:"locationType"`
	PlaceID      string `json:"placeId"`
}

type notesByPlaceResponse struct {
	Notes []Note `json:"notes"`
	Error string `json:"error,omitempty"`
}

// NotesByPlace fetches every note filed under the place id at the given
// hierarchy level.
func (c *Client) NotesByPlace(ctx context.Context, level PlaceLevel, placeID string) ([]Note, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("fetching notes: unknown place level %q", string(level))
	}

	var resp notesByPlaceResponse

	err := c.post(ctx, "/notes/location", notesByPlaceRequest{LocationType: string(level), PlaceID: placeID}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetching notes for %s %s: %w", level, placeID, err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("fetching notes for %s %s: backend: %s", level, placeID, resp.Error)
	}

	return resp.Notes, nil
}

// LocationCounts fetches the aggregate note counts for every place at the
// given level. The backend keys the mapping arbitrarily; entries come back
// sorted by descending count for stable rendering.
func (c *Client) LocationCounts(ctx context.Context, level PlaceLevel) ([]PlaceData, error) {
	path, err := level.countsPath()
	if err != nil {
		return nil, fmt.Errorf("fetching counts: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	raw := map[string]rawLocationCount{}
	if err := c.do(req, &raw); err != nil {
		return nil, fmt.Errorf("fetching counts for %s: %w", level, err)
	}

	data := make([]PlaceData, 0, len(raw))
	for _, entry := range raw {
		data = append(data, PlaceData{
			Count:       entry.Count,
			Coordinates: spatial.Coordinates{Latitude: entry.Latitude, Longitude: entry.Longitude},
		})
	}

	sort.Slice(data, func(i, j int) bool {
		if data[i].Count != data[j].Count {
			return data[i].Count > data[j].Count
		}

		return data[i].Coordinates.String() < data[j].Coordinates.String()
	})

	return data, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
