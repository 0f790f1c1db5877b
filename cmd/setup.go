// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/rs/zerolog/log"

	"github.com/Femosky/MapOfSecrets/config"
	"github.com/Femosky/MapOfSecrets/geocode"
	"github.com/Femosky/MapOfSecrets/notes"
	"github.com/Femosky/MapOfSecrets/session"
	"github.com/Femosky/MapOfSecrets/spatial"
	"github.com/Femosky/MapOfSecrets/store"
)

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = "."
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return cfg, nil
}

func userAgent(cfg *config.Config) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}

	return fmt.Sprintf("mapsecrets/%s (+https://github.com/Femosky/MapOfSecrets)", Version)
}

// newResolver builds the geocoding pipeline: Google Maps for reverse,
// Nominatim for forward. The Maps key comes from the configuration or,
// failing that, from Application Default Credentials.
func newResolver(ctx context.Context, cfg *config.Config) (*geocode.Resolver, error) {
	apiKey := cfg.GoogleMapsAPIKey
	if apiKey == "" {
		log.Info().Msg("no Google Maps API key configured, trying ADC")

		var err error

		apiKey, err = geocode.APIKeyFromADC(ctx)
		if err != nil {
			return nil, fmt.Errorf("retrieving Google Maps API key: %w", err)
		}
	}

	reverse := geocode.NewGoogleMapsGeocoder(apiKey)

	var opts []geocode.NominatimOption
	if cfg.NominatimBaseURL != "" {
		opts = append(opts, geocode.WithNominatimBaseURL(cfg.NominatimBaseURL))
	}

	forward := geocode.NewNominatimClient(userAgent(cfg), opts...)

	return geocode.NewResolver(reverse, forward), nil
}

func newBackend(cfg *config.Config) *notes.Client {
	return notes.NewClient(cfg.BackendBaseURL, &notes.ClientOptions{
		UserAgent:       userAgent(cfg),
		EnableHTTPTrace: verbose,
	})
}

// openStore opens the local DuckDB cache, or returns nil when none is
// configured.
func openStore(cfg *config.Config) (*store.NotesStore, error) {
	if cfg.CachePath == "" {
		return nil, nil
	}

	s, err := store.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("opening local cache: %w", err)
	}

	return s, nil
}

func sessionOptions(cfg *config.Config) session.Options {
	return session.Options{
		MinNoteChars:      cfg.MinNoteChars,
		MaxNoteChars:      cfg.MaxNoteChars,
		ErrorDismissAfter: cfg.ErrorDismissAfter,
		FetchLevel:        notes.PlaceLevel(cfg.FetchGranularity),
		Center: spatial.Coordinates{
			Latitude:  cfg.DefaultCenterLat,
			Longitude: cfg.DefaultCenterLng,
		},
		Zoom: cfg.DefaultZoom,
	}
}

// newSession assembles a full session from the configuration. The returned
// store may be nil; the caller owns both.
func newSession(ctx context.Context, cfg *config.Config) (*session.Session, *store.NotesStore, error) {
	resolver, err := newResolver(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	notesStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	var local session.LocalStore
	if notesStore != nil {
		local = notesStore
	}

	sess := session.New(resolver, newBackend(cfg), local, sessionOptions(cfg))

	return sess, notesStore, nil
}
