// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the application configuration from file and
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config carries every deploy-time knob of the application.
type Config struct {
	// ServerAddress is the listen address of the session API.
	ServerAddress string `mapstructure:"server_address"`

	// BackendBaseURL is the notes-storage backend.
	BackendBaseURL string `mapstructure:"backend_base_url"`

	// GoogleMapsAPIKey authenticates reverse geocoding. Empty means the
	// ADC fallback is attempted at startup.
	GoogleMapsAPIKey string `mapstructure:"google_maps_api_key"`

	// NominatimBaseURL is the forward-geocoding search endpoint.
	NominatimBaseURL string `mapstructure:"nominatim_base_url"`

	// UserAgent identifies outbound HTTP requests.
	UserAgent string `mapstructure:"user_agent"`

	// MinNoteChars and MaxNoteChars bound note text length, inclusive.
	MinNoteChars int `mapstructure:"min_note_chars"`
	MaxNoteChars int `mapstructure:"max_note_chars"`

	// ErrorDismissAfter is how long a transient error stays visible.
	ErrorDismissAfter time.Duration `mapstructure:"error_dismiss_after"`

	// FetchGranularity is the hierarchy level notes are fetched at when
	// the viewport settles: cityTown, stateProvince or country. The
	// default fetches at stateProvince even while displaying city
	// granularity, trading precision for fewer, larger fetches.
	FetchGranularity string `mapstructure:"fetch_granularity"`

	// CachePath enables the local DuckDB fallback cache when non-empty.
	CachePath string `mapstructure:"cache_path"`

	// DefaultCenterLat, DefaultCenterLng and DefaultZoom position new
	// sessions before any event arrives.
	DefaultCenterLat float64 `mapstructure:"default_center_lat"`
	DefaultCenterLng float64 `mapstructure:"default_center_lng"`
	DefaultZoom      float64 `mapstructure:"default_zoom"`
}

// Load reads configuration from an optional mapsecrets.{yaml,toml,json}
// under path, letting MAPSECRETS_* environment variables override any key.
// A missing config file is fine; defaults plus environment apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("mapsecrets")
	v.AddConfigPath(path)
	v.SetEnvPrefix("MAPSECRETS")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_address", "localhost:8080")
	v.SetDefault("backend_base_url", "http://localhost:3000")
	v.SetDefault("nominatim_base_url", "https://nominatim.openstreetmap.org/search.php")
	v.SetDefault("user_agent", "mapofsecrets/1.0")
	v.SetDefault("min_note_chars", 4)
	v.SetDefault("max_note_chars", 280)
	v.SetDefault("error_dismiss_after", 5*time.Second)
	v.SetDefault("fetch_granularity", "stateProvince")

	// the default starting viewport
	v.SetDefault("default_center_lat", 43.526646)
	v.SetDefault("default_center_lng", -79.891205)
	v.SetDefault("default_zoom", 12.0)
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.MinNoteChars < 1 {
		return fmt.Errorf("min_note_chars must be at least 1, got %d", c.MinNoteChars)
	}

	if c.MaxNoteChars < c.MinNoteChars {
		return fmt.Errorf("max_note_chars (%d) must be >= min_note_chars (%d)", c.MaxNoteChars, c.MinNoteChars)
	}

	if c.ErrorDismissAfter <= 0 {
		return fmt.Errorf("error_dismiss_after must be positive, got %v", c.ErrorDismissAfter)
	}

	switch c.FetchGranularity {
	case "cityTown", "stateProvince", "country":
	default:
		return fmt.Errorf("fetch_granularity must be cityTown, stateProvince or country, got %q", c.FetchGranularity)
	}

	return nil
}
