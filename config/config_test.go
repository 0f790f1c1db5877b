// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.ServerAddress)
	assert.Equal(t, "stateProvince", cfg.FetchGranularity)
	assert.Equal(t, 4, cfg.MinNoteChars)
	assert.Equal(t, 280, cfg.MaxNoteChars)
	assert.Equal(t, 5*time.Second, cfg.ErrorDismissAfter)
	assert.InDelta(t, 43.526646, cfg.DefaultCenterLat, 1e-9)
	assert.InDelta(t, -79.891205, cfg.DefaultCenterLng, 1e-9)
	assert.InDelta(t, 12.0, cfg.DefaultZoom, 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
backend_base_url: https://notes.example.com
min_note_chars: 10
max_note_chars: 100
fetch_granularity: cityTown
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mapsecrets.yaml"), content, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://notes.example.com", cfg.BackendBaseURL)
	assert.Equal(t, 10, cfg.MinNoteChars)
	assert.Equal(t, 100, cfg.MaxNoteChars)
	assert.Equal(t, "cityTown", cfg.FetchGranularity)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MAPSECRETS_BACKEND_BASE_URL", "https://env.example.com")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.BackendBaseURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(_ *Config) {},
		},
		{
			name:    "min below one",
			mutate:  func(c *Config) { c.MinNoteChars = 0 },
			wantErr: "min_note_chars",
		},
		{
			name:    "max below min",
			mutate:  func(c *Config) { c.MinNoteChars = 50; c.MaxNoteChars = 10 },
			wantErr: "max_note_chars",
		},
		{
			name:    "bad fetch granularity",
			mutate:  func(c *Config) { c.FetchGranularity = "continent" },
			wantErr: "fetch_granularity",
		},
		{
			name:    "non-positive dismiss",
			mutate:  func(c *Config) { c.ErrorDismissAfter = 0 },
			wantErr: "error_dismiss_after",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(t.TempDir())
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
