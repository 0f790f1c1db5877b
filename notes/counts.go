// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package notes

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// CountsClient is the slice of the backend client the counts store needs.
type CountsClient interface {
	LocationCounts(ctx context.Context, level PlaceLevel) ([]PlaceData, error)
}

// CountsStore fetches and holds the aggregate note counts rendered as
// bubble markers at coarse zoom.
type CountsStore struct {
	client CountsClient

	mu             sync.Mutex
	cityTowns      []PlaceData
	stateProvinces []PlaceData
	countries      []PlaceData
}

// NewCountsStore creates a counts store over the given client.
func NewCountsStore(client CountsClient) *CountsStore {
	return &CountsStore{client: client}
}

// Refresh fetches all three levels, coarsest first.
// Each fetch fails independently: one broken level keeps its previous data
// and does not block the other two. The joined error reports every failure.
func (s *CountsStore) Refresh(ctx context.Context) error {
	var errs []error

	for _, level := range []PlaceLevel{LevelCountry, LevelStateProvince, LevelCityTown} {
		data, err := s.client.LocationCounts(ctx, level)
		if err != nil {
			log.Warn().Err(err).Str("level", string(level)).Msg("refreshing aggregate counts failed")
			errs = append(errs, err)

			continue
		}

		s.set(level, data)
	}

	return errors.Join(errs...)
}

func (s *CountsStore) set(level PlaceLevel, data []PlaceData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch level {
	case LevelCityTown:
		s.cityTowns = data
	case LevelStateProvince:
		s.stateProvinces = data
	case LevelCountry:
		s.countries = data
	}
}

// Counts returns the current aggregate data for a level.
func (s *CountsStore) Counts(level PlaceLevel) []PlaceData {
	s.mu.Lock()
	defer s.mu.Unlock()

	var src []PlaceData

	switch level {
	case LevelCityTown:
		src = s.cityTowns
	case LevelStateProvince:
		src = s.stateProvinces
	case LevelCountry:
		src = s.countries
	}

	out := make([]PlaceData, len(src))
	copy(out, src)

	return out
}
