// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package notes holds the note domain model, the HTTP client for the notes
// backend, and the session-scoped stores built on top of it.
package notes

import (
	"fmt"
	"time"

	"github.com/Femosky/MapOfSecrets/geocode"
	"github.com/Femosky/MapOfSecrets/spatial"
)

// PlaceLevel identifies one level of the place hierarchy.
type PlaceLevel string

// The three aggregation levels the backend understands.
const (
	LevelCityTown      PlaceLevel = "cityTown"
	LevelStateProvince PlaceLevel = "stateProvince"
	LevelCountry       PlaceLevel = "country"
)

// Valid reports whether the level is one of the three known levels.
func (l PlaceLevel) Valid() bool {
	switch l {
	case LevelCityTown, LevelStateProvince, LevelCountry:
		return true
	default:
		return false
	}
}

// countsPath maps a level to its aggregate-counts endpoint.
func (l PlaceLevel) countsPath() (string, error) {
	switch l {
	case LevelCityTown:
		return "/locations/cities", nil
	case LevelStateProvince:
		return "/locations/states", nil
	case LevelCountry:
		return "/locations/countries", nil
	default:
		return "", fmt.Errorf("unknown place level %q", string(l))
	}
}

// Location is the full location record attached to a note. The name fields
// denormalize the hierarchy's display names for convenience and always match
// GeneralLocation.
type Location struct {
	ID                 int64                      `json:"id"`
	Coordinates        spatial.Coordinates        `json:"coordinates"`
	GeneralCoordinates geocode.GeneralCoordinates `json:"generalCoordinates"`
	GeneralLocation    geocode.GeneralLocation    `json:"generalLocation"`
	CityTown           string                     `json:"cityTown"`
	StateProvince      string                     `json:"stateProvince"`
	Country            string                     `json:"country"`
}

// NewLocation assembles a Location from its resolved parts, truncating the
// note coordinate and denormalizing the display names.
func NewLocation(coords spatial.Coordinates, loc geocode.GeneralLocation, gc geocode.GeneralCoordinates) Location {
	return Location{
		ID:                 time.Now().UnixMilli(),
		Coordinates:        coords.Truncate(),
		GeneralCoordinates: gc,
		GeneralLocation:    loc,
		CityTown:           loc.CityTown.Name,
		StateProvince:      loc.StateProvince.Name,
		Country:            loc.Country.Name,
	}
}

// PlaceID returns the place identifier at the given hierarchy level.
func (l Location) PlaceID(level PlaceLevel) string {
	switch level {
	case LevelCityTown:
		return l.GeneralLocation.CityTown.PlaceID
	case LevelStateProvince:
		return l.GeneralLocation.StateProvince.PlaceID
	case LevelCountry:
		return l.GeneralLocation.Country.PlaceID
	default:
		return ""
	}
}

// Note is a confirmed note: it carries the identifier the backend assigned
// on creation. Unconfirmed notes never take this form, see PendingNote in
// the session package.
type Note struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Location  Location  `json:"location"`
	Text      string    `json:"text"`
}

// PlaceData is one aggregate bucket: how many notes fall under a place and
// where to draw its bubble.
type PlaceData struct {
	Count       int                 `json:"count"`
	Coordinates spatial.Coordinates `json:"coordinates"`
}

// rawLocationCount is the wire shape of one aggregate entry.
type rawLocationCount struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int     `json:"count"`
}
