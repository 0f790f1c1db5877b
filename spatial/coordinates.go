// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial provides the geographic primitives shared by the rest of
// the application: coordinates with bounded precision, distance math and
// marker clustering.
package spatial

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadius = 6371e3 // meters

// coordinateDecimals bounds coordinates to 6 decimal places (~11cm at the
// equator), so two clicks on the same spot compare equal.
const coordinateDecimals = 6

// Coordinates represents a geographical point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinates builds Coordinates truncated to 6 decimal places.
func NewCoordinates(lat, lng float64) Coordinates {
	return Coordinates{
		Latitude:  Truncate6(lat),
		Longitude: Truncate6(lng),
	}
}

// Truncate6 truncates a coordinate component to 6 decimal places, toward
// zero. Truncation, not rounding: the same on-screen point must always map
// to the same stored value regardless of sub-precision jitter.
//
// The cut happens on the shortest decimal rendering of the value, not on
// v*1e6: multiplying first can land a hair below the integer and swallow a
// whole micro-degree, which also breaks idempotency.
func Truncate6(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)

	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s) > dot+1+coordinateDecimals {
		s = s[:dot+1+coordinateDecimals]
	}

	// FormatFloat output is always parseable, NaN and Inf included.
	t, _ := strconv.ParseFloat(s, 64)

	return t
}

// Truncate returns a copy truncated to 6 decimal places. Idempotent.
func (c Coordinates) Truncate() Coordinates {
	return NewCoordinates(c.Latitude, c.Longitude)
}

// Valid reports whether the coordinates are within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// String returns a string representation of the Coordinates.
func (c Coordinates) String() string {
	return fmt.Sprintf("POINT(%f %f)", c.Longitude, c.Latitude)
}

// Value implements the driver.Valuer interface for database serialization.
func (c Coordinates) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (c *Coordinates) Scan(value interface{}) error {
	if value == nil {
		c.Latitude, c.Longitude = 0, 0

		return nil
	}

	switch v := value.(type) {
	case []byte:
		// The format from DuckDB is "POINT (lng lat)"
		_, err := fmt.Sscanf(string(v), "POINT (%f %f)", &c.Longitude, &c.Latitude)

		return err
	case string:
		_, err := fmt.Sscanf(v, "POINT (%f %f)", &c.Longitude, &c.Latitude)

		return err
	case map[string]interface{}:
		x, okX := v["x"].(float64)
		y, okY := v["y"].(float64)

		if !okX || !okY {
			return fmt.Errorf("spatial: invalid map for coordinates: expected 'x' and 'y' float64 fields, got %+v", v)
		}

		c.Longitude = x
		c.Latitude = y

		return nil
	default:
		return fmt.Errorf("spatial: unsupported type for Coordinates scan: %T", value)
	}
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (c Coordinates) HaversineDistance(other Coordinates) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - c.Latitude) * math.Pi / 180
	dLng := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	h := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * h
}
