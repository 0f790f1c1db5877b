// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

// Package session owns one map session: the zoom-driven view state, the
// place-focus tracking pipeline, the note caches and the marker presenter,
// plus the HTTP surface the map widget drives.
package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Femosky/MapOfSecrets/spatial"
)

// Zoom-band boundaries. Bands are closed on the upper bound: a zoom exactly
// on a boundary belongs to the coarser band.
const (
	globeMaxZoom   = 3.0
	countryMaxZoom = 4.0
	stateMaxZoom   = 9.0

	// resolveMinZoom gates place resolution on viewport settle; below it
	// the map is too coarse for a focused place to mean anything, and
	// reverse geocoding the center would be wasted calls.
	resolveMinZoom = 9.0

	// writingMinZoom gates note creation; writing is allowed strictly
	// above it.
	writingMinZoom = 13.0
)

// Granularity is the discrete display mode the current zoom selects: which
// marker population is visible.
type Granularity int

const (
	// GranularityCountry shows country bubbles (globe-level zoom).
	GranularityCountry Granularity = iota
	// GranularityStateProvince shows state/province bubbles.
	GranularityStateProvince
	// GranularityCityTown shows city/town bubbles.
	GranularityCityTown
	// GranularityNote shows individual notes.
	GranularityNote
)

func (g Granularity) String() string {
	switch g {
	case GranularityCountry:
		return "country"
	case GranularityStateProvince:
		return "stateProvince"
	case GranularityCityTown:
		return "cityTown"
	case GranularityNote:
		return "note"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the granularity as its name.
func (g Granularity) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON parses a granularity name.
func (g *Granularity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	switch name {
	case "country":
		*g = GranularityCountry
	case "stateProvince":
		*g = GranularityStateProvince
	case "cityTown":
		*g = GranularityCityTown
	case "note":
		*g = GranularityNote
	default:
		return fmt.Errorf("unknown granularity %q", name)
	}

	return nil
}

// GranularityForZoom maps a zoom level to the displayed granularity. Total
// and exhaustive: every zoom value lands in exactly one band.
func GranularityForZoom(zoom float64) Granularity {
	switch {
	case zoom <= globeMaxZoom:
		return GranularityCountry
	case zoom <= countryMaxZoom:
		return GranularityStateProvince
	case zoom <= stateMaxZoom:
		return GranularityCityTown
	default:
		return GranularityNote
	}
}

// InWritingRange reports whether note creation is permitted at this zoom.
func InWritingRange(zoom float64) bool {
	return zoom > writingMinZoom
}

// MapStyle names the tile style for a zoom band. The style tables
// themselves live with the map widget; the session only picks the band.
type MapStyle string

// The style bands, coarsest to finest.
const (
	StyleGlobe        MapStyle = "globe"
	StyleCountry      MapStyle = "country"
	StyleState        MapStyle = "state"
	StyleCity         MapStyle = "city"
	StyleNeighborhood MapStyle = "neighborhood"
	StyleStreet       MapStyle = "street"
)

// StyleForZoom maps a zoom level to its tile-style band.
func StyleForZoom(zoom float64) MapStyle {
	switch {
	case zoom <= 3:
		return StyleGlobe
	case zoom <= 4:
		return StyleCountry
	case zoom <= 6:
		return StyleState
	case zoom <= 10:
		return StyleCity
	case zoom <= 12:
		return StyleNeighborhood
	default:
		return StyleStreet
	}
}

// Cursor is the pointer affordance the map should show.
type Cursor string

// Cursor values.
const (
	CursorDefault Cursor = "default"
	CursorText    Cursor = "text"
)

// ViewState is the zoom-derived interaction state of a session.
type ViewState struct {
	Zoom             float64             `json:"zoom"`
	Center           spatial.Coordinates `json:"center"`
	Granularity      Granularity         `json:"granularity"`
	Style            MapStyle            `json:"style"`
	IsInWritingRange bool                `json:"isInWritingRange"`
	IsWriting        bool                `json:"isWriting"`
	Cursor           Cursor              `json:"cursor"`
}

// ViewStateController is the single source of truth for zoom-derived state.
type ViewStateController struct {
	mu    sync.Mutex
	state ViewState
}

// NewViewStateController creates a controller positioned at the given
// center and zoom.
func NewViewStateController(center spatial.Coordinates, zoom float64) *ViewStateController {
	c := &ViewStateController{}
	c.state.Center = center.Truncate()
	c.apply(zoom)

	return c
}

// apply recomputes every derived field for the given zoom. Caller holds the
// lock (or is the constructor).
func (c *ViewStateController) apply(zoom float64) {
	c.state.Zoom = zoom
	c.state.Granularity = GranularityForZoom(zoom)
	c.state.Style = StyleForZoom(zoom)
	c.state.IsInWritingRange = InWritingRange(zoom)

	// crossing below the writing threshold force-exits writing mode; the
	// reset is one-way, zooming back in does not restore it
	if !c.state.IsInWritingRange {
		c.state.IsWriting = false
	}

	c.state.Cursor = CursorDefault
	if c.state.IsWriting {
		c.state.Cursor = CursorText
	}
}

// OnZoomChanged recomputes granularity, style and writing eligibility.
func (c *ViewStateController) OnZoomChanged(zoom float64) ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apply(zoom)

	return c.state
}

// SetCenter records the viewport center, truncated.
func (c *ViewStateController) SetCenter(center spatial.Coordinates) ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Center = center.Truncate()

	return c.state
}

// ToggleWriting flips writing mode. No-op when out of writing range.
func (c *ViewStateController) ToggleWriting() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsInWritingRange {
		return c.state
	}

	c.state.IsWriting = !c.state.IsWriting

	c.state.Cursor = CursorDefault
	if c.state.IsWriting {
		c.state.Cursor = CursorText
	}

	return c.state
}

// ExitWriting leaves writing mode, used after a successful note save.
func (c *ViewStateController) ExitWriting() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.IsWriting = false
	c.state.Cursor = CursorDefault

	return c.state
}

// ShouldResolve reports whether a viewport-settle event at the current zoom
// warrants place resolution.
func (c *ViewStateController) ShouldResolve() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state.Zoom > resolveMinZoom
}

// State returns a copy of the current view state.
func (c *ViewStateController) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}
