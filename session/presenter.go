// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Femosky/MapOfSecrets/notes"
	"github.com/Femosky/MapOfSecrets/spatial"
)

// MarkerKind is the closed set of marker types the map can show.
type MarkerKind string

// Marker kinds.
const (
	MarkerNote          MarkerKind = "note"
	MarkerNoteCluster   MarkerKind = "noteCluster"
	MarkerCityTown      MarkerKind = "cityTown"
	MarkerStateProvince MarkerKind = "stateProvince"
	MarkerCountry       MarkerKind = "country"
	MarkerLoading       MarkerKind = "loading"
)

// MarkerStyle is the rendering policy of one marker kind.
type MarkerStyle struct {
	Class     string `json:"class"`
	Clickable bool   `json:"clickable"`
}

// markerStyles is the per-kind rendering policy. Adding a kind without a
// row here is a bug, StyleForKind makes the omission visible.
var markerStyles = map[MarkerKind]MarkerStyle{
	MarkerNote:          {Class: "marker-note", Clickable: true},
	MarkerNoteCluster:   {Class: "marker-note-cluster", Clickable: true},
	MarkerCityTown:      {Class: "marker-bubble marker-city", Clickable: false},
	MarkerStateProvince: {Class: "marker-bubble marker-state", Clickable: false},
	MarkerCountry:       {Class: "marker-bubble marker-country", Clickable: false},
	MarkerLoading:       {Class: "marker-loading", Clickable: false},
}

// StyleForKind returns the rendering policy for a marker kind.
func StyleForKind(kind MarkerKind) (MarkerStyle, bool) {
	s, ok := markerStyles[kind]

	return s, ok
}

// Marker is one renderable map marker.
type Marker struct {
	ID          string              `json:"id"`
	Kind        MarkerKind          `json:"kind"`
	Style       MarkerStyle         `json:"style"`
	Coordinates spatial.Coordinates `json:"coordinates"`
	Label       string              `json:"label,omitempty"`
	NoteID      string              `json:"noteId,omitempty"`
	Count       int                 `json:"count,omitempty"`
}

// MarkerDiff is the delta between two consecutive marker snapshots: what
// the widget must create and what it must destroy.
type MarkerDiff struct {
	Created []Marker `json:"created"`
	Removed []Marker `json:"removed"`
}

// Presenter derives the marker set from the session state and tracks the
// previous snapshot so consumers receive create/destroy deltas instead of
// rebuilding every marker on each change.
type Presenter struct {
	mu       sync.Mutex
	previous map[string]Marker
}

// NewPresenter creates an empty presenter.
func NewPresenter() *Presenter {
	return &Presenter{previous: make(map[string]Marker)}
}

// levelForGranularity maps a bubble granularity to its counts level.
func levelForGranularity(g Granularity) (notes.PlaceLevel, bool) {
	switch g {
	case GranularityCountry:
		return notes.LevelCountry, true
	case GranularityStateProvince:
		return notes.LevelStateProvince, true
	case GranularityCityTown:
		return notes.LevelCityTown, true
	default:
		return "", false
	}
}

// Snapshot derives the full marker set for the given state. At bubble
// granularities it renders aggregate counts; at note granularity it
// renders cached notes, clustered to the zoom's resolution. A pending
// save adds a loading marker at the note's spot.
func (p *Presenter) Snapshot(
	state ViewState,
	cached []notes.Note,
	counts *notes.CountsStore,
	pending *spatial.Coordinates,
	saving bool,
) []Marker {
	var markers []Marker

	if level, ok := levelForGranularity(state.Granularity); ok {
		markers = bubbleMarkers(level, counts.Counts(level))
	} else {
		markers = noteMarkers(cached, state.Zoom)
	}

	if saving && pending != nil {
		markers = append(markers, Marker{
			ID:          "loading:" + pending.String(),
			Kind:        MarkerLoading,
			Style:       markerStyles[MarkerLoading],
			Coordinates: *pending,
		})
	}

	return markers
}

func bubbleMarkers(level notes.PlaceLevel, data []notes.PlaceData) []Marker {
	kind := MarkerCountry

	switch level {
	case notes.LevelStateProvince:
		kind = MarkerStateProvince
	case notes.LevelCityTown:
		kind = MarkerCityTown
	}

	markers := make([]Marker, 0, len(data))

	for _, pd := range data {
		markers = append(markers, Marker{
			ID:          fmt.Sprintf("%s:%s", kind, pd.Coordinates),
			Kind:        kind,
			Style:       markerStyles[kind],
			Coordinates: pd.Coordinates,
			Label:       strconv.Itoa(pd.Count),
			Count:       pd.Count,
		})
	}

	return markers
}

func noteMarkers(cached []notes.Note, zoom float64) []Marker {
	coords := make([]spatial.Coordinates, len(cached))
	for i, n := range cached {
		coords[i] = n.Location.Coordinates
	}

	clusters, err := spatial.ClusterCoordinates(coords, spatial.ResolutionForZoom(zoom))
	if err != nil {
		// degenerate coordinates, render every note unclustered
		log.Warn().Err(err).Msg("clustering note markers failed")

		markers := make([]Marker, 0, len(cached))
		for _, n := range cached {
			markers = append(markers, Marker{
				ID:          "note:" + n.ID,
				Kind:        MarkerNote,
				Style:       markerStyles[MarkerNote],
				Coordinates: n.Location.Coordinates,
				NoteID:      n.ID,
			})
		}

		return markers
	}

	var markers []Marker

	for _, cl := range clusters {
		if cl.Count == 1 {
			n := cached[cl.Members[0]]
			markers = append(markers, Marker{
				ID:          "note:" + n.ID,
				Kind:        MarkerNote,
				Style:       markerStyles[MarkerNote],
				Coordinates: n.Location.Coordinates,
				NoteID:      n.ID,
			})

			continue
		}

		markers = append(markers, Marker{
			ID:          "cluster:" + cl.Cell.String(),
			Kind:        MarkerNoteCluster,
			Style:       markerStyles[MarkerNoteCluster],
			Coordinates: cl.Center,
			Label:       strconv.Itoa(cl.Count),
			Count:       cl.Count,
		})
	}

	return markers
}

// Update replaces the previous snapshot with markers and returns the delta
// against it. Markers keep their identity by ID, so an unchanged marker
// appears in neither list.
func (p *Presenter) Update(markers []Marker) MarkerDiff {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[string]Marker, len(markers))

	var diff MarkerDiff

	for _, m := range markers {
		next[m.ID] = m

		if _, ok := p.previous[m.ID]; !ok {
			diff.Created = append(diff.Created, m)
		}
	}

	for id, m := range p.previous {
		if _, ok := next[id]; !ok {
			diff.Removed = append(diff.Removed, m)
		}
	}

	sort.Slice(diff.Removed, func(i, j int) bool {
		return diff.Removed[i].ID < diff.Removed[j].ID
	})

	p.previous = next

	return diff
}
