// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Femosky/MapOfSecrets/geocode"
	"github.com/Femosky/MapOfSecrets/notes"
	"github.com/Femosky/MapOfSecrets/spatial"
)

var torontoHierarchy = geocode.GeneralLocation{
	CityTown:      geocode.PlaceInfo{PlaceID: "place-toronto", Name: "Toronto"},
	StateProvince: geocode.PlaceInfo{PlaceID: "place-ontario", Name: "Ontario"},
	Country:       geocode.PlaceInfo{PlaceID: "place-canada", Name: "Canada"},
}

// fakeResolver resolves everything to the Toronto hierarchy.
type fakeResolver struct {
	mu           sync.Mutex
	locations    int
	coordinates  int
	locationErr  error
	forwardErr   error
	hierarchy    *geocode.GeneralLocation
	lastResolved spatial.Coordinates
}

func (f *fakeResolver) GeneralLocation(_ context.Context, coords spatial.Coordinates) (*geocode.GeneralLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.locations++
	f.lastResolved = coords

	if f.locationErr != nil {
		return nil, f.locationErr
	}

	loc := torontoHierarchy
	if f.hierarchy != nil {
		loc = *f.hierarchy
	}

	return &loc, nil
}

func (f *fakeResolver) GeneralCoordinates(_ context.Context, _ *geocode.GeneralLocation) (*geocode.GeneralCoordinates, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.coordinates++

	if f.forwardErr != nil {
		return nil, f.forwardErr
	}

	return &geocode.GeneralCoordinates{
		CityTown:      spatial.Coordinates{Latitude: 43.6532, Longitude: -79.3832},
		StateProvince: spatial.Coordinates{Latitude: 50.0, Longitude: -85.0},
		Country:       spatial.Coordinates{Latitude: 56.1, Longitude: -106.3},
	}, nil
}

func (f *fakeResolver) locationCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.locations
}

// fakeBackend implements Backend in memory.
type fakeBackend struct {
	mu        sync.Mutex
	createErr error
	created   []string
	notesBy   map[string][]notes.Note
	counts    map[notes.PlaceLevel][]notes.PlaceData
	fetches   map[string]int
	nextID    int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		notesBy: make(map[string][]notes.Note),
		counts:  make(map[notes.PlaceLevel][]notes.PlaceData),
		fetches: make(map[string]int),
	}
}

func (f *fakeBackend) CreateNote(_ context.Context, text string, _ notes.Location) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}

	f.nextID++
	f.created = append(f.created, text)

	return fmt.Sprintf("backend-%d", f.nextID), nil
}

func (f *fakeBackend) NotesByPlace(_ context.Context, _ notes.PlaceLevel, placeID string) ([]notes.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches[placeID]++

	return f.notesBy[placeID], nil
}

func (f *fakeBackend) fetchCalls(placeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetches[placeID]
}

func (f *fakeBackend) LocationCounts(_ context.Context, level notes.PlaceLevel) ([]notes.PlaceData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.counts[level], nil
}

func (f *fakeBackend) createdNotes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.created...)
}

func testOptions() Options {
	return Options{
		MinNoteChars:      4,
		MaxNoteChars:      280,
		ErrorDismissAfter: 50 * time.Millisecond,
		FetchLevel:        notes.LevelStateProvince,
		Center:            spatial.Coordinates{Latitude: 43.526646, Longitude: -79.891205},
		Zoom:              12,
	}
}

func newTestSession(t *testing.T) (*Session, *fakeResolver, *fakeBackend) {
	t.Helper()

	resolver := &fakeResolver{}
	backend := newFakeBackend()

	s := New(resolver, backend, nil, testOptions())
	t.Cleanup(s.Close)

	return s, resolver, backend
}

func TestSubmitNoteFullFlow(t *testing.T) {
	s, resolver, backend := newTestSession(t)
	ctx := context.Background()

	s.HandleZoom(15)
	state := s.ToggleWriting()
	require.True(t, state.IsWriting)

	_, pinned := s.HandleClick(spatial.Coordinates{Latitude: 43.6532999, Longitude: -79.3832999})
	require.True(t, pinned)

	note, err := s.SubmitNote(ctx, "my little secret")
	require.NoError(t, err)

	// coordinates were pinned truncated
	assert.InDelta(t, 43.653299, note.Location.Coordinates.Latitude, 1e-6)
	assert.InDelta(t, -79.383299, note.Location.Coordinates.Longitude, 1e-6)
	assert.Equal(t, "Toronto", note.Location.CityTown)
	assert.Equal(t, "my little secret", note.Text)
	assert.NotEmpty(t, note.ID)
	assert.NotZero(t, note.Timestamp)

	assert.Equal(t, []string{"my little secret"}, backend.createdNotes())
	assert.Equal(t, 1, s.cache.Len())
	assert.Equal(t, 1, resolver.locationCalls())

	// writing mode and the pending position are gone
	st := s.State()
	assert.False(t, st.View.IsWriting)
	assert.Nil(t, st.PendingCoordinates)
	assert.False(t, st.SavingNote)
	assert.Empty(t, st.Error)
}

func TestSubmitNoteTextLengthBounds(t *testing.T) {
	s, resolver, backend := newTestSession(t)
	ctx := context.Background()

	s.HandleZoom(15)
	s.ToggleWriting()
	s.HandleClick(spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	// below minimum: rejected before any upstream call
	_, err := s.SubmitNote(ctx, "abc")
	assert.ErrorIs(t, err, ErrNoteTooShort)
	assert.Zero(t, resolver.locationCalls())
	assert.Empty(t, backend.createdNotes())

	// above maximum
	_, err = s.SubmitNote(ctx, strings.Repeat("x", 281))
	assert.ErrorIs(t, err, ErrNoteTooLong)

	// exactly at the bounds is accepted
	_, err = s.SubmitNote(ctx, "abcd")
	assert.NoError(t, err)

	s.ToggleWriting()
	s.HandleClick(spatial.Coordinates{Latitude: 43.66, Longitude: -79.39})
	_, err = s.SubmitNote(ctx, strings.Repeat("x", 280))
	assert.NoError(t, err)
}

func TestSubmitNoteWithoutPendingPosition(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.HandleZoom(15)
	s.ToggleWriting()

	_, err := s.SubmitNote(context.Background(), "my little secret")
	assert.ErrorIs(t, err, ErrNoPendingNote)
}

func TestSubmitNoteBackendFailureKeepsState(t *testing.T) {
	s, _, backend := newTestSession(t)
	backend.createErr = errors.New("duplicate note")

	ctx := context.Background()
	s.HandleZoom(15)
	s.ToggleWriting()
	s.HandleClick(spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	_, err := s.SubmitNote(ctx, "my little secret")
	require.Error(t, err)

	// the user can retry: writing mode and the pin survive, nothing cached
	st := s.State()
	assert.True(t, st.View.IsWriting)
	assert.NotNil(t, st.PendingCoordinates)
	assert.Zero(t, s.cache.Len())
	assert.Contains(t, st.Error, "duplicate note")
}

func TestSubmitNoteErrorAutoDismisses(t *testing.T) {
	s, resolver, _ := newTestSession(t)
	resolver.locationErr = errors.New("geocoder down")

	s.HandleZoom(15)
	s.ToggleWriting()
	s.HandleClick(spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	_, err := s.SubmitNote(context.Background(), "my little secret")
	require.Error(t, err)
	assert.NotEmpty(t, s.State().Error)

	assert.Eventually(t, func() bool {
		return s.State().Error == ""
	}, time.Second, 10*time.Millisecond)
}

func TestHandleClickIgnoredOutsideWritingMode(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.HandleZoom(15)

	_, pinned := s.HandleClick(spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})
	assert.False(t, pinned)
	assert.Nil(t, s.State().PendingCoordinates)
}

func TestToggleWritingOffDropsPendingPosition(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.HandleZoom(15)
	s.ToggleWriting()
	s.HandleClick(spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})
	require.NotNil(t, s.State().PendingCoordinates)

	s.ToggleWriting()
	assert.Nil(t, s.State().PendingCoordinates)
}

func TestHandleViewportSettledResolvesOnlyWhenZoomedIn(t *testing.T) {
	s, resolver, backend := newTestSession(t)
	backend.notesBy["place-ontario"] = []notes.Note{noteAt("1", 43.5, -79.8)}

	ctx := context.Background()

	// coarse zoom: no resolution
	s.HandleZoom(8)
	s.HandleViewportSettled(ctx, spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})
	assert.Zero(t, resolver.locationCalls())
	assert.Zero(t, s.cache.Len())

	// fine zoom: resolve and fetch the focused place's notes
	s.HandleZoom(12)
	s.HandleViewportSettled(ctx, spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})
	assert.Equal(t, 1, resolver.locationCalls())
	assert.Equal(t, 1, s.cache.Len())
	assert.Equal(t, "place-ontario", s.tracker.CurrentFocus())
}

func TestHandleViewportSettledDedupsPlacesWithoutIDs(t *testing.T) {
	s, resolver, backend := newTestSession(t)
	ctx := context.Background()

	s.HandleZoom(12)

	// two provider spellings of the same province, neither with a place id
	first := torontoHierarchy
	first.StateProvince = geocode.PlaceInfo{Name: "Ontário"}
	resolver.hierarchy = &first
	s.HandleViewportSettled(ctx, spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	second := torontoHierarchy
	second.StateProvince = geocode.PlaceInfo{Name: "Ontario"}
	resolver.hierarchy = &second
	s.HandleViewportSettled(ctx, spatial.Coordinates{Latitude: 43.66, Longitude: -79.39})

	assert.Equal(t, "ontario", s.tracker.CurrentFocus())
	assert.Equal(t, 1, backend.fetchCalls("ontario"))
}

func TestHandleViewportSettledResolutionFailureDegrades(t *testing.T) {
	s, resolver, _ := newTestSession(t)
	resolver.locationErr = errors.New("quota exceeded")

	s.HandleZoom(12)
	state := s.HandleViewportSettled(context.Background(), spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	assert.Equal(t, 12.0, state.Zoom)
	assert.Empty(t, s.tracker.CurrentFocus())
	assert.Empty(t, s.State().Error, "resolution failures are not user-facing")
}

func TestSelectNote(t *testing.T) {
	s, _, backend := newTestSession(t)
	backend.notesBy["place-ontario"] = []notes.Note{noteAt("1", 43.5, -79.8)}

	ctx := context.Background()
	s.HandleZoom(12)
	s.HandleViewportSettled(ctx, spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	note, err := s.SelectNote("1")
	require.NoError(t, err)
	assert.Equal(t, "note 1", note.Text)
	assert.Equal(t, "1", s.State().SelectedNoteID)

	s.ClearSelection()
	assert.Empty(t, s.State().SelectedNoteID)

	_, err = s.SelectNote("missing")
	assert.ErrorIs(t, err, ErrSelectionUnknown)
}

func TestMarkersReflectGranularity(t *testing.T) {
	s, _, backend := newTestSession(t)
	backend.counts[notes.LevelCountry] = []notes.PlaceData{
		{Count: 9, Coordinates: spatial.Coordinates{Latitude: 56.1, Longitude: -106.3}},
	}
	backend.notesBy["place-ontario"] = []notes.Note{noteAt("1", 43.5, -79.8)}

	ctx := context.Background()
	s.Start(ctx)

	s.HandleZoom(2)
	markers, diff := s.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, MarkerCountry, markers[0].Kind)
	assert.Len(t, diff.Created, 1)

	s.HandleZoom(12)
	s.HandleViewportSettled(ctx, spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	markers, diff = s.Markers()
	require.Len(t, markers, 1)
	assert.Equal(t, MarkerNote, markers[0].Kind)
	assert.Len(t, diff.Created, 1)
	assert.Len(t, diff.Removed, 1, "the country bubble goes away")
}

func TestSubscribeReceivesTransitions(t *testing.T) {
	s, _, _ := newTestSession(t)

	var (
		mu     sync.Mutex
		states []State
	)

	cancel := s.Subscribe(func(st State) {
		mu.Lock()
		defer mu.Unlock()

		states = append(states, st)
	})

	s.HandleZoom(15)
	s.ToggleWriting()

	mu.Lock()
	require.Len(t, states, 2)
	assert.Equal(t, 15.0, states[0].View.Zoom)
	assert.True(t, states[1].View.IsWriting)
	mu.Unlock()

	// after cancel no further snapshots arrive
	cancel()
	s.HandleZoom(10)

	mu.Lock()
	assert.Len(t, states, 2)
	mu.Unlock()
}

// memoryStore implements LocalStore in memory.
type memoryStore struct {
	mu    sync.Mutex
	saved []notes.Note
}

func (m *memoryStore) LoadNotes(_ context.Context) ([]notes.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]notes.Note(nil), m.saved...), nil
}

func (m *memoryStore) SaveNote(_ context.Context, n notes.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saved = append(m.saved, n)

	return nil
}

func TestStartWarmsFromLocalStore(t *testing.T) {
	store := &memoryStore{saved: []notes.Note{noteAt("stored-1", 43.5, -79.8)}}

	s := New(&fakeResolver{}, newFakeBackend(), store, testOptions())
	t.Cleanup(s.Close)

	s.Start(context.Background())

	assert.Equal(t, 1, s.cache.Len())
}

func TestSubmitNotePersistsLocally(t *testing.T) {
	store := &memoryStore{}

	s := New(&fakeResolver{}, newFakeBackend(), store, testOptions())
	t.Cleanup(s.Close)

	ctx := context.Background()
	s.HandleZoom(15)
	s.ToggleWriting()
	s.HandleClick(spatial.Coordinates{Latitude: 43.65, Longitude: -79.38})

	_, err := s.SubmitNote(ctx, "my little secret")
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "my little secret", store.saved[0].Text)
}
