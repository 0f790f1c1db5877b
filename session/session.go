// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Femosky/MapOfSecrets/geocode"
	"github.com/Femosky/MapOfSecrets/notes"
	"github.com/Femosky/MapOfSecrets/spatial"
)

// Resolver turns coordinates into a place hierarchy and back.
type Resolver interface {
	GeneralLocation(ctx context.Context, coords spatial.Coordinates) (*geocode.GeneralLocation, error)
	GeneralCoordinates(ctx context.Context, loc *geocode.GeneralLocation) (*geocode.GeneralCoordinates, error)
}

// Backend is the note backend the session talks to. *notes.Client
// satisfies it.
type Backend interface {
	CreateNote(ctx context.Context, text string, location notes.Location) (string, error)
	NotesByPlace(ctx context.Context, level notes.PlaceLevel, placeID string) ([]notes.Note, error)
	LocationCounts(ctx context.Context, level notes.PlaceLevel) ([]notes.PlaceData, error)
}

// LocalStore persists the session's notes locally so a restart does not
// start cold. Optional.
type LocalStore interface {
	LoadNotes(ctx context.Context) ([]notes.Note, error)
	SaveNote(ctx context.Context, n notes.Note) error
}

// Options tunes a session.
type Options struct {
	// MinNoteChars and MaxNoteChars bound note length, inclusive.
	MinNoteChars int
	MaxNoteChars int
	// ErrorDismissAfter is how long a reported error stays visible.
	ErrorDismissAfter time.Duration
	// FetchLevel is the place level at which notes are fetched on focus.
	FetchLevel notes.PlaceLevel
	// Center and Zoom position the initial viewport.
	Center spatial.Coordinates
	Zoom   float64
}

// Validation and flow errors surfaced to the API layer.
var (
	ErrNoteTooShort     = errors.New("note text below minimum length")
	ErrNoteTooLong      = errors.New("note text above maximum length")
	ErrNoPendingNote    = errors.New("no note position selected")
	ErrSaveInProgress   = errors.New("a note save is already in progress")
	ErrSelectionUnknown = errors.New("no cached note with that id")
)

// PendingNote is a note position pinned by the user that has not been
// submitted yet. It becomes a notes.Note only once the backend confirms
// the creation.
type PendingNote struct {
	Coordinates spatial.Coordinates `json:"coordinates"`
}

// Session wires the view state, the focus pipeline, the caches and the
// presenter into the interaction flow the map widget drives.
type Session struct {
	opts      Options
	view      *ViewStateController
	tracker   *FocusTracker
	cache     *notes.Cache
	counts    *notes.CountsStore
	resolver  Resolver
	backend   Backend
	presenter *Presenter
	errs      *ErrorSurface
	local     LocalStore

	mu             sync.Mutex
	pending        *PendingNote
	saving         bool
	selectedNoteID string
	subscribers    map[int]Listener
	nextSub        int
}

// Listener receives a state snapshot after every session transition.
type Listener func(State)

// New assembles a session. local may be nil.
func New(resolver Resolver, backend Backend, local LocalStore, opts Options) *Session {
	cache := notes.NewCache()

	return &Session{
		opts:      opts,
		view:      NewViewStateController(opts.Center, opts.Zoom),
		tracker:   NewFocusTracker(opts.FetchLevel, backend, cache),
		cache:     cache,
		counts:    notes.NewCountsStore(backend),
		resolver:  resolver,
		backend:   backend,
		presenter: NewPresenter(),
		errs:      NewErrorSurface(opts.ErrorDismissAfter),
		local:     local,
	}
}

// Start warms the session: notes from the local store, then the aggregate
// counts. Neither failure is fatal, the session starts cold instead.
func (s *Session) Start(ctx context.Context) {
	if s.local != nil {
		stored, err := s.local.LoadNotes(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("loading local notes failed")
		} else {
			for _, n := range stored {
				s.tracker.MarkNoteSeen(n.ID)
			}

			s.cache.Merge(stored)
		}
	}

	if err := s.counts.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("initial counts refresh incomplete")
	}
}

// Subscribe registers a listener for session transitions. The returned
// cancel function unregisters it; callers must invoke it on teardown.
func (s *Session) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subscribers == nil {
		s.subscribers = make(map[int]Listener)
	}

	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = l

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subscribers, id)
	}
}

// notify delivers the current snapshot to every subscriber. Called outside
// the session lock.
func (s *Session) notify() {
	state := s.State()

	s.mu.Lock()
	listeners := make([]Listener, 0, len(s.subscribers))

	for _, l := range s.subscribers {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(state)
	}
}

// HandleZoom applies a zoom change and returns the new view state.
func (s *Session) HandleZoom(zoom float64) ViewState {
	state := s.view.OnZoomChanged(zoom)
	s.notify()

	return state
}

// HandleViewportSettled records the new center and, when zoomed in far
// enough, resolves the place under it and fetches that place's notes.
func (s *Session) HandleViewportSettled(ctx context.Context, center spatial.Coordinates) ViewState {
	state := s.view.SetCenter(center)

	if !s.view.ShouldResolve() {
		return state
	}

	loc, err := s.resolver.GeneralLocation(ctx, center)
	if err != nil {
		// resolution failures degrade silently, the next settle retries
		log.Debug().Err(err).Stringer("center", center).Msg("place resolution failed")

		return state
	}

	if placeID := placeIDAt(loc, s.tracker.Level()); placeID != "" {
		s.tracker.Focus(ctx, placeID)
	}

	s.notify()

	return state
}

// placeIDAt extracts the focus key at one level of the hierarchy.
func placeIDAt(loc *geocode.GeneralLocation, level notes.PlaceLevel) string {
	switch level {
	case notes.LevelCityTown:
		return placeKey(loc.CityTown)
	case notes.LevelStateProvince:
		return placeKey(loc.StateProvince)
	case notes.LevelCountry:
		return placeKey(loc.Country)
	default:
		return ""
	}
}

// placeKey prefers the provider place id; places without one fall back to
// a normalized name key so spelling variants of the same place dedup.
func placeKey(p geocode.PlaceInfo) string {
	if p.PlaceID != "" {
		return p.PlaceID
	}

	return geocode.NormalizeKey(p.Name)
}

// HandleClick handles a map click. In writing mode it pins the pending
// note position and reports true; otherwise it does nothing.
func (s *Session) HandleClick(coords spatial.Coordinates) (ViewState, bool) {
	state := s.view.State()

	if !state.IsWriting || !state.IsInWritingRange {
		return state, false
	}

	s.mu.Lock()
	s.pending = &PendingNote{Coordinates: coords.Truncate()}
	s.mu.Unlock()

	s.notify()

	return state, true
}

// ToggleWriting flips writing mode. Leaving writing mode drops any pending
// note position.
func (s *Session) ToggleWriting() ViewState {
	state := s.view.ToggleWriting()

	if !state.IsWriting {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
	}

	s.notify()

	return state
}

// SubmitNote runs the note-creation flow: validate length, resolve the
// pinned position's place hierarchy forward and back, create the note on
// the backend, then fold it into the caches and refresh the counts. On any
// failure the pending position and writing mode survive so the user can
// retry.
func (s *Session) SubmitNote(ctx context.Context, text string) (*notes.Note, error) {
	if err := s.validateText(text); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return nil, ErrSaveInProgress
	}

	if s.pending == nil {
		s.mu.Unlock()
		return nil, ErrNoPendingNote
	}

	coords := s.pending.Coordinates
	s.saving = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()

		s.notify()
	}()

	note, err := s.createNote(ctx, text, coords)
	if err != nil {
		s.errs.Report(err.Error())

		return nil, err
	}

	s.tracker.MarkNoteSeen(note.ID)
	s.cache.Add(*note)

	if s.local != nil {
		if err := s.local.SaveNote(ctx, *note); err != nil {
			log.Warn().Err(err).Str("noteId", note.ID).Msg("persisting note locally failed")
		}
	}

	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()

	s.view.ExitWriting()

	if err := s.counts.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("counts refresh after note creation incomplete")
	}

	return note, nil
}

func (s *Session) validateText(text string) error {
	n := utf8.RuneCountInString(text)

	switch {
	case n < s.opts.MinNoteChars:
		return fmt.Errorf("%w: %d < %d", ErrNoteTooShort, n, s.opts.MinNoteChars)
	case n > s.opts.MaxNoteChars:
		return fmt.Errorf("%w: %d > %d", ErrNoteTooLong, n, s.opts.MaxNoteChars)
	default:
		return nil
	}
}

func (s *Session) createNote(ctx context.Context, text string, coords spatial.Coordinates) (*notes.Note, error) {
	loc, err := s.resolver.GeneralLocation(ctx, coords)
	if err != nil {
		return nil, fmt.Errorf("resolving note location: %w", err)
	}

	general, err := s.resolver.GeneralCoordinates(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("resolving place coordinates: %w", err)
	}

	location := notes.NewLocation(coords, *loc, *general)

	id, err := s.backend.CreateNote(ctx, text, location)
	if err != nil {
		return nil, fmt.Errorf("creating note: %w", err)
	}

	return &notes.Note{
		ID:        id,
		Timestamp: time.Now(),
		Location:  location,
		Text:      text,
	}, nil
}

// SelectNote marks a cached note as selected and returns it.
func (s *Session) SelectNote(id string) (*notes.Note, error) {
	if !s.cache.Contains(id) {
		return nil, ErrSelectionUnknown
	}

	for _, n := range s.cache.All() {
		if n.ID == id {
			s.mu.Lock()
			s.selectedNoteID = id
			s.mu.Unlock()

			return &n, nil
		}
	}

	return nil, ErrSelectionUnknown
}

// ClearSelection drops the selected note.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.selectedNoteID = ""
}

// Markers derives the current marker set and the delta against the last
// snapshot.
func (s *Session) Markers() ([]Marker, MarkerDiff) {
	s.mu.Lock()
	pending := s.pendingCoordinatesLocked()
	saving := s.saving
	s.mu.Unlock()

	markers := s.presenter.Snapshot(s.view.State(), s.cache.All(), s.counts, pending, saving)

	return markers, s.presenter.Update(markers)
}

// pendingCoordinatesLocked copies the pending position. Caller holds the
// lock.
func (s *Session) pendingCoordinatesLocked() *spatial.Coordinates {
	if s.pending == nil {
		return nil
	}

	c := s.pending.Coordinates

	return &c
}

// State is the full session snapshot the API exposes.
type State struct {
	View               ViewState            `json:"view"`
	PendingCoordinates *spatial.Coordinates `json:"pendingCoordinates,omitempty"`
	SavingNote         bool                 `json:"savingNote"`
	FetchingNotes      bool                 `json:"fetchingNotes"`
	SelectedNoteID     string               `json:"selectedNoteId,omitempty"`
	CachedNotes        int                  `json:"cachedNotes"`
	Error              string               `json:"error,omitempty"`
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	s.mu.Lock()
	pending := s.pendingCoordinatesLocked()
	saving := s.saving
	selected := s.selectedNoteID
	s.mu.Unlock()

	return State{
		View:               s.view.State(),
		PendingCoordinates: pending,
		SavingNote:         saving,
		FetchingNotes:      s.tracker.IsFetching(),
		SelectedNoteID:     selected,
		CachedNotes:        s.cache.Len(),
		Error:              s.errs.Current(),
	}
}

// Notes returns the cached notes.
func (s *Session) Notes() []notes.Note {
	return s.cache.All()
}

// Close releases the session's timers and drops every subscriber.
func (s *Session) Close() {
	s.errs.Close()

	s.mu.Lock()
	s.subscribers = nil
	s.mu.Unlock()
}
