// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Femosky/MapOfSecrets/notes"
)

// NotesFetcher retrieves the notes published under one place.
type NotesFetcher interface {
	NotesByPlace(ctx context.Context, level notes.PlaceLevel, placeID string) ([]notes.Note, error)
}

// FocusTracker follows the place the viewport settles on and fetches each
// place's notes exactly once per session. At most one fetch is in flight;
// focus changes that arrive meanwhile are remembered and served when the
// current fetch completes.
type FocusTracker struct {
	level  notes.PlaceLevel
	client NotesFetcher
	cache  *notes.Cache

	mu             sync.Mutex
	lastFocused    string
	currentFocused string
	seenPlaces     map[string]struct{}
	seenNotes      map[string]struct{}
	fetching       bool
	pending        string
}

// NewFocusTracker creates a tracker that fetches notes at the given place
// level and merges them into the cache.
func NewFocusTracker(level notes.PlaceLevel, client NotesFetcher, cache *notes.Cache) *FocusTracker {
	return &FocusTracker{
		level:      level,
		client:     client,
		cache:      cache,
		seenPlaces: make(map[string]struct{}),
		seenNotes:  make(map[string]struct{}),
	}
}

// Focus records placeID as the focused place and fetches its notes unless
// it was already seen this session. Returns once the tracker has either
// finished fetching or handed the place off to the in-flight fetch.
func (t *FocusTracker) Focus(ctx context.Context, placeID string) {
	if placeID == "" {
		return
	}

	t.mu.Lock()
	if placeID != t.currentFocused {
		t.lastFocused = t.currentFocused
		t.currentFocused = placeID
	}

	if _, seen := t.seenPlaces[placeID]; seen {
		t.mu.Unlock()
		return
	}

	if t.fetching {
		// picked up by the goroutine draining the current fetch
		t.pending = placeID
		t.mu.Unlock()

		return
	}

	t.fetching = true
	t.mu.Unlock()

	for {
		t.fetchPlace(ctx, placeID)

		t.mu.Lock()
		next := t.pending
		t.pending = ""

		if next != "" {
			if _, seen := t.seenPlaces[next]; !seen {
				t.mu.Unlock()
				placeID = next

				continue
			}
		}

		t.fetching = false
		t.mu.Unlock()

		return
	}
}

// fetchPlace performs one fetch. The place is marked seen before the
// request resolves so a rapid pan away and back cannot start a duplicate;
// a failed place is likewise not retried within the session.
func (t *FocusTracker) fetchPlace(ctx context.Context, placeID string) {
	t.mu.Lock()
	t.seenPlaces[placeID] = struct{}{}
	t.mu.Unlock()

	fetched, err := t.client.NotesByPlace(ctx, t.level, placeID)
	if err != nil {
		log.Warn().
			Err(err).
			Str("level", string(t.level)).
			Str("placeId", placeID).
			Msg("fetching notes for place failed")

		return
	}

	t.mu.Lock()
	fresh := make([]notes.Note, 0, len(fetched))

	for _, n := range fetched {
		if _, seen := t.seenNotes[n.ID]; seen {
			continue
		}

		t.seenNotes[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	t.mu.Unlock()

	t.cache.Merge(fresh)
}

// MarkNoteSeen records a note id so a later place fetch returning it does
// not duplicate it, used for notes created locally.
func (t *FocusTracker) MarkNoteSeen(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seenNotes[id] = struct{}{}
}

// IsFetching reports whether a place fetch is in flight.
func (t *FocusTracker) IsFetching() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.fetching
}

// CurrentFocus returns the currently focused place id, or "".
func (t *FocusTracker) CurrentFocus() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentFocused
}

// LastFocus returns the previously focused place id, or "".
func (t *FocusTracker) LastFocus() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.lastFocused
}

// Level returns the place level this tracker fetches at.
func (t *FocusTracker) Level() notes.PlaceLevel {
	return t.level
}
