// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package notes

import "sync"

// Cache accumulates notes from backend fetches and from local creation.
// Notes are append-only for the lifetime of a session; duplicates are
// rejected by id, so re-merging a fetch result is a no-op.
type Cache struct {
	mu    sync.Mutex
	notes []Note
	seen  map[string]struct{}
}

// NewCache creates an empty notes cache.
func NewCache() *Cache {
	return &Cache{seen: make(map[string]struct{})}
}

// Merge appends every note whose id is not already present and returns how
// many were added. Idempotent: merging the same list twice adds nothing the
// second time.
func (c *Cache) Merge(notes []Note) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0

	for _, n := range notes {
		if _, ok := c.seen[n.ID]; ok {
			continue
		}

		c.seen[n.ID] = struct{}{}
		c.notes = append(c.notes, n)
		added++
	}

	return added
}

// Add appends a just-confirmed note unconditionally; the backend-assigned id
// is trusted to be novel.
func (c *Cache) Add(note Note) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[note.ID] = struct{}{}
	c.notes = append(c.notes, note)
}

// Contains reports whether a note id is already cached.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.seen[id]

	return ok
}

// All returns a copy of the cached notes in insertion order.
func (c *Cache) All() []Note {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Note, len(c.notes))
	copy(out, c.notes)

	return out
}

// Len returns the number of cached notes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.notes)
}
