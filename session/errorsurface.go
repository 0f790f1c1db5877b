// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"sync"
	"time"
)

// ErrorSurface holds the transient user-facing error message. A reported
// message replaces the previous one and clears itself after the dismiss
// interval.
type ErrorSurface struct {
	dismissAfter time.Duration

	mu      sync.Mutex
	message string
	timer   *time.Timer
	gen     uint64
}

// NewErrorSurface creates a surface whose messages auto-dismiss after d.
func NewErrorSurface(d time.Duration) *ErrorSurface {
	return &ErrorSurface{dismissAfter: d}
}

// Report publishes a message, restarting the dismiss countdown. The
// generation counter fences off a previous timer that already fired and is
// waiting on the lock: Stop cannot help with those.
func (e *ErrorSurface) Report(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.message = message
	e.gen++

	if e.timer != nil {
		e.timer.Stop()
	}

	gen := e.gen
	e.timer = time.AfterFunc(e.dismissAfter, func() { e.dismiss(gen) })
}

// Current returns the visible message, or "" if none (or dismissed).
func (e *ErrorSurface) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.message
}

// Clear removes the visible message immediately.
func (e *ErrorSurface) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.gen++
	e.message = ""
}

// dismiss clears the message unless a newer one replaced it meanwhile.
func (e *ErrorSurface) dismiss(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen {
		return
	}

	e.message = ""
}

// Close stops the pending dismiss timer.
func (e *ErrorSurface) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}
