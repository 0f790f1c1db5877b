// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Femosky/MapOfSecrets/spatial"
)

// Server exposes one session over HTTP for the map widget.
type Server struct {
	session *Session
}

// NewServer wraps a session.
func NewServer(session *Session) *Server {
	return &Server{session: session}
}

// Routes registers the session API on r.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/api/session", s.getState)
	r.GET("/api/session/notes", s.listNotes)
	r.GET("/api/session/markers", s.getMarkers)
	r.POST("/api/session/events/zoom", s.zoomChanged)
	r.POST("/api/session/events/settle", s.viewportSettled)
	r.POST("/api/session/events/click", s.mapClicked)
	r.POST("/api/session/writing/toggle", s.toggleWriting)
	r.POST("/api/session/notes", s.submitNote)
	r.POST("/api/session/selection", s.selectNote)
	r.DELETE("/api/session/selection", s.clearSelection)
}

// Run registers the routes on a default engine and serves on addr.
func (s *Server) Run(addr string) error {
	r := gin.Default()
	s.Routes(r)

	return r.Run(addr)
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getState(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.session.State())
}

func (s *Server) listNotes(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"notes": s.session.Notes()})
}

func (s *Server) getMarkers(ctx *gin.Context) {
	markers, diff := s.session.Markers()

	ctx.JSON(http.StatusOK, gin.H{"markers": markers, "diff": diff})
}

type zoomRequest struct {
	// pointer so zoom 0 (fully zoomed out) still binds
	Zoom *float64 `json:"zoom" binding:"required"`
}

func (s *Server) zoomChanged(ctx *gin.Context) {
	var req zoomRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, s.session.HandleZoom(*req.Zoom))
}

type coordinatesRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (r coordinatesRequest) coordinates() spatial.Coordinates {
	return spatial.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude}
}

func (s *Server) viewportSettled(ctx *gin.Context) {
	var req coordinatesRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	coords := req.coordinates()
	if !coords.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})

		return
	}

	state := s.session.HandleViewportSettled(ctx.Request.Context(), coords)

	ctx.JSON(http.StatusOK, state)
}

func (s *Server) mapClicked(ctx *gin.Context) {
	var req coordinatesRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	coords := req.coordinates()
	if !coords.Valid() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})

		return
	}

	state, pinned := s.session.HandleClick(coords)

	ctx.JSON(http.StatusOK, gin.H{"view": state, "pinned": pinned})
}

func (s *Server) toggleWriting(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.session.ToggleWriting())
}

type submitNoteRequest struct {
	Text string `json:"text"`
}

func (s *Server) submitNote(ctx *gin.Context) {
	var req submitNoteRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	note, err := s.session.SubmitNote(ctx.Request.Context(), req.Text)
	if err != nil {
		ctx.JSON(submitStatus(err), gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, note)
}

// submitStatus maps note-creation failures to HTTP statuses: client
// mistakes are 400, a concurrent save is 409, upstream trouble is 502.
func submitStatus(err error) int {
	switch {
	case errors.Is(err, ErrNoteTooShort),
		errors.Is(err, ErrNoteTooLong),
		errors.Is(err, ErrNoPendingNote):
		return http.StatusBadRequest
	case errors.Is(err, ErrSaveInProgress):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

type selectNoteRequest struct {
	NoteID string `json:"noteId" binding:"required"`
}

func (s *Server) selectNote(ctx *gin.Context) {
	var req selectNoteRequest
	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	note, err := s.session.SelectNote(req.NoteID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, note)
}

func (s *Server) clearSelection(ctx *gin.Context) {
	s.session.ClearSelection()

	ctx.JSON(http.StatusOK, gin.H{"success": true})
}
