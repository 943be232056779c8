// Eventry - Community Events Directory and Calendar Import
// Copyright 2026 The Eventry Authors
// SPDX-License-Identifier: MIT
// https://github.com/eventry/eventry

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/eventry/eventry/internal/database"
	"github.com/eventry/eventry/internal/feed"
	"github.com/eventry/eventry/internal/logging"
	"github.com/eventry/eventry/internal/metrics"
	"github.com/eventry/eventry/internal/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if err := s.db.Ping(r.Context()); err != nil {
		rw.Error(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "database not ready")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	sources, err := s.db.ListSources(r.Context())
	if err != nil {
		s.internalError(rw, r, err, "Failed to list sources")
		return
	}
	rw.SuccessWithStatus(http.StatusOK, sources, &APIMeta{Count: len(sources)})
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var src models.Source
	if err := json.NewDecoder(r.Body).Decode(&src); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	src.ID = 0
	src.LastImportedAt = nil
	if err := src.Validate(); err != nil {
		rw.Error(http.StatusUnprocessableEntity, ErrCodeValidationFailed, err.Error())
		return
	}

	if err := s.db.InsertSource(r.Context(), &src); err != nil {
		s.internalError(rw, r, err, "Failed to create source")
		return
	}
	logging.Ctx(r.Context()).Info().
		Int64("source_id", src.ID).
		Str("url", src.URL).
		Msg("Source created")
	rw.SuccessWithStatus(http.StatusCreated, src, nil)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.pathID(rw, r)
	if !ok {
		return
	}

	src, err := s.db.GetSource(r.Context(), id)
	if err != nil {
		s.storeError(rw, r, err, "source")
		return
	}
	rw.Success(src)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.pathID(rw, r)
	if !ok {
		return
	}

	if err := s.db.DeleteSource(r.Context(), id); err != nil {
		s.storeError(rw, r, err, "source")
		return
	}
	logging.Ctx(r.Context()).Info().Int64("source_id", id).Msg("Source deleted")
	rw.Success(map[string]any{"deleted": id})
}

func (s *Server) handleImportSource(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.pathID(rw, r)
	if !ok {
		return
	}

	src, err := s.db.GetSource(r.Context(), id)
	if err != nil {
		s.storeError(rw, r, err, "source")
		return
	}

	stats, err := s.importer.Run(r.Context(), src)
	if err != nil {
		var unreachable *feed.UnreachableError
		if errors.As(err, &unreachable) {
			rw.Error(http.StatusBadGateway, ErrCodeSourceUnreachable, unreachable.Error())
			return
		}
		s.internalError(rw, r, err, "Import run failed")
		return
	}
	rw.Success(stats)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.pathID(rw, r)
	if !ok {
		return
	}

	stats := s.importer.LastRun(id)
	if stats == nil {
		rw.Error(http.StatusNotFound, ErrCodeNotFound, "no import run recorded for source")
		return
	}
	rw.Success(stats)
}

func (s *Server) handleImportAll(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	err := s.importer.RunAll(r.Context())
	runs := s.importer.LastRuns()
	if err != nil {
		// Partial failure: some sources imported, some did not. Report
		// both the error and the per-source breakdown.
		rw.writeJSON(http.StatusMultiStatus, APIResponse{
			Success: false,
			Data:    runs,
			Error: &APIError{
				Code:      ErrCodeSourceUnreachable,
				Message:   err.Error(),
				RequestID: logging.RequestIDFromContext(r.Context()),
			},
		})
		return
	}
	rw.SuccessWithStatus(http.StatusOK, runs, &APIMeta{Count: len(runs)})
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	runs := s.importer.LastRuns()
	rw.SuccessWithStatus(http.StatusOK, runs, &APIMeta{Count: len(runs)})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := s.queryLimit(r)
	after := time.Now().UTC()
	if v := r.URL.Query().Get("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "after must be RFC 3339")
			return
		}
		after = t
	}

	events, err := s.db.ListUpcomingEvents(r.Context(), after, limit)
	if err != nil {
		s.internalError(rw, r, err, "Failed to list events")
		return
	}
	rw.SuccessWithStatus(http.StatusOK, events, &APIMeta{Count: len(events)})
}

func (s *Server) handleListVenues(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	venues, err := s.db.ListMasterVenues(r.Context(), s.queryLimit(r))
	if err != nil {
		s.internalError(rw, r, err, "Failed to list venues")
		return
	}
	rw.SuccessWithStatus(http.StatusOK, venues, &APIMeta{Count: len(venues)})
}

func (s *Server) handleGetVenue(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	id, ok := s.pathID(rw, r)
	if !ok {
		return
	}

	venue, err := s.db.GetVenue(r.Context(), id)
	if err != nil {
		s.storeError(rw, r, err, "venue")
		return
	}
	rw.Success(venue)
}

type squashRequest struct {
	MemberIDs []int64 `json:"member_ids"`
}

func (s *Server) handleSquashVenues(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	masterID, ok := s.pathID(rw, r)
	if !ok {
		return
	}

	var req squashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
		return
	}
	if len(req.MemberIDs) == 0 {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "member_ids is required")
		return
	}

	master, err := s.db.SquashVenues(r.Context(), masterID, req.MemberIDs)
	if err != nil {
		var notFound *database.NotFoundError
		switch {
		case errors.As(err, &notFound):
			rw.Error(http.StatusNotFound, ErrCodeNotFound, err.Error())
		case errors.Is(err, database.ErrSquashInvalid):
			rw.Error(http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			s.internalError(rw, r, err, "Venue squash failed")
		}
		return
	}

	metrics.VenueSquashes.Inc()
	logging.Ctx(r.Context()).Info().
		Int64("master_id", masterID).
		Ints64("member_ids", req.MemberIDs).
		Msg("Venues squashed")
	rw.Success(master)
}

// pathID parses the {id} route parameter, writing a 400 on failure.
func (s *Server) pathID(rw *ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		rw.Error(http.StatusBadRequest, ErrCodeBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (s *Server) queryLimit(r *http.Request) int {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxListLimit {
			limit = n
		}
	}
	return limit
}

func (s *Server) storeError(rw *ResponseWriter, r *http.Request, err error, kind string) {
	var notFound *database.NotFoundError
	if errors.As(err, &notFound) {
		rw.Error(http.StatusNotFound, ErrCodeNotFound, kind+" not found")
		return
	}
	s.internalError(rw, r, err, "Store operation failed")
}

func (s *Server) internalError(rw *ResponseWriter, r *http.Request, err error, msg string) {
	logging.Ctx(r.Context()).Error().Err(err).Msg(msg)
	rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "internal error")
}
