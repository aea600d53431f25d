// Package api provides the HTTP surface over contests and bookings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/contestcal/internal/aggregator"
	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/booking"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/internal/ics"
	"github.com/user/contestcal/pkg/logger"
)

// ContestReader reads stored contests.
type ContestReader interface {
	QueryUpcoming(ctx context.Context, platform contest.Platform, horizon time.Duration) ([]contest.Contest, error)
	GetContest(ctx context.Context, id string) (*contest.Contest, error)
}

// Refresher runs an aggregation pass.
type Refresher interface {
	Refresh(ctx context.Context) (*aggregator.Summary, error)
}

// Booker books contests on the calendar.
type Booker interface {
	EnsureBooked(ctx context.Context, req booking.BookRequest) booking.Outcome
	RemoveBooking(ctx context.Context, eventID string) booking.Outcome
	ListCalendar(ctx context.Context, horizon time.Duration) ([]calendar.Event, error)
	DefaultReminders(ctx context.Context) ([]int, error)
	SetDefaultReminders(ctx context.Context, minutes []int) ([]int, error)
}

// Handler serves the API.
type Handler struct {
	contests  ContestReader
	refresher Refresher
	booker    Booker
	horizon   time.Duration
}

// NewHandler creates a handler. horizon is the default query window.
func NewHandler(contests ContestReader, refresher Refresher, booker Booker, horizon time.Duration) *Handler {
	return &Handler{contests: contests, refresher: refresher, booker: booker, horizon: horizon}
}

// ContestView is a contest with its display-time rendering.
type ContestView struct {
	contest.Contest
	StartIST string `json:"start_ist"`
	EndIST   string `json:"end_ist"`
	Length   string `json:"length"`
}

func newContestView(c contest.Contest) ContestView {
	return ContestView{
		Contest:  c,
		StartIST: contest.FormatIST(c.StartTime),
		EndIST:   contest.FormatIST(c.End()),
		Length:   contest.FormatDuration(c.DurationSeconds),
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ListContests handles GET /api/contests
func (h *Handler) ListContests(w http.ResponseWriter, r *http.Request) {
	platform, horizon, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	contests, err := h.contests.QueryUpcoming(r.Context(), platform, horizon)
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]ContestView, 0, len(contests))
	for _, c := range contests {
		views = append(views, newContestView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetContest handles GET /api/contests/{id}
func (h *Handler) GetContest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.contests.GetContest(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if c == nil {
		writeError(w, apperr.New(apperr.NotFound, "contest "+id+" not found"))
		return
	}
	writeJSON(w, http.StatusOK, newContestView(*c))
}

// Refresh handles POST /api/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	summary, err := h.refresher.Refresh(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// BookContest handles POST /api/contests/{id}/book
func (h *Handler) BookContest(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Reminders []int `json:"reminders"`
		Force     bool  `json:"force"`
	}
	// An empty body books with the default reminders.
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}

	out := h.booker.EnsureBooked(r.Context(), booking.BookRequest{
		ContestID: chi.URLParam(r, "id"),
		Reminders: request.Reminders,
		Force:     request.Force,
	})
	writeJSON(w, outcomeStatus(out.Status), out)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	out := h.booker.RemoveBooking(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, outcomeStatus(out.Status), out)
}

// ListCalendar handles GET /api/calendar
func (h *Handler) ListCalendar(w http.ResponseWriter, r *http.Request) {
	horizon, ok := parseDays(w, r, 0)
	if !ok {
		return
	}

	events, err := h.booker.ListCalendar(r.Context(), horizon)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetReminders handles GET /api/preferences/reminders
func (h *Handler) GetReminders(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.booker.DefaultReminders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"reminders": reminders})
}

// SetReminders handles PUT /api/preferences/reminders
func (h *Handler) SetReminders(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Reminders []int `json:"reminders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, apperr.New(apperr.InvalidInput, "invalid request body"))
		return
	}

	reminders, err := h.booker.SetDefaultReminders(r.Context(), request.Reminders)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]int{"reminders": reminders})
}

// ExportICS handles GET /contests.ics
func (h *Handler) ExportICS(w http.ResponseWriter, r *http.Request) {
	platform, horizon, ok := h.parseFilter(w, r)
	if !ok {
		return
	}

	contests, err := h.contests.QueryUpcoming(r.Context(), platform, horizon)
	if err != nil {
		writeError(w, err)
		return
	}
	reminders, err := h.booker.DefaultReminders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="contests.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ics.Export(contests, reminders, time.Now())))
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (contest.Platform, time.Duration, bool) {
	var platform contest.Platform
	if raw := strings.TrimSpace(r.URL.Query().Get("platform")); raw != "" {
		p, err := contest.ParsePlatform(raw)
		if err != nil {
			writeError(w, apperr.New(apperr.InvalidInput, err.Error()))
			return "", 0, false
		}
		platform = p
	}

	horizon, ok := parseDays(w, r, h.horizon)
	return platform, horizon, ok
}

func parseDays(w http.ResponseWriter, r *http.Request, def time.Duration) (time.Duration, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return def, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 0 {
		writeError(w, apperr.New(apperr.InvalidInput, "days must be a non-negative integer"))
		return 0, false
	}
	return time.Duration(days) * 24 * time.Hour, true
}

func outcomeStatus(s booking.Status) int {
	switch s {
	case booking.StatusBooked:
		return http.StatusCreated
	case booking.StatusDeleted:
		return http.StatusOK
	case booking.StatusConflict:
		return http.StatusConflict
	case booking.StatusNotFound:
		return http.StatusNotFound
	case booking.StatusInvalid:
		return http.StatusBadRequest
	case booking.StatusExternalFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorStatus(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.BookingConflict:
		return http.StatusConflict
	case apperr.ExternalFailure, apperr.SourceUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", status).Msg("API request failed")
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(apperr.CodeOf(err)),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn().Err(err).Msg("Failed to encode response")
	}
}
