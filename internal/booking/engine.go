// Package booking turns stored contests into calendar events, at most once
// per contest unless forced.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/internal/storage"
	"github.com/user/contestcal/pkg/logger"
)

const (
	// MaxReminders is the most overrides a calendar event accepts.
	MaxReminders = 5
	// MaxReminderMinutes is four weeks.
	MaxReminderMinutes = 40320

	// DefaultCalendarHorizon is used by ListCalendar for a non-positive horizon.
	DefaultCalendarHorizon = 7 * 24 * time.Hour
)

// FallbackReminders apply when neither the caller, the stored preference
// nor the configuration supply any.
var FallbackReminders = []int{30, 10}

// Store is the persistence the engine needs.
type Store interface {
	GetContest(ctx context.Context, id string) (*contest.Contest, error)
	FindBooking(ctx context.Context, contestID string) (string, bool, error)
	RecordBooking(ctx context.Context, eventID, contestID string) error
	DeleteBooking(ctx context.Context, eventID string) (bool, error)
	GetJSONPreference(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSONPreference(ctx context.Context, key string, value interface{}) error
}

// BookRequest asks for a contest to be put on the calendar.
type BookRequest struct {
	ContestID string `json:"contest_id"`
	Reminders []int  `json:"reminders,omitempty"`
	Force     bool   `json:"force,omitempty"`
}

// Engine books contests on the calendar and tracks the mapping locally.
type Engine struct {
	store    Store
	calendar calendar.Client
	defaults []int
	purge    bool
	now      func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithDefaultReminders sets the configured reminder fallback.
func WithDefaultReminders(minutes []int) Option {
	return func(e *Engine) {
		if len(minutes) > 0 {
			e.defaults = append([]int(nil), minutes...)
		}
	}
}

// WithPurgeOnDelete makes RemoveBooking drop the local mapping as well.
func WithPurgeOnDelete(purge bool) Option {
	return func(e *Engine) { e.purge = purge }
}

// WithClock overrides the clock used by ListCalendar.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a booking engine.
func NewEngine(store Store, cal calendar.Client, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		calendar: cal,
		defaults: FallbackReminders,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureBooked creates a calendar event for the contest unless one is
// already mapped. With Force a new event and a second mapping are created
// and the earlier ones are left alone.
func (e *Engine) EnsureBooked(ctx context.Context, req BookRequest) Outcome {
	log := logger.With("booking").With().Str("contest_id", req.ContestID).Logger()

	c, err := e.store.GetContest(ctx, req.ContestID)
	if err != nil {
		return failure(err)
	}
	if c == nil {
		return failure(apperr.New(apperr.NotFound, fmt.Sprintf("contest %s is not in the store, refresh first", req.ContestID)))
	}

	existing, found, err := e.store.FindBooking(ctx, c.ID)
	if err != nil {
		return failure(err)
	}
	if found && !req.Force {
		log.Info().Str("event_id", existing).Msg("Contest already booked")
		return Outcome{
			Status:  StatusConflict,
			Contest: c,
			EventID: existing,
			Message: "contest already booked; use force to book again",
		}
	}

	reminders, err := e.resolveReminders(ctx, req.Reminders)
	if err != nil {
		o := failure(err)
		o.Contest = c
		return o
	}

	created, err := e.calendar.CreateEvent(ctx, eventRequest(c, reminders))
	if err != nil {
		if apperr.CodeOf(err) == "" {
			err = apperr.Wrap(apperr.ExternalFailure, "create calendar event", err)
		}
		log.Error().Err(err).Msg("Calendar rejected booking")
		o := failure(err)
		o.Contest = c
		return o
	}

	if err := e.store.RecordBooking(ctx, created.ID, c.ID); err != nil {
		// The external event exists without a local record.
		log.Error().Err(err).Str("event_id", created.ID).Msg("Failed to record booking")
		o := failure(err)
		o.Contest = c
		o.EventID = created.ID
		o.Link = created.Link
		return o
	}

	log.Info().Str("event_id", created.ID).Bool("force", req.Force).Ints("reminders", reminders).Msg("Contest booked")
	return Outcome{
		Status:    StatusBooked,
		Contest:   c,
		EventID:   created.ID,
		Link:      created.Link,
		Reminders: reminders,
	}
}

// RemoveBooking deletes the calendar event. The local mapping is only
// touched when purge-on-delete is enabled, so it succeeds whether or not a
// mapping exists.
func (e *Engine) RemoveBooking(ctx context.Context, eventID string) Outcome {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return failure(apperr.New(apperr.InvalidInput, "event id is required"))
	}

	if err := e.calendar.DeleteEvent(ctx, eventID); err != nil {
		if apperr.CodeOf(err) == "" {
			err = apperr.Wrap(apperr.ExternalFailure, "delete calendar event", err)
		}
		logger.Error().Err(err).Str("event_id", eventID).Msg("Failed to delete calendar event")
		return failure(err)
	}

	if e.purge {
		existed, err := e.store.DeleteBooking(ctx, eventID)
		if err != nil {
			o := failure(err)
			o.EventID = eventID
			return o
		}
		logger.Debug().Str("event_id", eventID).Bool("mapping_existed", existed).Msg("Booking mapping purged")
	}

	logger.Info().Str("event_id", eventID).Msg("Calendar event deleted")
	return Outcome{Status: StatusDeleted, EventID: eventID}
}

// ListCalendar returns calendar events from now until now+horizon.
func (e *Engine) ListCalendar(ctx context.Context, horizon time.Duration) ([]calendar.Event, error) {
	if horizon <= 0 {
		horizon = DefaultCalendarHorizon
	}
	now := e.now()
	return e.calendar.ListEvents(ctx, now, now.Add(horizon))
}

// DefaultReminders returns the reminders used when a booking names none.
func (e *Engine) DefaultReminders(ctx context.Context) ([]int, error) {
	return e.resolveReminders(ctx, nil)
}

// SetDefaultReminders validates and stores the default reminder offsets.
func (e *Engine) SetDefaultReminders(ctx context.Context, minutes []int) ([]int, error) {
	if len(minutes) == 0 {
		return nil, apperr.New(apperr.InvalidInput, "at least one reminder is required")
	}
	if err := ValidateReminders(minutes); err != nil {
		return nil, err
	}
	if err := e.store.SetJSONPreference(ctx, storage.ReminderPreferenceKey, minutes); err != nil {
		return nil, err
	}
	logger.Info().Ints("reminders", minutes).Msg("Default reminders updated")
	return minutes, nil
}

// resolveReminders picks caller reminders, then the stored preference, then
// the configured defaults.
func (e *Engine) resolveReminders(ctx context.Context, requested []int) ([]int, error) {
	if len(requested) > 0 {
		if err := ValidateReminders(requested); err != nil {
			return nil, err
		}
		return requested, nil
	}

	var stored []int
	ok, err := e.store.GetJSONPreference(ctx, storage.ReminderPreferenceKey, &stored)
	switch {
	case apperr.Is(err, apperr.StorageFailure):
		return nil, err
	case err != nil:
		logger.Warn().Err(err).Msg("Ignoring unreadable reminder preference")
	case ok && len(stored) > 0:
		if verr := ValidateReminders(stored); verr == nil {
			return stored, nil
		}
		logger.Warn().Ints("reminders", stored).Msg("Ignoring invalid reminder preference")
	}

	return append([]int(nil), e.defaults...), nil
}

// ValidateReminders checks count and range of reminder offsets.
func ValidateReminders(minutes []int) error {
	if len(minutes) > MaxReminders {
		return apperr.New(apperr.InvalidInput, fmt.Sprintf("at most %d reminders allowed, got %d", MaxReminders, len(minutes)))
	}
	for _, m := range minutes {
		if m < 0 || m > MaxReminderMinutes {
			return apperr.New(apperr.InvalidInput, fmt.Sprintf("reminder %d out of range 0..%d minutes", m, MaxReminderMinutes))
		}
	}
	return nil
}

func eventRequest(c *contest.Contest, reminders []int) calendar.EventRequest {
	url := c.URL
	if url == "" {
		url = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contest URL: %s\n", url)
	fmt.Fprintf(&b, "Start: %s\n", contest.FormatIST(c.StartTime))
	fmt.Fprintf(&b, "End: %s\n", contest.FormatIST(c.End()))
	fmt.Fprintf(&b, "Duration: %s", contest.FormatDuration(c.DurationSeconds))

	return calendar.EventRequest{
		Summary:     c.Summary(),
		Description: b.String(),
		Start:       c.StartTime,
		End:         c.End(),
		TimeZone:    contest.DisplayTimeZone,
		Reminders:   reminders,
	}
}
