// Package storage persists normalized contests, calendar booking mappings
// and user preferences in SQLite.
package storage

import (
	"fmt"
	"time"

	"github.com/user/contestcal/internal/contest"
)

// timeLayout is fixed-width so stored instants compare lexically.
const timeLayout = "2006-01-02T15:04:05Z"

// ReminderPreferenceKey holds the default reminder offsets as a JSON int array.
const ReminderPreferenceKey = "default_reminders"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// contestRow mirrors the contests table.
type contestRow struct {
	ID              string `db:"id"`
	Platform        string `db:"platform"`
	Title           string `db:"title"`
	StartTime       string `db:"start_time"`
	DurationSeconds int64  `db:"duration_seconds"`
	URL             string `db:"url"`
	FetchedAt       string `db:"fetched_at"`
}

func (r contestRow) toContest() (*contest.Contest, error) {
	start, err := parseTime(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("contest %s: bad start_time: %w", r.ID, err)
	}
	fetched, err := parseTime(r.FetchedAt)
	if err != nil {
		return nil, fmt.Errorf("contest %s: bad fetched_at: %w", r.ID, err)
	}
	return &contest.Contest{
		ID:              r.ID,
		Platform:        contest.Platform(r.Platform),
		Title:           r.Title,
		StartTime:       start,
		DurationSeconds: r.DurationSeconds,
		URL:             r.URL,
		FetchedAt:       fetched,
	}, nil
}

// Booking records that a contest has a calendar event.
type Booking struct {
	EventID   string    `json:"event_id"`
	ContestID string    `json:"contest_id"`
	CreatedAt time.Time `json:"created_at"`
}

type bookingRow struct {
	EventID   string `db:"event_id"`
	ContestID string `db:"contest_id"`
	CreatedAt string `db:"created_at"`
}

func (r bookingRow) toBooking() (Booking, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s: bad created_at: %w", r.EventID, err)
	}
	return Booking{EventID: r.EventID, ContestID: r.ContestID, CreatedAt: created}, nil
}
