// Package calendar talks to the external calendar that bookings are written to.
package calendar

import (
	"context"
	"os"
	"time"

	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/pkg/logger"
)

// Client creates, lists and deletes calendar events. Authentication is
// established before a Client is handed out.
type Client interface {
	CreateEvent(ctx context.Context, req EventRequest) (*CreatedEvent, error)
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// EventRequest is everything needed to create one event.
type EventRequest struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
	Reminders   []int // minutes before start
}

// CreatedEvent identifies an event that was just created.
type CreatedEvent struct {
	ID   string `json:"event_id"`
	Link string `json:"link,omitempty"`
}

// Event is a calendar entry as listed back from the calendar.
type Event struct {
	ID      string    `json:"event_id"`
	Summary string    `json:"summary"`
	Start   time.Time `json:"start"`
	Link    string    `json:"link,omitempty"`
}

// Disabled is used when no calendar credentials are configured.
type Disabled struct{}

var errNotConfigured = apperr.New(apperr.ExternalFailure, "calendar not configured")

func (Disabled) CreateEvent(ctx context.Context, req EventRequest) (*CreatedEvent, error) {
	return nil, errNotConfigured
}

func (Disabled) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	return nil, errNotConfigured
}

func (Disabled) DeleteEvent(ctx context.Context, eventID string) error {
	return errNotConfigured
}

// Open returns a Google Calendar client, or Disabled when the credentials
// file is absent. A present but unusable credentials or token file is an error.
func Open(ctx context.Context, cfg config.CalendarConfig) (Client, error) {
	if cfg.CredentialsFile == "" {
		logger.Warn().Msg("No calendar credentials configured, booking disabled")
		return Disabled{}, nil
	}
	if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
		logger.Warn().Str("path", cfg.CredentialsFile).Msg("Calendar credentials not found, booking disabled")
		return Disabled{}, nil
	}

	client, err := NewGoogleClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}
