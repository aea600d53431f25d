package calendar

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/pkg/logger"
)

// GoogleClient writes events to one Google calendar.
type GoogleClient struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleClient builds an authenticated client from an OAuth client
// credentials file and a previously saved token.
func NewGoogleClient(ctx context.Context, cfg config.CalendarConfig) (*GoogleClient, error) {
	creds, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar credentials: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(creds, gcal.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar credentials: %w", err)
	}

	tok, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	base := oauth2.ReuseTokenSource(tok, oauthCfg.TokenSource(ctx, tok))
	ts := newPersistingTokenSource(base, cfg.TokenFile, tok)

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	logger.Info().Str("calendar_id", cfg.CalendarID).Msg("Google Calendar client ready")
	return NewGoogleClientWithService(svc, cfg.CalendarID), nil
}

// NewGoogleClientWithService wraps an existing service.
func NewGoogleClientWithService(svc *gcal.Service, calendarID string) *GoogleClient {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleClient{svc: svc, calendarID: calendarID}
}

// CreateEvent inserts an event with explicit popup reminders.
func (c *GoogleClient) CreateEvent(ctx context.Context, req EventRequest) (*CreatedEvent, error) {
	event := &gcal.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Start:       eventTime(req.Start, req.TimeZone),
		End:         eventTime(req.End, req.TimeZone),
		Reminders:   reminders(req.Reminders),
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, apperr.Wrap(apperr.ExternalFailure, "create calendar event", err)
	}
	return &CreatedEvent{ID: created.Id, Link: created.HtmlLink}, nil
}

// ListEvents returns single events starting in [from, to), ordered by start.
func (c *GoogleClient) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	var events []Event
	call := c.svc.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			events = append(events, Event{
				ID:      item.Id,
				Summary: item.Summary,
				Start:   parseEventTime(item.Start),
				Link:    item.HtmlLink,
			})
		}
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ExternalFailure, "list calendar events", err)
	}
	return events, nil
}

// DeleteEvent removes an event by id.
func (c *GoogleClient) DeleteEvent(ctx context.Context, eventID string) error {
	if err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do(); err != nil {
		return apperr.Wrap(apperr.ExternalFailure, "delete calendar event "+eventID, err)
	}
	return nil
}

func eventTime(t time.Time, tz string) *gcal.EventDateTime {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			t = t.In(loc)
		}
	}
	return &gcal.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: tz}
}

func reminders(minutes []int) *gcal.EventReminders {
	r := &gcal.EventReminders{
		UseDefault:      false,
		ForceSendFields: []string{"UseDefault"},
	}
	for _, m := range minutes {
		r.Overrides = append(r.Overrides, &gcal.EventReminder{
			Method:          "popup",
			Minutes:         int64(m),
			ForceSendFields: []string{"Minutes"},
		})
	}
	return r
}

func parseEventTime(dt *gcal.EventDateTime) time.Time {
	if dt == nil {
		return time.Time{}
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.UTC()
		}
	}
	if dt.Date != "" {
		if t, err := time.Parse("2006-01-02", dt.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
