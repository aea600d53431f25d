package booking

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/internal/storage"
)

type fakeCalendar struct {
	mu        sync.Mutex
	created   []calendar.EventRequest
	deleted   []string
	listFrom  time.Time
	listTo    time.Time
	createErr error
	deleteErr error
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, req calendar.EventRequest) (*calendar.CreatedEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, req)
	id := fmt.Sprintf("evt-%d", len(f.created))
	return &calendar.CreatedEvent{ID: id, Link: "https://calendar.example/" + id}, nil
}

func (f *fakeCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listFrom, f.listTo = from, to
	return []calendar.Event{{ID: "evt-1", Summary: "Codeforces: Round", Start: from.Add(time.Hour)}}, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

var start = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *storage.Store, *fakeCalendar) {
	t.Helper()
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "contests.db"))
	if err != nil {
		t.Fatalf("NewDatabase() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := storage.NewStore(db)

	_, err = store.UpsertContests(context.Background(), []contest.Contest{
		{
			ID:              "codechef_START120",
			Platform:        contest.CodeChef,
			Title:           "Starters 120",
			StartTime:       start,
			DurationSeconds: 9000,
			URL:             "https://www.codechef.com/START120",
		},
		{
			ID:              "leetcode_weekly-contest-400",
			Platform:        contest.LeetCode,
			Title:           "Weekly Contest 400",
			StartTime:       start.Add(24 * time.Hour),
			DurationSeconds: 5400,
		},
	})
	if err != nil {
		t.Fatalf("seed contests: %v", err)
	}

	cal := &fakeCalendar{}
	return NewEngine(store, cal, opts...), store, cal
}

func TestEnsureBookedThenConflict(t *testing.T) {
	ctx := context.Background()
	engine, store, cal := newTestEngine(t)

	first := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	if first.Status != StatusBooked || first.EventID == "" {
		t.Fatalf("first booking = %+v, want booked", first)
	}

	second := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	if second.Status != StatusConflict {
		t.Fatalf("second booking status = %s, want conflict", second.Status)
	}
	if second.EventID != first.EventID {
		t.Errorf("conflict event id = %q, want %q", second.EventID, first.EventID)
	}
	if len(cal.created) != 1 {
		t.Errorf("calendar contacted %d times, want 1", len(cal.created))
	}

	eventID, found, err := store.FindBooking(ctx, "codechef_START120")
	if err != nil || !found || eventID != first.EventID {
		t.Errorf("FindBooking() = %q, %v, %v", eventID, found, err)
	}
}

func TestEnsureBookedBuildsEvent(t *testing.T) {
	engine, _, cal := newTestEngine(t)

	out := engine.EnsureBooked(context.Background(), BookRequest{ContestID: "codechef_START120", Reminders: []int{60}})
	if !out.OK() {
		t.Fatalf("EnsureBooked() = %+v", out)
	}

	req := cal.created[0]
	if req.Summary != "CodeChef: Starters 120" {
		t.Errorf("summary = %q", req.Summary)
	}
	if !req.Start.Equal(start) || !req.End.Equal(start.Add(150*time.Minute)) {
		t.Errorf("window = [%v, %v)", req.Start, req.End)
	}
	if req.TimeZone != "Asia/Kolkata" {
		t.Errorf("timezone = %q", req.TimeZone)
	}
	for _, want := range []string{
		"https://www.codechef.com/START120",
		"Start: 2024-03-01 20:00 IST",
		"End: 2024-03-01 22:30 IST",
		"2.5 hours",
	} {
		if !strings.Contains(req.Description, want) {
			t.Errorf("description %q missing %q", req.Description, want)
		}
	}
	if len(req.Reminders) != 1 || req.Reminders[0] != 60 {
		t.Errorf("reminders = %v, want [60]", req.Reminders)
	}
}

func TestEnsureBookedDescriptionWithoutURL(t *testing.T) {
	engine, _, cal := newTestEngine(t)

	engine.EnsureBooked(context.Background(), BookRequest{ContestID: "leetcode_weekly-contest-400"})
	if !strings.Contains(cal.created[0].Description, "Contest URL: N/A") {
		t.Errorf("description = %q", cal.created[0].Description)
	}
}

func TestEnsureBookedForceAddsSecondMapping(t *testing.T) {
	ctx := context.Background()
	engine, store, cal := newTestEngine(t)

	first := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	forced := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120", Force: true})
	if forced.Status != StatusBooked {
		t.Fatalf("forced booking = %+v, want booked", forced)
	}
	if forced.EventID == first.EventID {
		t.Errorf("forced booking reused event id %q", forced.EventID)
	}
	if len(cal.created) != 2 {
		t.Errorf("calendar created %d events, want 2", len(cal.created))
	}

	bookings, err := store.ListBookings(ctx, "codechef_START120")
	if err != nil {
		t.Fatalf("ListBookings() failed: %v", err)
	}
	if len(bookings) != 2 {
		t.Errorf("mappings = %d, want 2", len(bookings))
	}

	eventID, _, _ := store.FindBooking(ctx, "codechef_START120")
	if eventID != first.EventID && eventID != forced.EventID {
		t.Errorf("FindBooking() = %q, want one of the booked events", eventID)
	}
}

func TestEnsureBookedUnknownContest(t *testing.T) {
	engine, _, cal := newTestEngine(t)

	out := engine.EnsureBooked(context.Background(), BookRequest{ContestID: "codeforces_404"})
	if out.Status != StatusNotFound {
		t.Errorf("status = %s, want not_found", out.Status)
	}
	if !apperr.Is(out.Err, apperr.NotFound) {
		t.Errorf("err = %v, want NOT_FOUND", out.Err)
	}
	if len(cal.created) != 0 {
		t.Error("calendar should not be contacted for an unknown contest")
	}
}

func TestEnsureBookedExternalFailurePersistsNothing(t *testing.T) {
	ctx := context.Background()
	engine, store, cal := newTestEngine(t)
	cal.createErr = errors.New("quota exceeded")

	out := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	if out.Status != StatusExternalFailure {
		t.Fatalf("status = %s, want external_failure", out.Status)
	}
	if !strings.Contains(out.Message, "quota exceeded") {
		t.Errorf("message = %q, want upstream text", out.Message)
	}
	if _, found, _ := store.FindBooking(ctx, "codechef_START120"); found {
		t.Error("failed booking left a mapping behind")
	}
}

func TestEnsureBookedInvalidReminders(t *testing.T) {
	engine, _, cal := newTestEngine(t)

	tests := []struct {
		name      string
		reminders []int
	}{
		{"negative", []int{-1}},
		{"too far", []int{MaxReminderMinutes + 1}},
		{"too many", []int{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := engine.EnsureBooked(context.Background(), BookRequest{ContestID: "codechef_START120", Reminders: tt.reminders})
			if out.Status != StatusInvalid {
				t.Errorf("status = %s, want invalid", out.Status)
			}
		})
	}
	if len(cal.created) != 0 {
		t.Error("calendar should not be contacted with invalid reminders")
	}
}

func TestReminderFallbackOrder(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t, WithDefaultReminders([]int{45}))

	got, err := engine.DefaultReminders(ctx)
	if err != nil || len(got) != 1 || got[0] != 45 {
		t.Fatalf("DefaultReminders() = %v, %v, want configured [45]", got, err)
	}

	if _, err := engine.SetDefaultReminders(ctx, []int{120, 15}); err != nil {
		t.Fatalf("SetDefaultReminders() failed: %v", err)
	}
	got, _ = engine.DefaultReminders(ctx)
	if len(got) != 2 || got[0] != 120 {
		t.Errorf("DefaultReminders() = %v, want stored [120 15]", got)
	}

	out := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120", Reminders: []int{5}})
	if len(out.Reminders) != 1 || out.Reminders[0] != 5 {
		t.Errorf("caller reminders = %v, want [5]", out.Reminders)
	}

	// An unreadable preference falls back to the configured defaults.
	if err := store.SetPreference(ctx, storage.ReminderPreferenceKey, "oops"); err != nil {
		t.Fatalf("SetPreference() failed: %v", err)
	}
	got, err = engine.DefaultReminders(ctx)
	if err != nil || len(got) != 1 || got[0] != 45 {
		t.Errorf("DefaultReminders() = %v, %v, want [45]", got, err)
	}
}

func TestFallbackRemindersWithoutConfig(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	got, err := engine.DefaultReminders(context.Background())
	if err != nil || len(got) != 2 || got[0] != 30 || got[1] != 10 {
		t.Errorf("DefaultReminders() = %v, %v, want [30 10]", got, err)
	}
}

func TestSetDefaultRemindersRejectsInvalid(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	for _, in := range [][]int{nil, {-5}, {1, 2, 3, 4, 5, 6}} {
		if _, err := engine.SetDefaultReminders(context.Background(), in); !apperr.Is(err, apperr.InvalidInput) {
			t.Errorf("SetDefaultReminders(%v) error = %v, want INVALID_INPUT", in, err)
		}
	}
}

func TestRemoveBookingWithoutMapping(t *testing.T) {
	engine, _, cal := newTestEngine(t)

	out := engine.RemoveBooking(context.Background(), "evt-unknown-locally")
	if out.Status != StatusDeleted {
		t.Fatalf("status = %s, want deleted", out.Status)
	}
	if len(cal.deleted) != 1 || cal.deleted[0] != "evt-unknown-locally" {
		t.Errorf("deleted = %v", cal.deleted)
	}
}

func TestRemoveBookingKeepsMappingByDefault(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t)

	booked := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	if out := engine.RemoveBooking(ctx, booked.EventID); out.Status != StatusDeleted {
		t.Fatalf("RemoveBooking() = %+v", out)
	}

	if _, found, _ := store.FindBooking(ctx, "codechef_START120"); !found {
		t.Error("mapping should survive delete without purge")
	}
	if again := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"}); again.Status != StatusConflict {
		t.Errorf("rebooking after delete = %s, want conflict from stale mapping", again.Status)
	}
}

func TestRemoveBookingPurgesMapping(t *testing.T) {
	ctx := context.Background()
	engine, store, _ := newTestEngine(t, WithPurgeOnDelete(true))

	booked := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	engine.RemoveBooking(ctx, booked.EventID)

	if _, found, _ := store.FindBooking(ctx, "codechef_START120"); found {
		t.Error("mapping should be purged")
	}
	if again := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"}); again.Status != StatusBooked {
		t.Errorf("rebooking after purge = %s, want booked", again.Status)
	}
}

func TestRemoveBookingExternalFailure(t *testing.T) {
	ctx := context.Background()
	engine, store, cal := newTestEngine(t, WithPurgeOnDelete(true))

	booked := engine.EnsureBooked(ctx, BookRequest{ContestID: "codechef_START120"})
	cal.deleteErr = apperr.Wrap(apperr.ExternalFailure, "delete calendar event", errors.New("404 not found"))

	out := engine.RemoveBooking(ctx, booked.EventID)
	if out.Status != StatusExternalFailure {
		t.Errorf("status = %s, want external_failure", out.Status)
	}
	if _, found, _ := store.FindBooking(ctx, "codechef_START120"); !found {
		t.Error("failed delete must not touch the mapping")
	}
}

func TestRemoveBookingEmptyID(t *testing.T) {
	engine, _, cal := newTestEngine(t)
	if out := engine.RemoveBooking(context.Background(), "  "); out.Status != StatusInvalid {
		t.Errorf("status = %s, want invalid", out.Status)
	}
	if len(cal.deleted) != 0 {
		t.Error("calendar should not be contacted")
	}
}

func TestListCalendarWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	engine, _, cal := newTestEngine(t, WithClock(func() time.Time { return now }))

	events, err := engine.ListCalendar(context.Background(), 0)
	if err != nil || len(events) != 1 {
		t.Fatalf("ListCalendar() = %v, %v", events, err)
	}
	if !cal.listFrom.Equal(now) || !cal.listTo.Equal(now.Add(DefaultCalendarHorizon)) {
		t.Errorf("window = [%v, %v)", cal.listFrom, cal.listTo)
	}
}

func TestStorageFailureOutcome(t *testing.T) {
	db, err := storage.NewDatabase(filepath.Join(t.TempDir(), "contests.db"))
	if err != nil {
		t.Fatalf("NewDatabase() failed: %v", err)
	}
	db.Close()

	engine := NewEngine(storage.NewStore(db), &fakeCalendar{})
	if out := engine.EnsureBooked(context.Background(), BookRequest{ContestID: "codechef_START120"}); out.Status != StatusStorageFailure {
		t.Errorf("status = %s, want storage_failure", out.Status)
	}
}
