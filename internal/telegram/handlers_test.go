package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/contestcal/internal/aggregator"
	"github.com/user/contestcal/internal/apperr"
	"github.com/user/contestcal/internal/booking"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/contest"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) last(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no message sent")
	}
	return f.sent[len(f.sent)-1]
}

var sampleContest = contest.Contest{
	ID:              "codeforces_1900",
	Platform:        contest.Codeforces,
	Title:           "Codeforces Round 900 (Div_2)",
	StartTime:       time.Date(2024, 3, 1, 14, 35, 0, 0, time.UTC),
	DurationSeconds: 7200,
	URL:             "https://codeforces.com/contest/1900",
}

type fakeContests struct {
	gotPlatform contest.Platform
	gotHorizon  time.Duration
}

func (f *fakeContests) QueryUpcoming(ctx context.Context, p contest.Platform, horizon time.Duration) ([]contest.Contest, error) {
	f.gotPlatform, f.gotHorizon = p, horizon
	return []contest.Contest{sampleContest}, nil
}

func (f *fakeContests) GetContest(ctx context.Context, id string) (*contest.Contest, error) {
	if id == sampleContest.ID {
		c := sampleContest
		return &c, nil
	}
	return nil, nil
}

func (f *fakeContests) CountContests(ctx context.Context) (int, error) { return 1, nil }

type fakeRefresher struct{}

func (fakeRefresher) Refresh(ctx context.Context) (*aggregator.Summary, error) {
	return &aggregator.Summary{
		Stored:    4,
		PerSource: map[string]int{"Codeforces": 3, "CodeChef": 1},
		Failed:    []string{"LeetCode"},
	}, nil
}

type fakeBooker struct {
	requests  []booking.BookRequest
	deleted   []string
	reminders []int
}

func (f *fakeBooker) EnsureBooked(ctx context.Context, req booking.BookRequest) booking.Outcome {
	f.requests = append(f.requests, req)
	c := sampleContest
	if len(f.requests) > 1 && !req.Force {
		return booking.Outcome{Status: booking.StatusConflict, Contest: &c, EventID: "evt-1"}
	}
	return booking.Outcome{Status: booking.StatusBooked, Contest: &c, EventID: "evt-1", Reminders: []int{30, 10}}
}

func (f *fakeBooker) RemoveBooking(ctx context.Context, eventID string) booking.Outcome {
	f.deleted = append(f.deleted, eventID)
	return booking.Outcome{Status: booking.StatusDeleted, EventID: eventID}
}

func (f *fakeBooker) ListCalendar(ctx context.Context, horizon time.Duration) ([]calendar.Event, error) {
	return nil, apperr.New(apperr.ExternalFailure, "calendar not configured")
}

func (f *fakeBooker) DefaultReminders(ctx context.Context) ([]int, error) {
	if f.reminders == nil {
		return []int{30, 10}, nil
	}
	return f.reminders, nil
}

func (f *fakeBooker) SetDefaultReminders(ctx context.Context, minutes []int) ([]int, error) {
	if len(minutes) > 5 {
		return nil, errors.New("at most 5 reminders allowed")
	}
	f.reminders = minutes
	return minutes, nil
}

func command(chatID int64, text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func newTestHandlers(allowed func(int64) bool) (*Handlers, *fakeSender, *fakeContests, *fakeBooker) {
	sender := &fakeSender{}
	contests := &fakeContests{}
	booker := &fakeBooker{}
	h := NewHandlers(sender, Deps{
		Contests:  contests,
		Refresher: fakeRefresher{},
		Booker:    booker,
		DaysAhead: 14,
		Allowed:   allowed,
	})
	return h, sender, contests, booker
}

func TestCommandReplies(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"/start", []string{"Codeforces, LeetCode and CodeChef"}},
		{"/help", []string{"/book <id> [minutes...] [force]", "/reminders"}},
		{"/contests", []string{"next 14 days", "`codeforces_1900`", "2024-03-01 20:05 IST", "2.0 hours"}},
		{"/contests atcoder", []string{"unknown platform"}},
		{"/contest codeforces_1900", []string{"Codeforces: Codeforces Round 900", "https://codeforces.com/contest/1900"}},
		{"/contest codeforces_1", []string{"not found"}},
		{"/contest", []string{"Usage"}},
		{"/book codeforces_1900", []string{"Booked", "evt-1", "30 min, 10 min"}},
		{"/book", []string{"contest id is required"}},
		{"/events", []string{"calendar not configured"}},
		{"/delete evt-7", []string{"Deleted calendar event `evt-7`"}},
		{"/delete", []string{"Usage"}},
		{"/reminders", []string{"30 min, 10 min"}},
		{"/reminders 60 5", []string{"60 min, 5 min"}},
		{"/reminders 1 2 3 4 5 6", []string{"at most 5"}},
		{"/refresh", []string{"4 contests stored", "Codeforces: 3", "Unavailable: LeetCode"}},
		{"/status", []string{"Stored contests:* 1"}},
		{"/frobnicate", []string{"Unknown command"}},
	}

	for _, tt := range tests {
		h, sender, _, _ := newTestHandlers(nil)
		h.HandleCommand(command(42, tt.text))

		msg := sender.last(t)
		if msg.ChatID != 42 {
			t.Errorf("%s: reply went to chat %d", tt.text, msg.ChatID)
		}
		for _, want := range tt.want {
			if !strings.Contains(msg.Text, want) {
				t.Errorf("%s: reply %q missing %q", tt.text, msg.Text, want)
			}
		}
	}
}

func TestContestsArgsReachStore(t *testing.T) {
	h, _, contests, _ := newTestHandlers(nil)
	h.HandleCommand(command(1, "/contests codechef 3"))

	if contests.gotPlatform != contest.CodeChef || contests.gotHorizon != 72*time.Hour {
		t.Errorf("query = %q, %v", contests.gotPlatform, contests.gotHorizon)
	}
}

func TestBookTwiceReportsConflict(t *testing.T) {
	h, sender, _, booker := newTestHandlers(nil)
	h.HandleCommand(command(1, "/book codeforces_1900 45"))
	h.HandleCommand(command(1, "/book codeforces_1900"))

	if !strings.Contains(sender.last(t).Text, "already booked") {
		t.Errorf("second reply = %q", sender.last(t).Text)
	}
	if len(booker.requests) != 2 || booker.requests[0].Reminders[0] != 45 {
		t.Errorf("requests = %+v", booker.requests)
	}
}

func TestContestDetailHasBookButton(t *testing.T) {
	h, sender, _, booker := newTestHandlers(nil)
	h.HandleCommand(command(1, "/contest codeforces_1900"))

	markup, ok := sender.last(t).ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(markup.InlineKeyboard) != 1 {
		t.Fatalf("reply markup = %#v", sender.last(t).ReplyMarkup)
	}
	button := markup.InlineKeyboard[0][0]
	if button.CallbackData == nil || *button.CallbackData != "book:codeforces_1900" {
		t.Fatalf("callback data = %v", button.CallbackData)
	}

	h.HandleCallback(&tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    *button.CallbackData,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}},
	})
	if len(booker.requests) != 1 || booker.requests[0].ContestID != "codeforces_1900" {
		t.Errorf("callback requests = %+v", booker.requests)
	}
}

func TestUnknownChatIsRejected(t *testing.T) {
	h, sender, _, booker := newTestHandlers(func(id int64) bool { return id == 7 })
	h.HandleCommand(command(99, "/book codeforces_1900"))

	if !strings.Contains(sender.last(t).Text, "private") {
		t.Errorf("reply = %q", sender.last(t).Text)
	}
	if len(booker.requests) != 0 {
		t.Error("booking should not run for an unknown chat")
	}
}

func TestMarkdownIsEscaped(t *testing.T) {
	text := NewMessageBuilder().ContestList([]contest.Contest{sampleContest}, "", 7)
	if !strings.Contains(text, `Div\_2`) {
		t.Errorf("title not escaped: %q", text)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{50 * time.Hour, "2d 2h 0m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
