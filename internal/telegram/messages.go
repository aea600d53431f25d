package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/contestcal/internal/aggregator"
	"github.com/user/contestcal/internal/booking"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/contest"
)

// maxListed caps how many contests one message lists.
const maxListed = 25

// MessageBuilder renders bot replies in Telegram Markdown.
type MessageBuilder struct{}

// NewMessageBuilder creates a new message builder.
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{}
}

// ContestList renders upcoming contests.
func (m *MessageBuilder) ContestList(contests []contest.Contest, platform contest.Platform, days int) string {
	scope := "all platforms"
	if platform != "" {
		scope = string(platform)
	}
	if len(contests) == 0 {
		return fmt.Sprintf("📭 No upcoming contests on %s in the next %d days.\n\nTry /refresh to fetch the latest listings.", scope, days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Upcoming contests* (%s, next %d days)\n\n", scope, days)
	for i, c := range contests {
		if i == maxListed {
			fmt.Fprintf(&b, "…and %d more. Narrow with `/contests <platform> <days>`.\n", len(contests)-maxListed)
			break
		}
		fmt.Fprintf(&b, "%d. *%s* (%s)\n   🕒 %s, %s\n   `%s`\n",
			i+1, escape(c.Title), c.Platform, contest.FormatIST(c.StartTime),
			contest.FormatDuration(c.DurationSeconds), c.ID)
	}
	b.WriteString("\nBook one with `/book <id>`.")
	return b.String()
}

// ContestDetail renders a single contest.
func (m *MessageBuilder) ContestDetail(c *contest.Contest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏁 *%s*\n\n", escape(c.Summary()))
	fmt.Fprintf(&b, "🆔 `%s`\n", c.ID)
	fmt.Fprintf(&b, "🕒 Start: %s\n", contest.FormatIST(c.StartTime))
	fmt.Fprintf(&b, "🏁 End: %s\n", contest.FormatIST(c.End()))
	fmt.Fprintf(&b, "⏱️ Duration: %s\n", contest.FormatDuration(c.DurationSeconds))
	if c.URL != "" {
		fmt.Fprintf(&b, "🔗 %s\n", escape(c.URL))
	}
	return b.String()
}

// Outcome renders the result of a booking operation.
func (m *MessageBuilder) Outcome(o booking.Outcome) string {
	title := ""
	if o.Contest != nil {
		title = escape(o.Contest.Summary())
	}

	switch o.Status {
	case booking.StatusBooked:
		text := fmt.Sprintf("✅ *Booked* %s\n\nEvent: `%s`", title, o.EventID)
		if len(o.Reminders) > 0 {
			text += "\nReminders: " + formatMinutes(o.Reminders)
		}
		if o.Link != "" {
			text += "\n" + escape(o.Link)
		}
		return text
	case booking.StatusConflict:
		return fmt.Sprintf("ℹ️ %s is already booked as `%s`.\nAdd `force` to book it again.", title, o.EventID)
	case booking.StatusDeleted:
		return fmt.Sprintf("🗑️ Deleted calendar event `%s`.", o.EventID)
	case booking.StatusNotFound:
		return "❌ " + escape(o.Message)
	case booking.StatusInvalid:
		return "❌ Invalid request: " + escape(o.Message)
	case booking.StatusExternalFailure:
		return "⚠️ The calendar rejected the request: " + escape(o.Message)
	default:
		return "⚠️ Storage error, please try again later."
	}
}

// Events renders calendar events.
func (m *MessageBuilder) Events(events []calendar.Event, days int) string {
	if len(events) == 0 {
		return fmt.Sprintf("📭 No calendar events in the next %d days.", days)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🗓️ *Calendar* (next %d days)\n\n", days)
	for i, e := range events {
		fmt.Fprintf(&b, "%d. *%s*\n   🕒 %s\n   `%s`\n", i+1, escape(e.Summary), contest.FormatIST(e.Start), e.ID)
	}
	b.WriteString("\nDelete one with `/delete <event_id>`.")
	return b.String()
}

// Refresh renders an aggregation summary.
func (m *MessageBuilder) Refresh(s *aggregator.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔄 *Refresh done*: %d contests stored\n", s.Stored)
	for _, p := range contest.AllPlatforms() {
		if n, ok := s.PerSource[string(p)]; ok {
			fmt.Fprintf(&b, "• %s: %d\n", p, n)
		}
	}
	if len(s.Failed) > 0 {
		fmt.Fprintf(&b, "⚠️ Unavailable: %s\n", strings.Join(s.Failed, ", "))
	}
	return b.String()
}

// Reminders renders the default reminder offsets.
func (m *MessageBuilder) Reminders(minutes []int) string {
	return "⏰ Default reminders: " + formatMinutes(minutes)
}

func formatMinutes(minutes []int) string {
	parts := make([]string, 0, len(minutes))
	for _, n := range minutes {
		parts = append(parts, fmt.Sprintf("%d min", n))
	}
	return strings.Join(parts, ", ")
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
