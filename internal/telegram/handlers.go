package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/contestcal/internal/aggregator"
	"github.com/user/contestcal/internal/booking"
	"github.com/user/contestcal/internal/calendar"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/pkg/logger"
)

const (
	commandTimeout = 30 * time.Second
	refreshTimeout = 2 * time.Minute
	calendarDays   = 7
)

// Sender delivers messages. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ContestReader reads stored contests.
type ContestReader interface {
	QueryUpcoming(ctx context.Context, platform contest.Platform, horizon time.Duration) ([]contest.Contest, error)
	GetContest(ctx context.Context, id string) (*contest.Contest, error)
	CountContests(ctx context.Context) (int, error)
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

// Deps are the services the bot commands drive.
type Deps struct {
	Contests  ContestReader
	Refresher Refresher
	Booker    Booker

	// DaysAhead is the default /contests horizon.
	DaysAhead int
	// Allowed filters chats; nil allows everyone.
	Allowed func(chatID int64) bool
}

// Handlers manages command handling for the bot.
type Handlers struct {
	api       Sender
	deps      Deps
	messages  *MessageBuilder
	startTime time.Time
}

// NewHandlers creates a new handlers instance.
func NewHandlers(api Sender, deps Deps) *Handlers {
	if deps.DaysAhead <= 0 {
		deps.DaysAhead = 30
	}
	return &Handlers{
		api:       api,
		deps:      deps,
		messages:  NewMessageBuilder(),
		startTime: time.Now(),
	}
}

// HandleCommand routes commands to appropriate handlers.
func (h *Handlers) HandleCommand(msg *tgbotapi.Message) {
	command := msg.Command()
	args := msg.CommandArguments()

	logger.Debug().
		Str("command", command).
		Str("args", args).
		Int64("chat_id", msg.Chat.ID).
		Msg("Received command")

	if h.deps.Allowed != nil && !h.deps.Allowed(msg.Chat.ID) {
		logger.Warn().Int64("chat_id", msg.Chat.ID).Msg("Ignoring command from unknown chat")
		h.sendReply(msg.Chat.ID, "⛔ This bot is private.")
		return
	}

	switch command {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "contests", "list":
		h.handleContests(msg, args)
	case "contest":
		h.handleContest(msg, args)
	case "book":
		h.handleBook(msg, args)
	case "events", "calendar":
		h.handleEvents(msg, args)
	case "delete":
		h.handleDelete(msg, args)
	case "reminders":
		h.handleReminders(msg, args)
	case "refresh":
		h.handleRefresh(msg)
	case "status":
		h.handleStatus(msg)
	default:
		h.sendReply(msg.Chat.ID, "Unknown command. Use /help to see what I can do.")
	}
}

// HandleCallback handles inline keyboard callbacks.
func (h *Handlers) HandleCallback(callback *tgbotapi.CallbackQuery) {
	// Acknowledge the callback
	if _, err := h.api.Send(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		logger.Debug().Err(err).Msg("Failed to acknowledge callback")
	}
	if callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	if h.deps.Allowed != nil && !h.deps.Allowed(chatID) {
		return
	}

	action, arg, _ := strings.Cut(callback.Data, ":")
	switch action {
	case "book":
		h.book(chatID, booking.BookRequest{ContestID: arg})
	}
}

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	text := `🤖 *Contest calendar bot*

I collect upcoming contests from Codeforces, LeetCode and CodeChef and put the ones you pick on your calendar, with reminders.

*Quick start:*
` + "`/contests`" + ` to see what is coming up
` + "`/book <id>`" + ` to add one to your calendar

Use /help to see every command.`

	h.sendMarkdown(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	text := `📚 *Commands*

*Contests:*
• ` + "`/contests [platform] [days]`" + ` - upcoming contests
• ` + "`/contest <id>`" + ` - contest details
• ` + "`/refresh`" + ` - fetch the latest listings now

*Calendar:*
• ` + "`/book <id> [minutes...] [force]`" + ` - add a contest to the calendar
• ` + "`/events [days]`" + ` - booked events
• ` + "`/delete <event_id>`" + ` - remove a calendar event
• ` + "`/reminders [minutes...]`" + ` - show or set default reminders

*Examples:*
` + "```" + `
/contests codeforces 7
/book codeforces_1900 60 15
/book codeforces_1900 force
/reminders 30 10
` + "```"

	h.sendMarkdown(msg.Chat.ID, text)
}

func (h *Handlers) handleContests(msg *tgbotapi.Message, args string) {
	platform, days, err := parseContestsArgs(args, h.deps.DaysAhead)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ "+escape(err.Error())+"\nUsage: `/contests [platform] [days]`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	contests, err := h.deps.Contests.QueryUpcoming(ctx, platform, time.Duration(days)*24*time.Hour)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Failed to load contests, please try again later")
		logger.Error().Err(err).Msg("Failed to query contests")
		return
	}

	h.sendMarkdown(msg.Chat.ID, h.messages.ContestList(contests, platform, days))
}

func (h *Handlers) handleContest(msg *tgbotapi.Message, args string) {
	id := strings.TrimSpace(args)
	if id == "" {
		h.sendReply(msg.Chat.ID, "❌ Usage: `/contest <id>`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	c, err := h.deps.Contests.GetContest(ctx, id)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Failed to load contest, please try again later")
		logger.Error().Err(err).Str("contest_id", id).Msg("Failed to get contest")
		return
	}
	if c == nil {
		h.sendReply(msg.Chat.ID, fmt.Sprintf("❌ Contest `%s` not found. Try /refresh first.", escape(id)))
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, h.messages.ContestDetail(c))
	reply.ParseMode = tgbotapi.ModeMarkdown
	reply.DisableWebPagePreview = true
	if data := "book:" + c.ID; len(data) <= 64 {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📅 Book", data)),
		)
	}
	h.send(reply)
}

func (h *Handlers) handleBook(msg *tgbotapi.Message, args string) {
	req, err := parseBookArgs(args)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ "+escape(err.Error())+"\nUsage: `/book <id> [minutes...] [force]`")
		return
	}
	h.book(msg.Chat.ID, req)
}

func (h *Handlers) book(chatID int64, req booking.BookRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out := h.deps.Booker.EnsureBooked(ctx, req)
	h.sendMarkdown(chatID, h.messages.Outcome(out))
}

func (h *Handlers) handleEvents(msg *tgbotapi.Message, args string) {
	days, err := parseDaysArg(args, calendarDays)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Usage: `/events [days]`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	events, err := h.deps.Booker.ListCalendar(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		h.sendReply(msg.Chat.ID, "⚠️ Failed to read the calendar: "+escape(err.Error()))
		logger.Error().Err(err).Msg("Failed to list calendar events")
		return
	}

	if days == 0 {
		days = calendarDays
	}
	h.sendMarkdown(msg.Chat.ID, h.messages.Events(events, days))
}

func (h *Handlers) handleDelete(msg *tgbotapi.Message, args string) {
	eventID := strings.TrimSpace(args)
	if eventID == "" {
		h.sendReply(msg.Chat.ID, "❌ Usage: `/delete <event_id>`")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out := h.deps.Booker.RemoveBooking(ctx, eventID)
	h.sendMarkdown(msg.Chat.ID, h.messages.Outcome(out))
}

func (h *Handlers) handleReminders(msg *tgbotapi.Message, args string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if strings.TrimSpace(args) == "" {
		current, err := h.deps.Booker.DefaultReminders(ctx)
		if err != nil {
			h.sendReply(msg.Chat.ID, "❌ Failed to load reminders")
			logger.Error().Err(err).Msg("Failed to load reminders")
			return
		}
		h.sendMarkdown(msg.Chat.ID, h.messages.Reminders(current))
		return
	}

	minutes, err := parseMinutes(args)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ "+escape(err.Error())+"\nUsage: `/reminders 30 10`")
		return
	}

	saved, err := h.deps.Booker.SetDefaultReminders(ctx, minutes)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ "+escape(err.Error()))
		return
	}
	h.sendMarkdown(msg.Chat.ID, "✅ "+h.messages.Reminders(saved))
}

func (h *Handlers) handleRefresh(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	summary, err := h.deps.Refresher.Refresh(ctx)
	if err != nil {
		h.sendReply(msg.Chat.ID, "❌ Refresh failed, please try again later")
		logger.Error().Err(err).Msg("Manual refresh failed")
		return
	}
	h.sendMarkdown(msg.Chat.ID, h.messages.Refresh(summary))
}

func (h *Handlers) handleStatus(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	count := "unknown"
	if n, err := h.deps.Contests.CountContests(ctx); err == nil {
		count = fmt.Sprintf("%d", n)
	}

	text := fmt.Sprintf("📊 *Bot status*\n\n⏱️ *Uptime:* %s\n📦 *Stored contests:* %s\n",
		formatDuration(time.Since(h.startTime)), count)
	h.sendMarkdown(msg.Chat.ID, text)
}

// formatDuration formats a duration to a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	} else if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// sendReply sends a simple text reply.
func (h *Handlers) sendReply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	h.send(msg)
}

// sendMarkdown sends a markdown-formatted message.
func (h *Handlers) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	h.send(msg)
}

func (h *Handlers) send(msg tgbotapi.MessageConfig) {
	if _, err := h.api.Send(msg); err != nil {
		logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Failed to send message")
	}
}
