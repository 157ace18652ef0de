// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"study_streak_bot/internal/app"
	"study_streak_bot/internal/domain/calendar"
	"study_streak_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const requestTimeout = 10 * time.Second

type ActivityRecorder interface {
	MarkToday(ctx context.Context) (app.Outcome, error)
}

type CalendarReader interface {
	CurrentMonth(ctx context.Context, userID string) ([]calendar.DayCell, error)
}

type ReminderScheduler interface {
	ScheduleIntervalReminder(ctx context.Context, userID string, intervalHours int) (app.Outcome, error)
	ScheduleDailyStreakAlert(ctx context.Context, userID string, hour int) (app.Outcome, error)
	ListPending(ctx context.Context, userID string) ([]notification.Entry, error)
}

type PreferenceManager interface {
	Mute(ctx context.Context, userID string) (int, error)
	Unmute(ctx context.Context, userID string) error
	StopAll(ctx context.Context, userID string) (int, error)
}

// CommandHandlers serves the bot's commands and inline-keyboard callbacks.
type CommandHandlers struct {
	baseCtx           context.Context
	activity          ActivityRecorder
	calendar          CalendarReader
	reminders         ReminderScheduler
	preferences       PreferenceManager
	defaultStreakHour int
	location          *time.Location
	now               func() time.Time
	logger            *logrus.Entry
}

func NewCommandHandlers(
	ctx context.Context,
	activity ActivityRecorder,
	calendar CalendarReader,
	reminders ReminderScheduler,
	preferences PreferenceManager,
	defaultStreakHour int,
	location *time.Location,
	baseLogger *logrus.Entry, // For contextual logging
) *CommandHandlers {
	if location == nil {
		location = time.Local
	}
	return &CommandHandlers{
		baseCtx:           ctx,
		activity:          activity,
		calendar:          calendar,
		reminders:         reminders,
		preferences:       preferences,
		defaultStreakHour: defaultStreakHour,
		location:          location,
		now:               time.Now,
		logger:            baseLogger,
	}
}

// RegisterBotCommands wires every command and the callback handler into b.
func RegisterBotCommands(b *telebot.Bot, h *CommandHandlers) {
	b.Handle("/start", h.handleStart)
	b.Handle("/help", h.handleHelp)
	b.Handle("/studied", h.handleStudied)
	b.Handle("/calendar", h.handleCalendar)
	b.Handle("/remind", h.handleRemind)
	b.Handle("/streak", h.handleStreak)
	b.Handle("/reminders", h.handleReminders)
	b.Handle("/stop", h.handleStop)
	b.Handle("/mute", h.handleMute)
	b.Handle("/unmute", h.handleUnmute)
	b.Handle(telebot.OnCallback, h.handleCallback)
}

// request builds the per-update context carrying the sender's identity.
func (h *CommandHandlers) request(c telebot.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(h.baseCtx, requestTimeout)
	return WithSender(ctx, c.Sender().ID), cancel
}

func (h *CommandHandlers) handlerLogger(command string, c telebot.Context) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"command":   command,
		"sender_id": c.Sender().ID,
	})
}

func (h *CommandHandlers) handleStart(c telebot.Context) error {
	h.handlerLogger("/start", c).Info("Processing /start command")
	return c.Send(fmt.Sprintf(
		"Hi, %s! I help you keep a daily study streak.\n\nSend /studied after each study session, /calendar to see this month, and /remind to get nudged. /help lists every command.",
		c.Sender().FirstName,
	))
}

func (h *CommandHandlers) handleHelp(c telebot.Context) error {
	h.handlerLogger("/help", c).Info("Processing /help command")
	var helpText strings.Builder
	helpText.WriteString("Available commands:\n\n")
	helpText.WriteString("/studied - mark today as studied\n")
	helpText.WriteString("/calendar - show this month's streak calendar\n")
	helpText.WriteString("/remind <hours> - remind me to study every N hours\n")
	helpText.WriteString(fmt.Sprintf("/streak [hour] - daily streak alert at the given hour (default %d:00)\n", h.defaultStreakHour))
	helpText.WriteString("/reminders - list pending reminders\n")
	helpText.WriteString("/stop - cancel all reminders\n")
	helpText.WriteString("/mute - stop all notifications until /unmute\n")
	helpText.WriteString("/unmute - allow notifications again\n")
	helpText.WriteString("/help - show this message")
	return c.Send(helpText.String())
}

func (h *CommandHandlers) handleStudied(c telebot.Context) error {
	logCtx := h.handlerLogger("/studied", c)
	ctx, cancel := h.request(c)
	defer cancel()

	out, err := h.activity.MarkToday(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to record study day")
		return c.Send("Could not save your progress. Please try again later.")
	}
	switch {
	case out.Status == app.StatusSkipped:
		logCtx.WithField("reason", out.Reason).Warn("Study day not recorded")
		return c.Send("I could not tell who you are, so nothing was recorded.")
	case out.AlreadyRecorded:
		return c.Send("Today is already marked as studied. Keep going!")
	default:
		return c.Send(fmt.Sprintf("✅ %s marked as studied. See your month with /calendar.", out.DayKey))
	}
}

func (h *CommandHandlers) handleCalendar(c telebot.Context) error {
	logCtx := h.handlerLogger("/calendar", c)
	ctx, cancel := h.request(c)
	defer cancel()

	cells, err := h.calendar.CurrentMonth(ctx, UserID(c.Sender().ID))
	if err != nil {
		logCtx.WithError(err).Error("Failed to build calendar")
		return c.Send("Could not load your calendar. Please try again later.")
	}
	active, missed := streakSummary(cells)
	month := cellsMonth(cells, h.location, h.now().In(h.location))
	text := RenderCalendar(month, cells) +
		fmt.Sprintf("\n\nStudied: %d  Missed: %d", active, missed)
	return c.Send(text)
}
