package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"study_streak_bot/internal/app"
	"study_streak_bot/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

const remindCallbackPrefix = "remind_"

// RemindPresets are the intervals offered by /remind without arguments.
var RemindPresets = []int{1, 3, 6, 24}

// remindKeyboard builds one button per preset, data "remind_<hours>".
func remindKeyboard() *telebot.ReplyMarkup {
	row := make([]telebot.InlineButton, 0, len(RemindPresets))
	for _, hours := range RemindPresets {
		row = append(row, telebot.InlineButton{
			Text: fmt.Sprintf("%d h", hours),
			Data: remindCallbackPrefix + strconv.Itoa(hours),
		})
	}
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{row}}
}

func (h *CommandHandlers) handleRemind(c telebot.Context) error {
	logCtx := h.handlerLogger("/remind", c)

	args := c.Args()
	// Expected format: /remind [hours]
	if len(args) == 0 {
		return c.Send("How often should I remind you to study?", remindKeyboard())
	}
	if len(args) > 1 {
		return c.Send("Invalid command format. Use: /remind <hours>")
	}
	hours, err := strconv.Atoi(args[0])
	if err != nil || hours <= 0 || hours > app.MaxIntervalHours {
		logCtx.WithField("arg", args[0]).Warn("Invalid interval argument")
		return c.Send(invalidIntervalReply)
	}
	return c.Send(h.scheduleInterval(c, hours))
}

// scheduleInterval runs the interval reminder for the sender and returns the reply text.
func (h *CommandHandlers) scheduleInterval(c telebot.Context, hours int) string {
	logCtx := h.handlerLogger("/remind", c).WithField("interval_hours", hours)
	ctx, cancel := h.request(c)
	defer cancel()

	out, err := h.reminders.ScheduleIntervalReminder(ctx, UserID(c.Sender().ID), hours)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInterval) {
			return invalidIntervalReply
		}
		logCtx.WithError(err).Error("Failed to schedule study reminder")
		return "Could not set the reminder. Please try again later."
	}
	if out.Status == app.StatusSkipped {
		return mutedReply
	}
	return fmt.Sprintf("⏰ I'll remind you to study every %s. Next reminder at %s.",
		pluralHours(hours), out.FireAt.In(h.location).Format("15:04 Jan 2"))
}

func (h *CommandHandlers) handleStreak(c telebot.Context) error {
	logCtx := h.handlerLogger("/streak", c)

	hour := h.defaultStreakHour
	args := c.Args()
	// Expected format: /streak [hour]
	if len(args) > 1 {
		return c.Send("Invalid command format. Use: /streak [hour]")
	}
	if len(args) == 1 {
		var err error
		hour, err = strconv.Atoi(args[0])
		if err != nil || hour < 0 || hour > 23 {
			logCtx.WithField("arg", args[0]).Warn("Invalid hour argument")
			return c.Send("Error: the hour must be a number from 0 to 23.")
		}
	}

	ctx, cancel := h.request(c)
	defer cancel()
	out, err := h.reminders.ScheduleDailyStreakAlert(ctx, UserID(c.Sender().ID), hour)
	if err != nil {
		logCtx.WithError(err).Error("Failed to schedule streak alert")
		return c.Send("Could not set the streak alert. Please try again later.")
	}
	if out.Status == app.StatusSkipped {
		return c.Send(mutedReply)
	}
	return c.Send(fmt.Sprintf("🔥 Daily streak alert set for %02d:00. First one at %s.",
		hour, out.FireAt.In(h.location).Format("15:04 Jan 2")))
}

func (h *CommandHandlers) handleReminders(c telebot.Context) error {
	logCtx := h.handlerLogger("/reminders", c)
	ctx, cancel := h.request(c)
	defer cancel()

	entries, err := h.reminders.ListPending(ctx, UserID(c.Sender().ID))
	if err != nil {
		logCtx.WithError(err).Error("Failed to list pending reminders")
		return c.Send("Could not load your reminders. Please try again later.")
	}
	if len(entries) == 0 {
		return c.Send("You have no pending reminders. Set one with /remind or /streak.")
	}
	return c.Send(formatPending(entries, h.location))
}

func (h *CommandHandlers) handleStop(c telebot.Context) error {
	logCtx := h.handlerLogger("/stop", c)
	ctx, cancel := h.request(c)
	defer cancel()

	n, err := h.preferences.StopAll(ctx, UserID(c.Sender().ID))
	if err != nil {
		logCtx.WithError(err).Error("Failed to cancel reminders")
		return c.Send("Some reminders could not be cancelled. Please try /stop again.")
	}
	logCtx.WithField("cancelled", n).Info("Reminders cancelled")
	return c.Send(fmt.Sprintf("Cancelled %d reminder(s).", n))
}

func (h *CommandHandlers) handleMute(c telebot.Context) error {
	logCtx := h.handlerLogger("/mute", c)
	ctx, cancel := h.request(c)
	defer cancel()

	if _, err := h.preferences.Mute(ctx, UserID(c.Sender().ID)); err != nil {
		logCtx.WithError(err).Error("Failed to mute notifications")
		return c.Send("Could not mute notifications. Please try again later.")
	}
	return c.Send("🔕 Notifications are off and pending reminders were cancelled. Send /unmute to turn them back on.")
}

func (h *CommandHandlers) handleUnmute(c telebot.Context) error {
	logCtx := h.handlerLogger("/unmute", c)
	ctx, cancel := h.request(c)
	defer cancel()

	if err := h.preferences.Unmute(ctx, UserID(c.Sender().ID)); err != nil {
		logCtx.WithError(err).Error("Failed to unmute notifications")
		return c.Send("Could not unmute notifications. Please try again later.")
	}
	return c.Send("🔔 Notifications are on. Set reminders with /remind or /streak.")
}

func (h *CommandHandlers) handleCallback(c telebot.Context) error {
	data := strings.TrimSpace(c.Callback().Data)

	if strings.HasPrefix(data, remindCallbackPrefix) {
		hoursStr := strings.TrimPrefix(data, remindCallbackPrefix) // remind_3
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours <= 0 || hours > app.MaxIntervalHours {
			h.handlerLogger("callback", c).WithField("data", data).Warn("Invalid remind callback data")
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown interval."})
		}
		reply := h.scheduleInterval(c, hours)
		if err := c.Respond(); err != nil {
			h.handlerLogger("callback", c).WithError(err).Warn("Failed to acknowledge callback")
		}
		return c.Send(reply)
	}

	// Fallback for unhandled callbacks.
	h.handlerLogger("callback", c).WithField("data", data).Warn("Unhandled callback data")
	return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
}

var invalidIntervalReply = fmt.Sprintf("Error: the interval must be a whole number of hours from 1 to %d.", app.MaxIntervalHours)

const mutedReply = "Notifications are muted, so no reminder was set. Send /unmute to allow them."

func formatPending(entries []notification.Entry, location *time.Location) string {
	var sb strings.Builder
	sb.WriteString("Pending reminders:\n")
	for _, e := range entries {
		sb.WriteString("\n")
		switch {
		case e.Category() == notification.CategoryStudy && e.Trigger.Type == notification.TriggerInterval:
			sb.WriteString(fmt.Sprintf("📚 Study reminder every %s", pluralHours(int(e.Trigger.Period()/time.Hour))))
		case e.Category() == notification.CategoryStreak:
			sb.WriteString("🔥 Daily streak alert")
		default:
			sb.WriteString(string(e.Category()))
		}
		sb.WriteString(", next at ")
		sb.WriteString(e.NextFireAt.In(location).Format("15:04 Jan 2"))
	}
	return sb.String()
}

func pluralHours(h int) string {
	if h == 1 {
		return "hour"
	}
	return fmt.Sprintf("%d hours", h)
}
