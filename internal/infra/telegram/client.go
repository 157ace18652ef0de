// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"study_streak_bot/internal/domain/notification"

	"gopkg.in/telebot.v3"
)

// messageSender is the part of *telebot.Bot the adapter needs.
type messageSender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelebotAdapter delivers notifications as Telegram messages.
type TelebotAdapter struct {
	bot messageSender
}

func NewTelebotAdapter(b messageSender) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // Reminders always go to the private chat
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

// Deliver implements notification.Deliverer. Users that blocked the bot or
// no longer exist are reported as notification.ErrRecipientUnreachable.
func (tba *TelebotAdapter) Deliver(ctx context.Context, userID string, content notification.Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: invalid telegram id %q", notification.ErrRecipientUnreachable, userID)
	}

	opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}
	if content.Sound == "" {
		opts.DisableNotification = true
	}
	err = tba.SendMessage(chatID, FormatContent(content), opts)
	if isUnreachable(err) {
		return fmt.Errorf("%w: %v", notification.ErrRecipientUnreachable, err)
	}
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

// FormatContent renders a notification as a bold title followed by the body.
func FormatContent(content notification.Content) string {
	var sb strings.Builder
	if content.Title != "" {
		sb.WriteString("<b>")
		sb.WriteString(escapeHTML(content.Title))
		sb.WriteString("</b>")
	}
	if content.Body != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(escapeHTML(content.Body))
	}
	return sb.String()
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

func isUnreachable(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser) ||
		errors.Is(err, telebot.ErrUserIsDeactivated) ||
		errors.Is(err, telebot.ErrChatNotFound)
}
