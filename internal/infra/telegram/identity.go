package telegram

import (
	"context"
	"strconv"
)

type senderKey struct{}

// WithSender attaches the Telegram user who sent the update to ctx.
func WithSender(ctx context.Context, telegramID int64) context.Context {
	return context.WithValue(ctx, senderKey{}, telegramID)
}

// UserID is the store identifier of a Telegram user.
func UserID(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}

// SenderIdentity resolves the current user from a context built by WithSender.
type SenderIdentity struct{}

func (SenderIdentity) CurrentUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(senderKey{}).(int64)
	if !ok || id == 0 {
		return "", false
	}
	return UserID(id), true
}
