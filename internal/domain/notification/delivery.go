package notification

import (
	"context"
	"fmt"
)

// ErrRecipientUnreachable means the user can no longer receive messages
// (blocked the bot, deleted the account). Entries for such users are dropped.
var ErrRecipientUnreachable = fmt.Errorf("notification recipient is unreachable")

// Deliverer pushes fired content to the user.
// This decouples dispatching from the specific bot library.
type Deliverer interface {
	Deliver(ctx context.Context, userID string, content Content) error
}
