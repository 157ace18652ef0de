// internal/domain/notification/repository.go
package notification

import (
	"context"
	"time"
)

// Store is the pending-notification queue of a user. It is the only source of
// truth for what is currently scheduled; callers never cache its contents.
type Store interface {
	ListPending(ctx context.Context, userID string) ([]Entry, error)
	Cancel(ctx context.Context, userID string, id string) error
	// Schedule stores a new entry and returns its identifier.
	Schedule(ctx context.Context, userID string, content Content, trigger Trigger) (string, error)
}

// Queue is the dispatcher's view of the store, across all users.
type Queue interface {
	// ListDue returns entries whose next fire instant is at or before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	Reschedule(ctx context.Context, id string, nextFireAt time.Time) error
	Remove(ctx context.Context, id string) error
	// RemoveAllForUser drops every pending entry of a user and returns how many were removed.
	RemoveAllForUser(ctx context.Context, userID string) (int, error)
}

// PermissionGate answers whether a user allows notifications.
type PermissionGate interface {
	PermissionStatus(ctx context.Context, userID string) (PermissionStatus, error)
	// RequestPermission asks for consent and returns the resulting status,
	// which is either PermissionGranted or PermissionDenied.
	RequestPermission(ctx context.Context, userID string) (PermissionStatus, error)
}

// PermissionSetter records an explicit consent decision.
type PermissionSetter interface {
	SetPermission(ctx context.Context, userID string, status PermissionStatus) error
}
