package activity

import (
	"context"
)

// Store persists per-user activity records.
type Store interface {
	// Get returns the stored record. The bool is false when the user has no record yet.
	Get(ctx context.Context, userID string) (Record, bool, error)
	// Merge adds the given keys to the stored record. Keys not present in partial
	// (including fields unknown to Record) are left untouched.
	Merge(ctx context.Context, userID string, partial Record) error
}

// IdentityProvider resolves the user on whose behalf a request runs.
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (string, bool)
}
