package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"study_streak_bot/internal/domain/notification"
)

var ErrInvalidPermissionStatus = fmt.Errorf("invalid notification permission status")

// PostgresPermissionRepository stores each user's notification consent.
type PostgresPermissionRepository struct {
	db *sql.DB
}

func NewPostgresPermissionRepository(db *sql.DB) *PostgresPermissionRepository {
	return &PostgresPermissionRepository{db: db}
}

// PermissionStatus returns PermissionUndetermined for users without a stored decision.
func (r *PostgresPermissionRepository) PermissionStatus(ctx context.Context, userID string) (notification.PermissionStatus, error) {
	query := `SELECT status FROM notification_permissions WHERE user_id = $1`
	var status string
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notification.PermissionUndetermined, nil
		}
		return "", fmt.Errorf("error getting notification permission: %w", err)
	}
	return notification.PermissionStatus(status), nil
}

// RequestPermission grants an undetermined user. A stored denial is kept
// until SetPermission grants again.
func (r *PostgresPermissionRepository) RequestPermission(ctx context.Context, userID string) (notification.PermissionStatus, error) {
	query := `INSERT INTO notification_permissions (user_id, status, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (user_id) DO UPDATE
               SET status = CASE WHEN notification_permissions.status = $3 THEN EXCLUDED.status
                                 ELSE notification_permissions.status END,
                   updated_at = NOW()
               RETURNING status`
	var status string
	err := r.db.QueryRowContext(ctx, query, userID, notification.PermissionGranted, notification.PermissionUndetermined).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("error requesting notification permission: %w", err)
	}
	return notification.PermissionStatus(status), nil
}

func (r *PostgresPermissionRepository) SetPermission(ctx context.Context, userID string, status notification.PermissionStatus) error {
	switch status {
	case notification.PermissionGranted, notification.PermissionDenied, notification.PermissionUndetermined:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPermissionStatus, status)
	}
	query := `INSERT INTO notification_permissions (user_id, status, updated_at)
               VALUES ($1, $2, NOW())
               ON CONFLICT (user_id) DO UPDATE SET status = EXCLUDED.status, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, status); err != nil {
		return fmt.Errorf("error setting notification permission: %w", err)
	}
	return nil
}
