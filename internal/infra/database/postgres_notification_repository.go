// internal/infra/database/postgres_notification_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"study_streak_bot/internal/domain/notification"

	"github.com/google/uuid"
)

// Custom errors specific to notification repository
var ErrEntryNotFound = fmt.Errorf("pending notification not found")

const entryColumns = `id, user_id, category, title, body, sound, trigger_type, interval_seconds, fire_date, repeats, next_fire_at, created_at`

// PostgresNotificationRepository is the pending notification queue. It serves
// both the per-user scheduler and the dispatcher.
type PostgresNotificationRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db, now: time.Now}
}

// --- Store Methods ---

func (r *PostgresNotificationRepository) ListPending(ctx context.Context, userID string) ([]notification.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_notifications
               WHERE user_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying pending notifications: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Cancel deletes one entry of the user. An unknown or already fired id is not an error.
func (r *PostgresNotificationRepository) Cancel(ctx context.Context, userID string, id string) error {
	query := `DELETE FROM pending_notifications WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("error cancelling notification %s: %w", id, err)
	}
	return nil
}

func (r *PostgresNotificationRepository) Schedule(ctx context.Context, userID string, content notification.Content, trigger notification.Trigger) (string, error) {
	if err := trigger.Validate(); err != nil {
		return "", err
	}
	id := uuid.New().String()
	now := r.now()
	row := entryRow{
		ID:         id,
		UserID:     userID,
		Content:    content,
		Trigger:    trigger,
		NextFireAt: trigger.FirstFireAt(now),
		CreatedAt:  now,
	}
	query := `INSERT INTO pending_notifications (` + entryColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	if _, err := r.db.ExecContext(ctx, query, row.args()...); err != nil {
		return "", fmt.Errorf("error scheduling notification: %w", err)
	}
	return id, nil
}

// --- Queue Methods ---

func (r *PostgresNotificationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]notification.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_notifications
               WHERE next_fire_at <= $1
               ORDER BY next_fire_at ASC
               LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying due notifications: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (r *PostgresNotificationRepository) Reschedule(ctx context.Context, id string, nextFireAt time.Time) error {
	query := `UPDATE pending_notifications SET next_fire_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, nextFireAt, id)
	if err != nil {
		return fmt.Errorf("error rescheduling notification %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *PostgresNotificationRepository) Remove(ctx context.Context, id string) error {
	query := `DELETE FROM pending_notifications WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("error removing notification %s: %w", id, err)
	}
	return nil
}

func (r *PostgresNotificationRepository) RemoveAllForUser(ctx context.Context, userID string) (int, error) {
	query := `DELETE FROM pending_notifications WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("error removing notifications of user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting removed notifications: %w", err)
	}
	return int(n), nil
}

// entryRow maps an Entry onto the flat pending_notifications columns.
type entryRow notification.Entry

func (e entryRow) args() []any {
	var fireDate sql.NullTime
	if e.Trigger.Type == notification.TriggerDate {
		fireDate = sql.NullTime{Time: e.Trigger.Date, Valid: true}
	}
	return []any{
		e.ID, e.UserID, string(e.Content.Category), e.Content.Title, e.Content.Body, e.Content.Sound,
		string(e.Trigger.Type), e.Trigger.Seconds, fireDate, e.Trigger.Repeats, e.NextFireAt, e.CreatedAt,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (notification.Entry, error) {
	var (
		e           notification.Entry
		category    string
		triggerType string
		fireDate    sql.NullTime
	)
	err := s.Scan(
		&e.ID, &e.UserID, &category, &e.Content.Title, &e.Content.Body, &e.Content.Sound,
		&triggerType, &e.Trigger.Seconds, &fireDate, &e.Trigger.Repeats, &e.NextFireAt, &e.CreatedAt,
	)
	if err != nil {
		return e, err
	}
	e.Content.Category = notification.Category(category)
	e.Trigger.Type = notification.TriggerType(triggerType)
	if fireDate.Valid {
		e.Trigger.Date = fireDate.Time
	}
	return e, nil
}

// Helper to scan multiple rows
func scanEntries(rows *sql.Rows) ([]notification.Entry, error) {
	entries := make([]notification.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning pending notification row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending notification rows: %w", err)
	}
	return entries, nil
}
