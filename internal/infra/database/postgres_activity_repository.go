package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"study_streak_bot/internal/domain/activity"
)

var ErrInvalidActivityDocument = fmt.Errorf("stored activity document is not a JSON object")

// PostgresActivityRepository keeps one JSONB document of day-keys per user.
type PostgresActivityRepository struct {
	db *sql.DB
}

func NewPostgresActivityRepository(db *sql.DB) *PostgresActivityRepository {
	return &PostgresActivityRepository{db: db}
}

func (r *PostgresActivityRepository) Get(ctx context.Context, userID string) (activity.Record, bool, error) {
	query := `SELECT days FROM activity_records WHERE user_id = $1`
	var raw []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return activity.Record{}, false, nil
		}
		return nil, false, fmt.Errorf("error getting activity record: %w", err)
	}
	rec, err := decodeDays(raw)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Merge upserts partial into the stored document with jsonb concatenation, so
// keys that are not in partial survive.
func (r *PostgresActivityRepository) Merge(ctx context.Context, userID string, partial activity.Record) error {
	if len(partial) == 0 {
		return nil
	}
	payload, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("error encoding activity record: %w", err)
	}
	query := `INSERT INTO activity_records (user_id, days, updated_at)
               VALUES ($1, $2::jsonb, NOW())
               ON CONFLICT (user_id) DO UPDATE
               SET days = activity_records.days || EXCLUDED.days, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, string(payload)); err != nil {
		return fmt.Errorf("error merging activity record: %w", err)
	}
	return nil
}

// decodeDays keeps the boolean day flags of a stored document and ignores any
// other field.
func decodeDays(raw []byte) (activity.Record, error) {
	rec := activity.Record{}
	if len(raw) == 0 {
		return rec, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivityDocument, err)
	}
	for key, v := range doc {
		if flag, ok := v.(bool); ok {
			rec[key] = flag
		}
	}
	return rec, nil
}
