// Package cache implements the Redis-backed activity store.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"study_streak_bot/internal/domain/activity"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheConnection is returned when Redis cannot be reached on startup.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheKeyEmpty is returned for an empty user id.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// PrefixActivity namespaces the per-user activity hashes.
const PrefixActivity = "activity:"

// Config holds Redis connection configuration.
type Config struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// NewClient opens a Redis client and pings it.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}
	return client, nil
}

// RedisActivityStore keeps one hash per user, field = day-key, value = "1"/"0".
// HSET only touches the given fields, which gives Merge its additive semantics.
type RedisActivityStore struct {
	client redis.Cmdable
}

func NewRedisActivityStore(client redis.Cmdable) *RedisActivityStore {
	return &RedisActivityStore{client: client}
}

func (s *RedisActivityStore) Get(ctx context.Context, userID string) (activity.Record, bool, error) {
	if userID == "" {
		return nil, false, ErrCacheKeyEmpty
	}
	fields, err := s.client.HGetAll(ctx, activityKey(userID)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("cache: get activity: %w", err)
	}
	if len(fields) == 0 {
		return activity.Record{}, false, nil
	}
	return decodeFields(fields), true, nil
}

func (s *RedisActivityStore) Merge(ctx context.Context, userID string, partial activity.Record) error {
	if userID == "" {
		return ErrCacheKeyEmpty
	}
	if len(partial) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, activityKey(userID), encodeFields(partial)).Err(); err != nil {
		return fmt.Errorf("cache: merge activity: %w", err)
	}
	return nil
}

func activityKey(userID string) string {
	return PrefixActivity + userID
}

func encodeFields(rec activity.Record) map[string]any {
	out := make(map[string]any, len(rec))
	for key, studied := range rec {
		out[key] = strconv.FormatBool(studied)
	}
	return out
}

// decodeFields skips values that are not booleans.
func decodeFields(fields map[string]string) activity.Record {
	rec := make(activity.Record, len(fields))
	for key, raw := range fields {
		if studied, err := strconv.ParseBool(raw); err == nil {
			rec[key] = studied
		}
	}
	return rec
}
