// internal/app/reminder_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"study_streak_bot/internal/domain/notification"
	"study_streak_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var ErrInvalidInterval = fmt.Errorf("reminder interval must be between 1 and %d hours", MaxIntervalHours)
var ErrInvalidHour = fmt.Errorf("streak alert hour must be within 0-23")

// MaxIntervalHours is the longest study reminder interval, one year.
const MaxIntervalHours = 24 * 365

// DefaultStreakHour is the local hour of the daily streak alert when none is given.
const DefaultStreakHour = 21

const maxConcurrentCancels = 8

// CancelError reports stale entries that could not be cancelled. Scheduling
// continues past it; the failed entries may still fire.
type CancelError struct {
	Category notification.Category
	Failed   int
	Total    int
	Err      error
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("failed to cancel %d of %d pending %s notifications: %v", e.Failed, e.Total, e.Category, e.Err)
}

func (e *CancelError) Unwrap() error { return e.Err }

// ReminderService keeps at most one pending entry per user and category by
// cancelling stale entries before creating the new one. The notification store
// is re-read on every call; nothing is cached here.
type ReminderService struct {
	store    notification.Store
	gate     notification.PermissionGate
	picker   MessagePicker
	now      func() time.Time
	location *time.Location
	observer *metrics.Observer
	logger   *logrus.Entry
	locks    *keyedLocks
}

func NewReminderService(
	store notification.Store,
	gate notification.PermissionGate,
	picker MessagePicker,
	now func() time.Time, // nil means time.Now
	location *time.Location,
	observer *metrics.Observer,
	logger *logrus.Entry,
) *ReminderService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &ReminderService{
		store:    store,
		gate:     gate,
		picker:   picker,
		now:      now,
		location: location,
		observer: observer,
		logger:   logger,
		locks:    newKeyedLocks(),
	}
}

// ScheduleIntervalReminder replaces the user's study reminder with one that
// repeats every intervalHours hours.
func (s *ReminderService) ScheduleIntervalReminder(ctx context.Context, userID string, intervalHours int) (Outcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"user_id":        userID,
		"category":       notification.CategoryStudy,
		"interval_hours": intervalHours,
	})

	if intervalHours <= 0 || intervalHours > MaxIntervalHours {
		return s.record(notification.CategoryStudy, fmt.Errorf("%w: got %d", ErrInvalidInterval, intervalHours))
	}

	msg := s.picker.Pick(StudyMessages)
	content := notification.Content{
		Title:    msg.Title,
		Body:     msg.Body,
		Sound:    notification.DefaultSound,
		Category: notification.CategoryStudy,
	}
	trigger := notification.NewIntervalTrigger(int64(intervalHours)*3600, true)

	return s.replace(ctx, log, userID, content, trigger)
}

// ScheduleDailyStreakAlert replaces the user's streak alert with one firing
// daily at hour:00 local time. The first firing is always in the future.
func (s *ReminderService) ScheduleDailyStreakAlert(ctx context.Context, userID string, hour int) (Outcome, error) {
	log := s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"category": notification.CategoryStreak,
		"hour":     hour,
	})

	if hour < 0 || hour > 23 {
		return s.record(notification.CategoryStreak, fmt.Errorf("%w: got %d", ErrInvalidHour, hour))
	}

	content := notification.Content{
		Title:    StreakMessage.Title,
		Body:     StreakMessage.Body,
		Sound:    notification.DefaultSound,
		Category: notification.CategoryStreak,
	}
	trigger := notification.NewDateTrigger(NextDailyAlert(s.now().In(s.location), hour), true)

	return s.replace(ctx, log, userID, content, trigger)
}

// NextDailyAlert returns today at hour:00:00.000 in now's location, or the same
// time tomorrow when that instant is not strictly after now.
func NextDailyAlert(now time.Time, hour int) time.Time {
	date := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !date.After(now) {
		date = date.AddDate(0, 0, 1)
	}
	return date
}

// replace runs permission gate -> cancel stale -> create under the
// per-user, per-category lock.
func (s *ReminderService) replace(ctx context.Context, log *logrus.Entry, userID string, content notification.Content, trigger notification.Trigger) (Outcome, error) {
	category := content.Category
	unlock := s.locks.Lock(userID + "/" + string(category))
	defer unlock()

	allowed, err := s.ensurePermission(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Permission check failed")
		return s.record(category, err)
	}
	if !allowed {
		log.Info("Notification permission denied, reminder not scheduled")
		out := skipped(ReasonPermissionDenied)
		s.observer.ReminderOutcome(string(category), string(out.Status))
		return out, nil
	}

	cancelled, err := s.clear(ctx, userID, category)
	if err != nil {
		var cerr *CancelError
		if !errors.As(err, &cerr) {
			log.WithError(err).Error("Failed to list pending notifications")
			return s.record(category, err)
		}
		s.observer.CancelFailures(string(category), cerr.Failed)
		log.WithError(err).Warn("Some stale notifications could not be cancelled, scheduling anyway")
	}

	id, err := s.store.Schedule(ctx, userID, content, trigger)
	if err != nil {
		log.WithError(err).Error("Failed to schedule notification")
		return s.record(category, fmt.Errorf("failed to schedule %s notification: %w", category, err))
	}

	out := Outcome{
		Status:    StatusDone,
		EntryID:   id,
		FireAt:    trigger.FirstFireAt(s.now().In(s.location)),
		Cancelled: cancelled,
	}
	log.WithFields(logrus.Fields{
		"entry_id":  id,
		"fire_at":   out.FireAt.Format(time.RFC3339),
		"cancelled": cancelled,
	}).Info("Notification scheduled")
	s.observer.ReminderOutcome(string(category), string(out.Status))
	return out, nil
}

func (s *ReminderService) record(category notification.Category, err error) (Outcome, error) {
	s.observer.ReminderOutcome(string(category), string(StatusFailed))
	return failed(err)
}

// ensurePermission reads the current status and requests it when not granted.
func (s *ReminderService) ensurePermission(ctx context.Context, userID string) (bool, error) {
	status, err := s.gate.PermissionStatus(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to read notification permission: %w", err)
	}
	if status == notification.PermissionGranted {
		return true, nil
	}

	status, err = s.gate.RequestPermission(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to request notification permission: %w", err)
	}
	return status == notification.PermissionGranted, nil
}

// ClearStudyReminders cancels every pending study entry of the user.
func (s *ReminderService) ClearStudyReminders(ctx context.Context, userID string) (int, error) {
	return s.clearLocked(ctx, userID, notification.CategoryStudy)
}

// ClearStreakAlerts cancels every pending streak entry of the user.
func (s *ReminderService) ClearStreakAlerts(ctx context.Context, userID string) (int, error) {
	return s.clearLocked(ctx, userID, notification.CategoryStreak)
}

// ListPending returns the user's pending entries as held by the store.
func (s *ReminderService) ListPending(ctx context.Context, userID string) ([]notification.Entry, error) {
	entries, err := s.store.ListPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return entries, nil
}

func (s *ReminderService) clearLocked(ctx context.Context, userID string, category notification.Category) (int, error) {
	unlock := s.locks.Lock(userID + "/" + string(category))
	defer unlock()
	return s.clear(ctx, userID, category)
}

// clear lists, filters by category and cancels the matches concurrently. It
// returns once every cancellation has settled. Individual failures come back
// as *CancelError; a listing failure is returned as is.
func (s *ReminderService) clear(ctx context.Context, userID string, category notification.Category) (int, error) {
	entries, err := s.store.ListPending(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	ids := notification.FilterByCategory(entries, category)
	if len(ids) == 0 {
		return 0, nil
	}

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(maxConcurrentCancels)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := s.store.Cancel(ctx, userID, id); err != nil {
				errs[i] = fmt.Errorf("cancel %s: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failedCount := 0
	for _, err := range errs {
		if err != nil {
			failedCount++
		}
	}
	cancelled := len(ids) - failedCount
	if failedCount > 0 {
		return cancelled, &CancelError{Category: category, Failed: failedCount, Total: len(ids), Err: errors.Join(errs...)}
	}
	return cancelled, nil
}
