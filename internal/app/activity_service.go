package app

import (
	"context"
	"fmt"
	"time"

	"study_streak_bot/internal/domain/activity"
	"study_streak_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// ActivityService records study days.
type ActivityService struct {
	store    activity.Store
	identity activity.IdentityProvider
	now      func() time.Time
	location *time.Location
	observer *metrics.Observer
	logger   *logrus.Entry
}

func NewActivityService(
	store activity.Store,
	identity activity.IdentityProvider,
	now func() time.Time, // nil means time.Now
	location *time.Location,
	observer *metrics.Observer,
	logger *logrus.Entry,
) *ActivityService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &ActivityService{
		store:    store,
		identity: identity,
		now:      now,
		location: location,
		observer: observer,
		logger:   logger,
	}
}

// MarkToday marks the current day as studied for the user found in ctx.
// Without an identity it is a no-op and reports ReasonUnauthenticated.
func (s *ActivityService) MarkToday(ctx context.Context) (Outcome, error) {
	userID, ok := s.identity.CurrentUserID(ctx)
	if !ok || userID == "" {
		s.logger.Debug("No authenticated user, activity not recorded")
		s.observer.ActivityMark(string(StatusSkipped))
		return skipped(ReasonUnauthenticated), nil
	}

	key := activity.DayKey(s.now().In(s.location))
	log := s.logger.WithFields(logrus.Fields{"user_id": userID, "day": key})

	existing, found, err := s.store.Get(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to read activity record")
		s.observer.ActivityMark(string(StatusFailed))
		return failed(fmt.Errorf("failed to read activity record: %w", err))
	}
	already := found && existing.Studied(key)

	// Only the new key is sent; Merge keeps every other stored key.
	if err := s.store.Merge(ctx, userID, activity.Record{key: true}); err != nil {
		log.WithError(err).Error("Failed to record activity")
		s.observer.ActivityMark(string(StatusFailed))
		return failed(fmt.Errorf("failed to record activity: %w", err))
	}

	log.WithField("already_recorded", already).Info("Study day recorded")
	s.observer.ActivityMark(string(StatusDone))
	return Outcome{Status: StatusDone, DayKey: key, AlreadyRecorded: already}, nil
}
