package app

import (
	"context"
	"errors"
	"fmt"

	"study_streak_bot/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// PreferenceService handles a user's notification consent.
type PreferenceService struct {
	permissions notification.PermissionSetter
	reminders   *ReminderService
	logger      *logrus.Entry
}

func NewPreferenceService(ps notification.PermissionSetter, reminders *ReminderService, logger *logrus.Entry) *PreferenceService {
	return &PreferenceService{
		permissions: ps,
		reminders:   reminders,
		logger:      logger,
	}
}

// Mute denies notifications and cancels everything pending. Later reminder
// commands are skipped until Unmute.
func (s *PreferenceService) Mute(ctx context.Context, userID string) (int, error) {
	if err := s.permissions.SetPermission(ctx, userID, notification.PermissionDenied); err != nil {
		return 0, fmt.Errorf("failed to deny notifications: %w", err)
	}
	s.logger.WithField("user_id", userID).Info("Notifications muted")
	return s.StopAll(ctx, userID)
}

// Unmute grants notifications again. Nothing is rescheduled automatically.
func (s *PreferenceService) Unmute(ctx context.Context, userID string) error {
	if err := s.permissions.SetPermission(ctx, userID, notification.PermissionGranted); err != nil {
		return fmt.Errorf("failed to grant notifications: %w", err)
	}
	s.logger.WithField("user_id", userID).Info("Notifications unmuted")
	return nil
}

// StopAll cancels both reminder categories and returns how many entries were
// cancelled. Permission is left as is.
func (s *PreferenceService) StopAll(ctx context.Context, userID string) (int, error) {
	study, errStudy := s.reminders.ClearStudyReminders(ctx, userID)
	streak, errStreak := s.reminders.ClearStreakAlerts(ctx, userID)
	if err := errors.Join(errStudy, errStreak); err != nil {
		s.logger.WithField("user_id", userID).WithError(err).Warn("Not every reminder could be cancelled")
		return study + streak, err
	}
	return study + streak, nil
}
