package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"study_streak_bot/internal/domain/notification"
	"study_streak_bot/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// DispatchReport summarises one DispatchDue run.
type DispatchReport struct {
	Due         int
	Delivered   int
	Failed      int
	Unreachable int // entries dropped because their user blocked the bot
	Rescheduled int
	Removed     int
}

// DeliveryService delivers due entries and moves them to their next firing.
type DeliveryService struct {
	queue       notification.Queue
	deliverer   notification.Deliverer
	permissions notification.PermissionSetter
	now         func() time.Time
	location    *time.Location
	batchSize   int
	observer    *metrics.Observer
	logger      *logrus.Entry
}

func NewDeliveryService(
	queue notification.Queue,
	deliverer notification.Deliverer,
	permissions notification.PermissionSetter,
	now func() time.Time, // nil means time.Now
	location *time.Location,
	batchSize int,
	observer *metrics.Observer,
	logger *logrus.Entry,
) *DeliveryService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &DeliveryService{
		queue:       queue,
		deliverer:   deliverer,
		permissions: permissions,
		now:         now,
		location:    location,
		batchSize:   batchSize,
		observer:    observer,
		logger:      logger,
	}
}

// DispatchDue delivers every entry due at or before now, once each.
//
// Repeating entries are advanced to their first firing after now even when
// delivery failed, so a broken entry never fires in a tight loop; one-shot
// entries are removed. Users that can no longer be reached get their
// permission set to denied and all their entries dropped.
func (s *DeliveryService) DispatchDue(ctx context.Context) (DispatchReport, error) {
	var report DispatchReport
	now := s.now().In(s.location)

	entries, err := s.queue.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list due notifications: %w", err)
	}
	report.Due = len(entries)
	if len(entries) == 0 {
		return report, nil
	}

	dropped := make(map[string]bool)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if dropped[e.UserID] {
			continue
		}
		log := s.logger.WithFields(logrus.Fields{
			"entry_id": e.ID,
			"user_id":  e.UserID,
			"category": e.Category(),
		})

		err := s.deliverer.Deliver(ctx, e.UserID, e.Content)
		switch {
		case errors.Is(err, notification.ErrRecipientUnreachable):
			report.Unreachable++
			dropped[e.UserID] = true
			s.observer.Delivery(string(e.Category()), "unreachable")
			s.dropUser(ctx, e.UserID, log)
			continue
		case err != nil:
			report.Failed++
			s.observer.Delivery(string(e.Category()), "failed")
			log.WithError(err).Error("Failed to deliver notification")
		default:
			report.Delivered++
			s.observer.Delivery(string(e.Category()), "sent")
			log.Debug("Notification delivered")
		}

		next, repeats := e.Trigger.NextFireAt(e.NextFireAt.In(s.location), now)
		if repeats {
			if err := s.queue.Reschedule(ctx, e.ID, next); err != nil {
				log.WithError(err).Error("Failed to advance repeating notification")
				continue
			}
			report.Rescheduled++
			continue
		}
		if err := s.queue.Remove(ctx, e.ID); err != nil {
			log.WithError(err).Error("Failed to remove one-shot notification")
			continue
		}
		report.Removed++
	}

	s.logger.WithFields(logrus.Fields{
		"due":         report.Due,
		"delivered":   report.Delivered,
		"failed":      report.Failed,
		"unreachable": report.Unreachable,
	}).Info("Dispatch finished")
	return report, nil
}

func (s *DeliveryService) dropUser(ctx context.Context, userID string, log *logrus.Entry) {
	log.Warn("Recipient unreachable, denying notifications and dropping pending entries")
	if err := s.permissions.SetPermission(ctx, userID, notification.PermissionDenied); err != nil {
		log.WithError(err).Error("Failed to deny notification permission")
	}
	removed, err := s.queue.RemoveAllForUser(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to drop pending notifications")
		return
	}
	log.WithField("removed", removed).Info("Pending notifications dropped")
}
