package app

import (
	"context"
	"fmt"
	"time"

	"study_streak_bot/internal/domain/activity"
	"study_streak_bot/internal/domain/calendar"
)

// CalendarService builds the current month's streak grid for a user.
type CalendarService struct {
	store    activity.Store
	now      func() time.Time
	location *time.Location
}

func NewCalendarService(store activity.Store, now func() time.Time, location *time.Location) *CalendarService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &CalendarService{store: store, now: now, location: location}
}

// CurrentMonth classifies every day of the current month. A user without a
// record gets a month of missed and future days.
func (s *CalendarService) CurrentMonth(ctx context.Context, userID string) ([]calendar.DayCell, error) {
	rec, _, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load activity record: %w", err)
	}
	return calendar.Classify(s.now().In(s.location), rec), nil
}
