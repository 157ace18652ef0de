package notification

import (
	"fmt"
	"math"
	"time"
)

var ErrInvalidTrigger = fmt.Errorf("invalid notification trigger")

// MaxIntervalSeconds is the longest interval whose Period fits in a time.Duration.
const MaxIntervalSeconds = math.MaxInt64 / int64(time.Second)

// Trigger decides when an entry fires.
//
// Recurrence model: an interval trigger fires every Seconds counted from the
// moment it was scheduled. A date trigger fires at Date; with Repeats set it then
// fires daily at the same local time-of-day as Date. A trigger without Repeats
// fires once and is removed by the dispatcher.
type Trigger struct {
	Type    TriggerType
	Seconds int64     // TriggerInterval only, in (0, MaxIntervalSeconds]
	Date    time.Time // TriggerDate only
	Repeats bool
}

func NewIntervalTrigger(seconds int64, repeats bool) Trigger {
	return Trigger{Type: TriggerInterval, Seconds: seconds, Repeats: repeats}
}

func NewDateTrigger(date time.Time, repeats bool) Trigger {
	return Trigger{Type: TriggerDate, Date: date, Repeats: repeats}
}

// Validate checks the fields required by the trigger type.
func (t Trigger) Validate() error {
	switch t.Type {
	case TriggerInterval:
		if t.Seconds <= 0 {
			return fmt.Errorf("%w: interval must be positive, got %d seconds", ErrInvalidTrigger, t.Seconds)
		}
		if t.Seconds > MaxIntervalSeconds {
			return fmt.Errorf("%w: interval of %d seconds overflows", ErrInvalidTrigger, t.Seconds)
		}
	case TriggerDate:
		if t.Date.IsZero() {
			return fmt.Errorf("%w: date trigger without date", ErrInvalidTrigger)
		}
	default:
		return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidTrigger, t.Type)
	}
	return nil
}

// Period is the interval between two firings of an interval trigger.
func (t Trigger) Period() time.Duration {
	return time.Duration(t.Seconds) * time.Second
}

// FirstFireAt is the first instant the trigger fires when scheduled at scheduledAt.
func (t Trigger) FirstFireAt(scheduledAt time.Time) time.Time {
	if t.Type == TriggerInterval {
		return scheduledAt.Add(t.Period())
	}
	return t.Date
}

// NextFireAt returns the first firing strictly after now, given that the trigger
// last fired at fired. Missed periods are skipped. The bool is false for
// triggers that do not repeat.
func (t Trigger) NextFireAt(fired, now time.Time) (time.Time, bool) {
	if !t.Repeats {
		return time.Time{}, false
	}

	next := fired
	switch t.Type {
	case TriggerInterval:
		period := t.Period()
		if period <= 0 {
			return time.Time{}, false
		}
		next = next.Add(period)
		if !next.After(now) {
			missed := now.Sub(next)/period + 1
			next = next.Add(missed * period)
		}
	case TriggerDate:
		// AddDate keeps the wall clock across DST changes in fired's location.
		next = next.AddDate(0, 0, 1)
		for !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
	default:
		return time.Time{}, false
	}
	return next, true
}
