package app

import "time"

// OutcomeStatus tells which branch an operation took.
type OutcomeStatus string

const (
	StatusDone    OutcomeStatus = "done"
	StatusSkipped OutcomeStatus = "skipped" // soft-fail: nothing was changed, not an error
	StatusFailed  OutcomeStatus = "failed"
)

// SkipReason explains a StatusSkipped outcome.
type SkipReason string

const (
	ReasonUnauthenticated  SkipReason = "unauthenticated"
	ReasonPermissionDenied SkipReason = "permission_denied"
)

// Outcome is returned by every user-facing operation so callers and tests can
// observe whether it ran, was skipped, or failed. A failed outcome is always
// accompanied by a non-nil error equal to Err.
type Outcome struct {
	Status OutcomeStatus
	Reason SkipReason
	Err    error

	// Set by the reminder operations.
	EntryID   string
	FireAt    time.Time
	Cancelled int // stale entries removed before scheduling

	// Set by MarkToday.
	DayKey          string
	AlreadyRecorded bool
}

func skipped(reason SkipReason) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func failed(err error) (Outcome, error) {
	return Outcome{Status: StatusFailed, Err: err}, err
}
