// Package calendar classifies the days of the current month for the streak grid.
package calendar

import (
	"fmt"
	"time"

	"study_streak_bot/internal/domain/activity"
)

// CellState is the classification of a single grid cell.
type CellState string

const (
	StateActive CellState = "active"
	StateMissed CellState = "missed"
	StateFuture CellState = "future"
	StateEmpty  CellState = "empty" // padding before the 1st of the month
)

// DayCell is one cell of the month grid. Padding cells carry a synthetic key
// (pad-0, pad-1, ...) that never collides with a day-key.
type DayCell struct {
	Key   string
	State CellState
}

// PaddingKey returns the synthetic key of the i-th padding cell.
func PaddingKey(i int) string {
	return fmt.Sprintf("pad-%d", i)
}

// Classify returns the cells of today's month: one empty cell per weekday before
// the 1st (Sunday first), then one cell per day in ascending order.
// All comparisons are made at midnight in today's location, so today itself is
// never future.
func Classify(today time.Time, rec activity.Record) []DayCell {
	loc := today.Location()
	midnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc)
	year, month := midnight.Year(), midnight.Month()

	startPadding := int(time.Date(year, month, 1, 0, 0, 0, 0, loc).Weekday())
	// Day 0 of the next month is the last day of this one.
	totalDays := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()

	cells := make([]DayCell, 0, startPadding+totalDays)
	for i := 0; i < startPadding; i++ {
		cells = append(cells, DayCell{Key: PaddingKey(i), State: StateEmpty})
	}

	for day := 1; day <= totalDays; day++ {
		d := time.Date(year, month, day, 0, 0, 0, 0, loc)
		key := activity.DayKey(d)

		switch {
		case d.After(midnight):
			cells = append(cells, DayCell{Key: key, State: StateFuture})
		case rec.Studied(key):
			cells = append(cells, DayCell{Key: key, State: StateActive})
		default:
			cells = append(cells, DayCell{Key: key, State: StateMissed})
		}
	}
	return cells
}

// StartPadding returns how many empty cells Classify emits for cells.
func StartPadding(cells []DayCell) int {
	n := 0
	for _, c := range cells {
		if c.State != StateEmpty {
			break
		}
		n++
	}
	return n
}
