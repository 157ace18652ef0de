package telegram

import (
	"strings"
	"time"

	"study_streak_bot/internal/domain/activity"
	"study_streak_bot/internal/domain/calendar"
)

const weekHeader = "Su Mo Tu We Th Fr Sa"

var cellGlyphs = map[calendar.CellState]string{
	calendar.StateActive: "✅",
	calendar.StateMissed: "✖",
	calendar.StateFuture: "❔",
	calendar.StateEmpty:  "  ",
}

// RenderCalendar lays the month's cells out in rows of seven under a
// Sunday-first weekday header.
func RenderCalendar(month time.Time, cells []calendar.DayCell) string {
	var sb strings.Builder
	sb.WriteString(month.Format("January 2006"))
	sb.WriteString("\n")
	sb.WriteString(weekHeader)

	for i, cell := range cells {
		if i%7 == 0 {
			sb.WriteString("\n")
		} else {
			sb.WriteString(" ")
		}
		sb.WriteString(cellGlyphs[cell.State])
	}
	return sb.String()
}

// cellsMonth returns the month the cells describe, read from the first real
// day. fallback is used when no cell carries a parseable day key.
func cellsMonth(cells []calendar.DayCell, location *time.Location, fallback time.Time) time.Time {
	for _, cell := range cells {
		if cell.State == calendar.StateEmpty {
			continue
		}
		day, err := time.ParseInLocation(activity.DayKeyLayout, cell.Key, location)
		if err != nil {
			break
		}
		return day
	}
	return fallback
}

// streakSummary counts active and missed days of the month so far.
func streakSummary(cells []calendar.DayCell) (active, missed int) {
	for _, cell := range cells {
		switch cell.State {
		case calendar.StateActive:
			active++
		case calendar.StateMissed:
			missed++
		}
	}
	return active, missed
}
