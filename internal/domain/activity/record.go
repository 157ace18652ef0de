package activity

import "time"

// DayKeyLayout is the layout of a day-key, e.g. 2024-02-15.
const DayKeyLayout = "2006-01-02"

// Record maps a day-key to its "studied" flag.
// Keys are only ever added or overwritten, never removed.
type Record map[string]bool

// DayKey returns the zero-padded YYYY-MM-DD key of t in t's location.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// Studied reports whether the day identified by key is marked as studied.
func (r Record) Studied(key string) bool {
	return r[key]
}
