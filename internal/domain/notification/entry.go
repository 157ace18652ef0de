package notification

import "time"

// Content is what the user sees when an entry fires.
type Content struct {
	Title    string
	Body     string
	Sound    string
	Category Category
}

// Entry is a pending notification held by the notification store.
// Corresponds to the 'pending_notifications' table.
type Entry struct {
	ID         string // opaque identifier assigned by the store
	UserID     string
	Content    Content
	Trigger    Trigger
	NextFireAt time.Time // next instant the dispatcher will deliver this entry
	CreatedAt  time.Time
}

// Category is shorthand for e.Content.Category.
func (e Entry) Category() Category {
	return e.Content.Category
}

// FilterByCategory returns the IDs of entries tagged with c, in input order.
func FilterByCategory(entries []Entry, c Category) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Category() == c {
			ids = append(ids, e.ID)
		}
	}
	return ids
}
