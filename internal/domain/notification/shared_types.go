// internal/domain/notification/shared_types.go
package notification

// Category partitions pending notifications into independent lifecycles.
// At most one entry per user and category is pending at any time.
type Category string

const (
	CategoryStudy  Category = "study"  // repeating interval reminder
	CategoryStreak Category = "streak" // daily streak alert
)

// PermissionStatus is a user's consent for the bot to push notifications.
type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// TriggerType tells which fields of a Trigger are meaningful.
type TriggerType string

const (
	TriggerInterval TriggerType = "interval"
	TriggerDate     TriggerType = "date"
)

// DefaultSound is attached to every scheduled content.
const DefaultSound = "default"
