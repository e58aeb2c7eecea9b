// Package domain contains core domain types for the assistant gateway.
package domain

import "encoding/json"

// Collection names, one per cached entity type. Each is an independent
// keyed partition of the local store.
const (
	CollectionTasks          = "tasks"
	CollectionNotes          = "notes"
	CollectionCalendarEvents = "calendar_events"
	CollectionTimers         = "timers"
	CollectionNotifications  = "notifications"
	CollectionChatHistory    = "chat_history"
)

// Collections returns every known collection name.
func Collections() []string {
	return []string{
		CollectionTasks,
		CollectionNotes,
		CollectionCalendarEvents,
		CollectionTimers,
		CollectionNotifications,
		CollectionChatHistory,
	}
}

// ValidCollection reports whether name is a known collection.
func ValidCollection(name string) bool {
	for _, c := range Collections() {
		if c == name {
			return true
		}
	}
	return false
}

// Record is a raw store entry: an identifier plus its JSON payload.
type Record struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}
