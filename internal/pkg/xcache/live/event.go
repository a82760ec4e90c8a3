package live

import "time"

type EventType int

const (
	// EventRefresh reloads when UpdatedAt is newer than the last update, or
	// always when UpdatedAt is zero.
	EventRefresh EventType = iota
	// EventForceRefresh reloads unconditionally.
	EventForceRefresh
)

// Event is a reload signal delivered through a watcher.
type Event struct {
	Type      EventType `json:"type"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`

	// Path scopes the event to a resource; empty matches every cache.
	Path string `json:"path,omitempty"`
}

func NewRefreshEvent(path string, updatedAt time.Time) Event {
	return Event{Type: EventRefresh, UpdatedAt: updatedAt, Path: path}
}

func NewForceRefreshEvent(path string) Event {
	return Event{Type: EventForceRefresh, Path: path}
}
