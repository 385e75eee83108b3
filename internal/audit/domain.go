package audit

import "time"

// Entry is an append-only activity log record. ActorID is nil for system
// actions (scheduled jobs, migrations).
type Entry struct {
	ActorID   *int64         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	At        time.Time      `json:"at"`
}

// Row is a stored activity log entry.
type Row struct {
	ID        int64          `json:"id"`
	ActorID   *int64         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Entity    string         `json:"entity"`
	EntityID  string         `json:"entity_id"`
	Meta      map[string]any `json:"meta,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	At        time.Time      `json:"at"`
}

// TimelineFilters narrows the activity listing.
type TimelineFilters struct {
	Entity   string
	Action   string
	ActorID  *int64
	Page     int
	PageSize int
}
