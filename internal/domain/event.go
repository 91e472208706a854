package domain

import "time"

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusActive    EventStatus = "active"
	EventStatusEnded     EventStatus = "ended"
	EventStatusCancelled EventStatus = "cancelled"
)

// String returns the string representation of the status
func (s EventStatus) String() string {
	return string(s)
}

// TimeWindow restricts scanning to a daily window, expressed in minutes
// from midnight (0..1439) in the event's local time.
type TimeWindow struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// Contains reports whether the given minute-of-day falls inside the window.
// Windows that wrap midnight (start > end) are supported.
func (w TimeWindow) Contains(minuteOfDay int) bool {
	if w.StartMinute <= w.EndMinute {
		return minuteOfDay >= w.StartMinute && minuteOfDay <= w.EndMinute
	}
	return minuteOfDay >= w.StartMinute || minuteOfDay <= w.EndMinute
}

// Event represents a scannable event
type Event struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	Status           EventStatus `json:"status"`
	StartsAt         time.Time   `json:"starts_at"`
	EndsAt           time.Time   `json:"ends_at"`
	MaxAttendees     *int        `json:"max_attendees,omitempty"`
	AllowedScanZones []string    `json:"allowed_scan_zones,omitempty"`
	TimeWindow       *TimeWindow `json:"time_window,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// ZoneAllowed reports whether a scan location is permitted for this event.
// An empty zone list means no restriction.
func (e *Event) ZoneAllowed(location string) bool {
	if len(e.AllowedScanZones) == 0 {
		return true
	}
	for _, z := range e.AllowedScanZones {
		if z == location {
			return true
		}
	}
	return false
}

// EventGuest links a named guest to an event via a unique invitation code
type EventGuest struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	GuestName      string    `json:"guest_name"`
	InvitationCode string    `json:"invitation_code"`
	CreatedAt      time.Time `json:"created_at"`
}
