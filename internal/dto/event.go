package dto

// EventScannabilityResponse represents the event-level scannability probe
type EventScannabilityResponse struct {
	EventID       string `json:"event_id"`
	Scannable     bool   `json:"scannable"`
	Code          string `json:"code,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Status        string `json:"status"`
	AdmittedCount int    `json:"admitted_count"`
	MaxAttendees  *int   `json:"max_attendees,omitempty"`
}
