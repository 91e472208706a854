package domain

import "time"

// ScanEventType identifies a published scan event
type ScanEventType string

const (
	ScanEventAdmitted ScanEventType = "scan.admitted"
	ScanEventRejected ScanEventType = "scan.rejected"
)

// ScanEvent is the message published after a scan decision commits
type ScanEvent struct {
	ID            string        `json:"id"`
	Type          ScanEventType `json:"type"`
	TicketID      string        `json:"ticket_id"`
	EventID       string        `json:"event_id"`
	DeviceID      string        `json:"device_id"`
	OperatorID    string        `json:"operator_id,omitempty"`
	Location      string        `json:"location"`
	RejectionCode string        `json:"rejection_code,omitempty"`
	ScannedAt     time.Time     `json:"scanned_at"`
	EmittedAt     time.Time     `json:"emitted_at"`
}

// NewScanEvent builds a scan event from a committed scan log entry
func NewScanEvent(eventType ScanEventType, log *ScanLog, id string) *ScanEvent {
	return &ScanEvent{
		ID:            id,
		Type:          eventType,
		TicketID:      log.TicketID,
		EventID:       log.EventID,
		DeviceID:      log.DeviceID,
		OperatorID:    log.OperatorID,
		Location:      log.Location,
		RejectionCode: string(log.RejectionCode),
		ScannedAt:     log.ScannedAt,
		EmittedAt:     time.Now().UTC(),
	}
}

// Key returns the partition key: all events for one ticket stay ordered
func (e *ScanEvent) Key() string {
	return e.TicketID
}
