package dto

import (
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
)

// TicketResponse represents a ticket in API responses
type TicketResponse struct {
	ID           string     `json:"id"`
	EventGuestID string     `json:"event_guest_id"`
	EventID      string     `json:"event_id"`
	TicketCode   string     `json:"ticket_code"`
	Status       string     `json:"status"`
	MaxScans     int        `json:"max_scans"`
	ValidatedAt  *time.Time `json:"validated_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TicketStatusResponse represents the read-only status view of a ticket
type TicketStatusResponse struct {
	Ticket         *TicketResponse `json:"ticket"`
	AdmittedCount  int             `json:"admitted_count"`
	LastAdmittedAt *time.Time      `json:"last_admitted_at,omitempty"`
	RemainingScans int             `json:"remaining_scans"`
	CanBeScanned   bool            `json:"can_be_scanned"`
}

// ScanLogResponse represents one scan history entry
type ScanLogResponse struct {
	ID             string    `json:"id"`
	TicketID       string    `json:"ticket_id"`
	EventID        string    `json:"event_id"`
	OperatorID     string    `json:"operator_id,omitempty"`
	DeviceID       string    `json:"device_id"`
	Location       string    `json:"location"`
	ScannedAt      time.Time `json:"scanned_at"`
	Decision       string    `json:"decision"`
	RejectionCode  string    `json:"rejection_code,omitempty"`
	ClaimedEventID string    `json:"claimed_event_id,omitempty"`
}

// ScanHistoryResponse represents a paginated scan history listing
type ScanHistoryResponse struct {
	TicketID string             `json:"ticket_id"`
	Items    []*ScanLogResponse `json:"items"`
	Total    int                `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// UpdateTicketStatusRequest represents an admin status transition
type UpdateTicketStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=cancelled expired void"`
	Reason string `json:"reason,omitempty"`
}

// TicketFromDomain converts a domain Ticket to TicketResponse
func TicketFromDomain(t *domain.Ticket) *TicketResponse {
	return &TicketResponse{
		ID:           t.ID,
		EventGuestID: t.EventGuestID,
		EventID:      t.EventID,
		TicketCode:   t.TicketCode,
		Status:       t.Status.String(),
		MaxScans:     t.MaxScans,
		ValidatedAt:  t.ValidatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// ScanLogFromDomain converts a domain ScanLog to ScanLogResponse
func ScanLogFromDomain(l *domain.ScanLog) *ScanLogResponse {
	return &ScanLogResponse{
		ID:             l.ID,
		TicketID:       l.TicketID,
		EventID:        l.EventID,
		OperatorID:     l.OperatorID,
		DeviceID:       l.DeviceID,
		Location:       l.Location,
		ScannedAt:      l.ScannedAt,
		Decision:       l.Decision.String(),
		RejectionCode:  string(l.RejectionCode),
		ClaimedEventID: l.ClaimedEventID,
	}
}
