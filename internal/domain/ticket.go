package domain

import "time"

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusUsed      TicketStatus = "used"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusVoid      TicketStatus = "void"
)

// String returns the string representation of the status
func (s TicketStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further scan transitions.
// Terminal tickets can only be voided by an admin.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusUsed || s == TicketStatusCancelled ||
		s == TicketStatusExpired || s == TicketStatusVoid
}

// Ticket represents an admission ticket issued to an event guest
type Ticket struct {
	ID           string       `json:"id"`
	EventGuestID string       `json:"event_guest_id"`
	EventID      string       `json:"event_id"`
	TicketCode   string       `json:"ticket_code"`
	QRPayload    []byte       `json:"qr_payload,omitempty"`
	Status       TicketStatus `json:"status"`
	MaxScans     int          `json:"max_scans"`
	ValidatedAt  *time.Time   `json:"validated_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CanTransitionTo reports whether an admin transition from the current
// status to the target is legal. Scans never call this; the consume path
// is a conditional active→used update in the store.
func (t *Ticket) CanTransitionTo(target TicketStatus) bool {
	if target == TicketStatusVoid {
		return true
	}
	if t.Status != TicketStatusActive {
		return false
	}
	switch target {
	case TicketStatusCancelled, TicketStatusExpired:
		return true
	default:
		return false
	}
}
