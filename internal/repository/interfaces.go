package repository

import (
	"context"
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
)

// Store is the persistence surface of the validation engine
type Store interface {
	// GetTicket retrieves a ticket by ID without locking
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)

	// GetTicketByCode retrieves a ticket by its human-readable code
	GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error)

	// GetEvent retrieves an event by ID
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// ScanStats returns the per-ticket admission summary
	ScanStats(ctx context.Context, ticketID string) (*domain.ScanHistory, error)

	// ListScanHistory lists scan log entries for a ticket, newest first
	ListScanHistory(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) ([]*domain.ScanLog, int, error)

	// CountAdmittedForEvent counts distinct admitted tickets for an event
	CountAdmittedForEvent(ctx context.Context, eventID string) (int, error)

	// UpdateTicketStatus performs a conditional admin transition and returns
	// the updated ticket
	UpdateTicketStatus(ctx context.Context, id string, from, to domain.TicketStatus) (*domain.Ticket, error)

	// WithTx runs fn inside a single database transaction
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// HealthCheck verifies database connectivity
	HealthCheck(ctx context.Context) error
}

// Tx is the transaction-scoped store used by a single validation attempt.
// All reads observe the snapshot established by the row lock taken in
// GetTicketForUpdate.
type Tx interface {
	// GetTicketForUpdate retrieves a ticket with a row lock held until commit
	GetTicketForUpdate(ctx context.Context, id string) (*domain.Ticket, error)

	// GetEvent retrieves an event inside the transaction
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// ScanStats returns the per-ticket admission summary inside the transaction
	ScanStats(ctx context.Context, ticketID string) (*domain.ScanHistory, error)

	// CountAdmittedForEvent counts distinct admitted tickets inside the transaction
	CountAdmittedForEvent(ctx context.Context, eventID string) (int, error)

	// LockEventForAdmission serializes capacity-bounded admissions for one
	// event until the transaction ends. Distinct tickets racing into the same
	// event hold no common row lock, so without this both could pass the
	// capacity re-read.
	LockEventForAdmission(ctx context.Context, eventID string) error

	// ConsumeTicket conditionally updates an active ticket after an admission.
	// The status flips to used and validated_at is stamped only when final is
	// true. Returns domain.ErrAlreadyValidated when the ticket is no longer
	// active.
	ConsumeTicket(ctx context.Context, ticketID string, validatedAt time.Time, final bool) error

	// AppendScanLog appends one audit entry for the attempt
	AppendScanLog(ctx context.Context, log *domain.ScanLog) error
}
