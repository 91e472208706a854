package service

import (
	"context"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
)

// ValidationService defines the interface for scan validation business logic
type ValidationService interface {
	// ValidateTicket validates one ticket identified by ID
	ValidateTicket(ctx context.Context, req *dto.ValidateTicketRequest) (*dto.ValidationResult, error)

	// ValidateTicketByCode validates one ticket identified by its code
	ValidateTicketByCode(ctx context.Context, req *dto.ValidateTicketByCodeRequest) (*dto.ValidationResult, error)

	// ValidateBatch validates up to the configured maximum of tickets,
	// each in its own transaction, preserving input order
	ValidateBatch(ctx context.Context, req *dto.ValidateBatchRequest) (*dto.ValidateBatchResponse, error)
}

// TicketService defines the interface for ticket status and history queries
type TicketService interface {
	// GetTicketStatus returns the read-only status view of a ticket
	GetTicketStatus(ctx context.Context, ticketID string) (*dto.TicketStatusResponse, error)

	// GetScanHistory returns a paginated scan history listing
	GetScanHistory(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) (*dto.ScanHistoryResponse, error)

	// UpdateTicketStatus performs an admin status transition
	UpdateTicketStatus(ctx context.Context, ticketID string, req *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error)
}

// EventService defines the interface for event-level queries
type EventService interface {
	// CheckScannability reports whether an event can accept scans right now
	CheckScannability(ctx context.Context, eventID string) (*dto.EventScannabilityResponse, error)
}

// EventPublisher defines the interface for publishing scan events
type EventPublisher interface {
	// PublishScanAdmitted publishes an admitted scan event
	PublishScanAdmitted(ctx context.Context, log *domain.ScanLog) error

	// PublishScanRejected publishes a rejected scan event
	PublishScanRejected(ctx context.Context, log *domain.ScanLog) error

	// Close closes the event publisher
	Close() error
}
