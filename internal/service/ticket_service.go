package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/repository"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ticketService implements TicketService
type ticketService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewTicketService creates a new ticket service
func NewTicketService(store repository.Store, logger *zap.Logger) TicketService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ticketService{store: store, logger: logger}
}

// GetTicketStatus returns the read-only status view of a ticket. No locks
// are taken; the view may be stale by the time the caller acts on it.
func (s *ticketService) GetTicketStatus(ctx context.Context, ticketID string) (*dto.TicketStatusResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get_status")
	defer span.End()

	if ticketID == "" {
		span.SetStatus(codes.Error, "invalid ticket_id")
		return nil, domain.ErrInvalidTicketID
	}
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	history, err := s.store.ScanStats(ctx, ticketID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	remaining := ticket.MaxScans - history.AdmittedCount
	if remaining < 0 {
		remaining = 0
	}

	span.SetStatus(codes.Ok, "")
	return &dto.TicketStatusResponse{
		Ticket:         dto.TicketFromDomain(ticket),
		AdmittedCount:  history.AdmittedCount,
		LastAdmittedAt: history.LastAdmittedAt,
		RemainingScans: remaining,
		CanBeScanned:   ticket.Status == domain.TicketStatusActive && remaining > 0,
	}, nil
}

// GetScanHistory returns a paginated scan history listing, newest first
func (s *ticketService) GetScanHistory(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) (*dto.ScanHistoryResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get_scan_history")
	defer span.End()

	if ticketID == "" {
		span.SetStatus(codes.Error, "invalid ticket_id")
		return nil, domain.ErrInvalidTicketID
	}
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	// Surface TICKET_NOT_FOUND for unknown tickets instead of an empty page
	if _, err := s.store.GetTicket(ctx, ticketID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logs, total, err := s.store.ListScanHistory(ctx, ticketID, filter, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	items := make([]*dto.ScanLogResponse, 0, len(logs))
	for _, log := range logs {
		items = append(items, dto.ScanLogFromDomain(log))
	}

	span.SetStatus(codes.Ok, "")
	return &dto.ScanHistoryResponse{
		TicketID: ticketID,
		Items:    items,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// UpdateTicketStatus performs an admin status transition. Only
// active→cancelled, active→expired and →void are legal; scans never enter
// through here.
func (s *ticketService) UpdateTicketStatus(ctx context.Context, ticketID string, req *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.update_status")
	defer span.End()

	if ticketID == "" {
		span.SetStatus(codes.Error, "invalid ticket_id")
		return nil, domain.ErrInvalidTicketID
	}
	target := domain.TicketStatus(req.Status)
	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.String("target_status", req.Status),
	)

	ticket, err := s.store.GetTicket(ctx, ticketID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !ticket.CanTransitionTo(target) {
		span.SetStatus(codes.Error, "invalid transition")
		return nil, domain.ErrInvalidTransition
	}

	updated, err := s.store.UpdateTicketStatus(ctx, ticketID, ticket.Status, target)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.logger.Info("ticket status updated",
		zap.String("ticket_id", ticketID),
		zap.String("from", ticket.Status.String()),
		zap.String("to", req.Status),
		zap.String("reason", req.Reason),
	)

	span.SetStatus(codes.Ok, "")
	return dto.TicketFromDomain(updated), nil
}
