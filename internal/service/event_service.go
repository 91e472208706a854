package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/clock"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/repository"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

// eventService implements EventService
type eventService struct {
	store repository.Store
	clock clock.Clock
}

// NewEventService creates a new event service
func NewEventService(store repository.Store, ck clock.Clock) EventService {
	if ck == nil {
		ck = clock.New()
	}
	return &eventService{store: store, clock: ck}
}

// CheckScannability reports whether an event can accept scans right now.
// The probe mirrors the event-level policy rules; ticket-level rules still
// apply per scan.
func (s *eventService) CheckScannability(ctx context.Context, eventID string) (*dto.EventScannabilityResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.check_scannability")
	defer span.End()

	if eventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	admitted, err := s.store.CountAdmittedForEvent(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp := &dto.EventScannabilityResponse{
		EventID:       event.ID,
		Status:        event.Status.String(),
		AdmittedCount: admitted,
		MaxAttendees:  event.MaxAttendees,
	}

	now := s.clock.Now()
	switch {
	case event.Status == domain.EventStatusCancelled:
		resp.Code = domain.CodeEventCancelled.String()
		resp.Reason = "event has been cancelled"
	case event.Status != domain.EventStatusActive:
		resp.Code = domain.CodeEventNotActive.String()
		resp.Reason = fmt.Sprintf("event is %s", event.Status)
	case now.Before(event.StartsAt):
		resp.Code = domain.CodeEventNotStarted.String()
		resp.Reason = "event has not started"
	case now.After(event.EndsAt):
		resp.Code = domain.CodeEventEnded.String()
		resp.Reason = "event has ended"
	case event.TimeWindow != nil && !event.TimeWindow.Contains(now.Hour()*60+now.Minute()):
		resp.Code = domain.CodeTimeRestriction.String()
		resp.Reason = "outside allowed scan hours"
	case event.MaxAttendees != nil && admitted >= *event.MaxAttendees:
		resp.Code = domain.CodeEventFull.String()
		resp.Reason = "event is at capacity"
	default:
		resp.Scannable = true
	}

	span.SetStatus(codes.Ok, "")
	return resp, nil
}
