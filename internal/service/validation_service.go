package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/clock"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/metrics"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/policy"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/repository"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/retry"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

// RateLimiter is the throttle consulted before any transaction opens
type RateLimiter interface {
	AllowAll(keys ...string) bool
}

// validationService implements ValidationService
type validationService struct {
	store     repository.Store
	evaluator *policy.Evaluator
	limiter   RateLimiter
	publisher EventPublisher
	clock     clock.Clock
	logger    *zap.Logger
	retrier   *retry.Retrier

	batchMaxItems int
}

// ValidationServiceConfig contains configuration for the validation service
type ValidationServiceConfig struct {
	BatchMaxItems int
	RetryConfig   *retry.Config
}

// NewValidationService creates a new validation service
func NewValidationService(
	store repository.Store,
	evaluator *policy.Evaluator,
	limiter RateLimiter,
	publisher EventPublisher,
	ck clock.Clock,
	logger *zap.Logger,
	cfg *ValidationServiceConfig,
) ValidationService {
	batchMax := 50
	var retryCfg *retry.Config
	if cfg != nil {
		if cfg.BatchMaxItems > 0 {
			batchMax = cfg.BatchMaxItems
		}
		retryCfg = cfg.RetryConfig
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if ck == nil {
		ck = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &validationService{
		store:         store,
		evaluator:     evaluator,
		limiter:       limiter,
		publisher:     publisher,
		clock:         ck,
		logger:        logger,
		retrier:       retry.New(retryCfg),
		batchMaxItems: batchMax,
	}
}

// validateParams is the normalized input of one validation attempt
type validateParams struct {
	ticketID        string
	expectedEventID string
	scan            domain.ScanContext
}

// ValidateTicket validates one ticket identified by ID
func (s *validationService) ValidateTicket(ctx context.Context, req *dto.ValidateTicketRequest) (*dto.ValidationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.validation.validate_ticket")
	defer span.End()

	if req == nil || req.TicketID == "" {
		span.SetStatus(codes.Error, "invalid ticket_id")
		return nil, domain.ErrInvalidTicketID
	}
	if req.EventID == "" {
		span.SetStatus(codes.Error, "invalid event_id")
		return nil, domain.ErrInvalidEventID
	}
	if err := validateScanContext(&req.ScanContext); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("ticket_id", req.TicketID),
		attribute.String("event_id", req.EventID),
		attribute.String("device_id", req.ScanContext.DeviceID),
		attribute.String("location", req.ScanContext.Location),
	)

	return s.validate(ctx, validateParams{
		ticketID:        req.TicketID,
		expectedEventID: req.EventID,
		scan:            req.ScanContext.ToScanContext(s.clock.Now()),
	})
}

// ValidateTicketByCode validates one ticket identified by its code. The
// ticket's own event is authoritative since the scanner sends no event ID.
func (s *validationService) ValidateTicketByCode(ctx context.Context, req *dto.ValidateTicketByCodeRequest) (*dto.ValidationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.validation.validate_ticket_by_code")
	defer span.End()

	if req == nil || req.TicketCode == "" {
		span.SetStatus(codes.Error, "invalid ticket_code")
		return nil, domain.ErrInvalidTicketCode
	}
	if err := validateScanContext(&req.ScanContext); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ticket, err := s.store.GetTicketByCode(ctx, req.TicketCode)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("ticket_id", ticket.ID),
		attribute.String("event_id", ticket.EventID),
	)

	return s.validate(ctx, validateParams{
		ticketID:        ticket.ID,
		expectedEventID: ticket.EventID,
		scan:            req.ScanContext.ToScanContext(s.clock.Now()),
	})
}

// ValidateBatch validates up to batchMaxItems tickets independently
func (s *validationService) ValidateBatch(ctx context.Context, req *dto.ValidateBatchRequest) (*dto.ValidateBatchResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.validation.validate_batch")
	defer span.End()

	if req == nil || len(req.Tickets) == 0 {
		span.SetStatus(codes.Error, "empty batch")
		return nil, domain.ErrBatchEmpty
	}
	if len(req.Tickets) > s.batchMaxItems {
		span.SetStatus(codes.Error, "batch too large")
		return nil, fmt.Errorf("%w: %d items, maximum %d", domain.ErrBatchTooLarge, len(req.Tickets), s.batchMaxItems)
	}

	span.SetAttributes(
		attribute.String("batch_id", req.BatchID),
		attribute.Int("batch_size", len(req.Tickets)),
	)

	resp := &dto.ValidateBatchResponse{
		BatchID: req.BatchID,
		Results: make([]dto.BatchItemResult, len(req.Tickets)),
	}

	// Each item runs in its own transaction: a failure on one must not
	// roll back or skip the others, and result order mirrors input order.
	for i := range req.Tickets {
		item := req.Tickets[i]
		result, err := s.ValidateTicket(ctx, &item)
		if err != nil {
			code := CodeForError(err)
			resp.Results[i] = dto.BatchItemResult{
				Index: i,
				Code:  code.String(),
				Error: err.Error(),
			}
			resp.Summary.Rejected++
			continue
		}
		resp.Results[i] = dto.BatchItemResult{Index: i, Result: result}
		if result.Admitted {
			resp.Summary.Admitted++
		} else {
			resp.Summary.Rejected++
		}
	}

	resp.Summary.Total = len(req.Tickets)
	resp.Summary.SuccessRate = float64(resp.Summary.Admitted) / float64(resp.Summary.Total)

	metrics.RecordBatch(ctx, len(req.Tickets))
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

// validate runs the rate limiter, then the transactional attempt with a
// bounded retry budget for transient failures.
func (s *validationService) validate(ctx context.Context, p validateParams) (*dto.ValidationResult, error) {
	start := time.Now()
	now := s.clock.Now()

	keys := []string{"ticket:" + p.ticketID + "|device:" + p.scan.DeviceID}
	if p.scan.OperatorID != "" {
		keys = append(keys, "operator:"+p.scan.OperatorID)
	}
	if !s.limiter.AllowAll(keys...) {
		metrics.RecordThrottled(ctx)
		s.logger.Warn("scan throttled",
			zap.String("ticket_id", p.ticketID),
			zap.String("device_id", p.scan.DeviceID),
		)
		return &dto.ValidationResult{
			TicketID: p.ticketID,
			EventID:  p.expectedEventID,
			Admitted: false,
			Code:     domain.CodeScanTooFrequent.String(),
			Reason:   "scan rate limit exceeded",
		}, nil
	}

	var result *dto.ValidationResult
	var committedLog *domain.ScanLog

	op := func(ctx context.Context) error {
		res, log, err := s.validateOnce(ctx, p, now)
		if err != nil {
			if domain.IsTransientError(err) {
				metrics.RecordRetry(ctx)
				return err
			}
			return retry.Permanent(err)
		}
		result = res
		committedLog = log
		return nil
	}

	if r := s.retrier.Do(ctx, op); r.Err != nil {
		if errors.Is(r.Err, retry.ErrMaxRetriesExceeded) {
			metrics.RecordRetryExhausted(ctx)
			s.logger.Error("retry budget exhausted",
				zap.String("ticket_id", p.ticketID),
				zap.Int("attempts", r.Attempts),
				zap.Error(r.LastError),
			)
			return nil, fmt.Errorf("%w: %v", domain.ErrRetryExhausted, r.LastError)
		}
		return nil, r.Err
	}

	s.publish(ctx, committedLog)

	elapsed := time.Since(start).Seconds()
	if result.Admitted {
		metrics.RecordAdmission(ctx, result.EventID, elapsed)
	} else {
		metrics.RecordRejection(ctx, result.EventID, result.Code, elapsed)
	}

	s.logger.Info("scan decided",
		zap.String("ticket_id", p.ticketID),
		zap.String("code", result.Code),
		zap.Bool("admitted", result.Admitted),
	)
	return result, nil
}

// validateOnce is one transactional validation attempt
func (s *validationService) validateOnce(ctx context.Context, p validateParams, now time.Time) (*dto.ValidationResult, *domain.ScanLog, error) {
	var result *dto.ValidationResult
	var committedLog *domain.ScanLog

	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		ticket, err := tx.GetTicketForUpdate(ctx, p.ticketID)
		if err != nil {
			return err
		}

		if ticket.EventID != p.expectedEventID {
			decision := policy.Reject(domain.CodeTicketEventMismatch, "ticket does not belong to this event")
			log := s.newScanLog(ticket, p.scan, now, decision)
			// Keep the event the scanner claimed so the audit row can
			// reconstruct the mismatch
			log.ClaimedEventID = p.expectedEventID
			if err := tx.AppendScanLog(ctx, log); err != nil {
				return err
			}
			result = s.buildResult(ticket, decision, 0, now, false)
			committedLog = log
			return nil
		}

		event, err := tx.GetEvent(ctx, ticket.EventID)
		if err != nil {
			return err
		}

		history, err := tx.ScanStats(ctx, ticket.ID)
		if err != nil {
			return err
		}

		capacityUsed := 0
		if event.MaxAttendees != nil {
			capacityUsed, err = tx.CountAdmittedForEvent(ctx, event.ID)
			if err != nil {
				return err
			}
		}

		var qr *domain.QRPayload
		var qrErr error
		if len(ticket.QRPayload) > 0 {
			qr, qrErr = domain.DecodeQRPayload(ticket.QRPayload)
		}

		decision := s.evaluator.Evaluate(policy.Input{
			Ticket:       ticket,
			Event:        event,
			Scan:         p.scan,
			Now:          now,
			History:      *history,
			QR:           qr,
			QRDecodeErr:  qrErr,
			CapacityUsed: capacityUsed,
		})

		final := false
		if decision.Admit {
			// Capacity re-read under the event admission lock: the row lock
			// only serializes same-ticket scans, so a rival ticket's
			// admission may have committed (or be about to) since the first
			// count
			if event.MaxAttendees != nil {
				if err := tx.LockEventForAdmission(ctx, event.ID); err != nil {
					return err
				}
				count, err := tx.CountAdmittedForEvent(ctx, event.ID)
				if err != nil {
					return err
				}
				if count >= *event.MaxAttendees {
					decision = policy.Reject(domain.CodeEventFull, "event is at capacity")
				}
			}
		}

		if decision.Admit {
			final = history.AdmittedCount+1 >= ticket.MaxScans
			if err := tx.ConsumeTicket(ctx, ticket.ID, now, final); err != nil {
				if errors.Is(err, domain.ErrAlreadyValidated) {
					decision = policy.Reject(domain.CodeTicketAlreadyValidated, "another scan admitted this ticket first")
					final = false
				} else {
					return err
				}
			}
		}

		log := s.newScanLog(ticket, p.scan, now, decision)
		if decision.Admit {
			log.AdmissionIndex = history.AdmittedCount + 1
		}
		if err := tx.AppendScanLog(ctx, log); err != nil {
			return err
		}

		admittedCount := history.AdmittedCount
		if decision.Admit {
			admittedCount++
		}
		result = s.buildResult(ticket, decision, admittedCount, now, final)
		committedLog = log
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, committedLog, nil
}

// publish emits the committed decision; publish failures are logged, never
// surfaced to the scanner.
func (s *validationService) publish(ctx context.Context, log *domain.ScanLog) {
	if log == nil {
		return
	}
	var err error
	if log.Decision == domain.ScanDecisionAdmitted {
		err = s.publisher.PublishScanAdmitted(ctx, log)
	} else {
		err = s.publisher.PublishScanRejected(ctx, log)
	}
	if err != nil {
		s.logger.Warn("failed to publish scan event",
			zap.String("ticket_id", log.TicketID),
			zap.Error(err),
		)
	}
}

func (s *validationService) newScanLog(ticket *domain.Ticket, scan domain.ScanContext, now time.Time, decision policy.Decision) *domain.ScanLog {
	log := &domain.ScanLog{
		ID:                 uuid.New().String(),
		TicketID:           ticket.ID,
		EventID:            ticket.EventID,
		OperatorID:         scan.OperatorID,
		DeviceID:           scan.DeviceID,
		Location:           scan.Location,
		ScannedAt:          now,
		Decision:           domain.ScanDecisionRejected,
		RequestFingerprint: fingerprint(ticket.ID, scan),
	}
	if decision.Admit {
		log.Decision = domain.ScanDecisionAdmitted
	} else {
		log.RejectionCode = decision.Code
	}
	return log
}

func (s *validationService) buildResult(ticket *domain.Ticket, decision policy.Decision, admittedCount int, now time.Time, final bool) *dto.ValidationResult {
	remaining := ticket.MaxScans - admittedCount
	if remaining < 0 {
		remaining = 0
	}

	status := ticket.Status
	if final {
		status = domain.TicketStatusUsed
	}

	result := &dto.ValidationResult{
		TicketID:       ticket.ID,
		EventID:        ticket.EventID,
		Admitted:       decision.Admit,
		Code:           decision.Code.String(),
		Reason:         decision.Reason,
		TicketStatus:   status.String(),
		RemainingScans: remaining,
		Restrictions:   decision.Restrictions,
	}
	if decision.Admit {
		at := now
		result.ValidatedAt = &at
	}
	return result
}

// fingerprint derives a stable digest identifying one scan attempt
func fingerprint(ticketID string, scan domain.ScanContext) string {
	h := sha256.New()
	h.Write([]byte(ticketID))
	h.Write([]byte(scan.DeviceID))
	h.Write([]byte(scan.Location))
	h.Write([]byte(scan.Timestamp.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}

func validateScanContext(scan *dto.ScanContextRequest) error {
	if scan.DeviceID == "" {
		return domain.ErrInvalidDeviceID
	}
	if scan.Location == "" {
		return domain.ErrInvalidLocation
	}
	return nil
}

// CodeForError maps an engine error onto its wire-visible code
func CodeForError(err error) domain.Code {
	switch {
	case errors.Is(err, domain.ErrTicketNotFound), errors.Is(err, domain.ErrEventNotFound):
		return domain.CodeTicketNotFound
	case errors.Is(err, domain.ErrReplayRace):
		return domain.CodeReplayRace
	case errors.Is(err, domain.ErrInvalidReference):
		return domain.CodeInvalidReference
	case errors.Is(err, domain.ErrAlreadyValidated):
		return domain.CodeTicketAlreadyValidated
	case errors.Is(err, domain.ErrRetryExhausted):
		return domain.CodeTransientRetryExhaust
	case errors.Is(err, domain.ErrInvalidTransition), domain.IsValidationError(err):
		return domain.CodeInvalidRequest
	default:
		return domain.CodeInternalError
	}
}
