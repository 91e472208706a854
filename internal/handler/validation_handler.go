package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/service"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/response"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

// ValidationHandler handles scan validation HTTP requests
type ValidationHandler struct {
	validationService service.ValidationService
	logger            *zap.Logger
}

// NewValidationHandler creates a new validation handler
func NewValidationHandler(validationService service.ValidationService, logger *zap.Logger) *ValidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ValidationHandler{
		validationService: validationService,
		logger:            logger,
	}
}

// ValidateTicket handles POST /internal/validation/validate-ticket
func (h *ValidationHandler) ValidateTicket(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.validation.validate_ticket")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	var req dto.ValidateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, domain.CodeInvalidRequest.String(), err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("ticket_id", req.TicketID),
		attribute.String("event_id", req.EventID),
	)

	result, err := h.validationService.ValidateTicket(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !isClientError(err) {
			h.logger.Error("validation failed", zap.String("ticket_id", req.TicketID), zap.Error(err))
		}
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("admitted", result.Admitted),
		attribute.String("code", result.Code),
	)
	span.SetStatus(codes.Ok, "")
	writeResult(c, result, time.Since(start))
}

// ValidateTicketByCode handles POST /internal/validation/validate-ticket-by-code
func (h *ValidationHandler) ValidateTicketByCode(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.validation.validate_ticket_by_code")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	var req dto.ValidateTicketByCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, domain.CodeInvalidRequest.String(), err.Error())
		return
	}

	result, err := h.validationService.ValidateTicketByCode(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !isClientError(err) {
			h.logger.Error("validation by code failed", zap.Error(err))
		}
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.Bool("admitted", result.Admitted),
		attribute.String("code", result.Code),
	)
	span.SetStatus(codes.Ok, "")
	writeResult(c, result, time.Since(start))
}

// ValidateBatch handles POST /internal/validation/validate-batch
func (h *ValidationHandler) ValidateBatch(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.validation.validate_batch")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	var req dto.ValidateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, domain.CodeInvalidRequest.String(), err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("batch_id", req.BatchID),
		attribute.Int("batch_size", len(req.Tickets)),
	)

	result, err := h.validationService.ValidateBatch(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, http.StatusOK, result, time.Since(start))
}

// Health handles GET /internal/validation/health
func (h *ValidationHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"service": "validation", "status": "ok"}, 0)
}

// writeResult writes a validation outcome. Admissions are 200; rejections
// derive their status from the decision code and keep the result as data so
// scanners can render the reason.
func writeResult(c *gin.Context, result *dto.ValidationResult, elapsed time.Duration) {
	if result.Admitted {
		response.Success(c, http.StatusOK, result, elapsed)
		return
	}
	code := domain.Code(result.Code)
	response.Reject(c, code.HTTPStatus(), result.Code, result.Reason, result, elapsed)
}
