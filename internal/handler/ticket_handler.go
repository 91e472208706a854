package handler

import (
	"net/http"
	"strconv"
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

// TicketHandler handles ticket status and history HTTP requests
type TicketHandler struct {
	ticketService service.TicketService
	logger        *zap.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService service.TicketService, logger *zap.Logger) *TicketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketHandler{ticketService: ticketService, logger: logger}
}

// GetStatus handles GET /internal/tickets/:ticket_id/status
func (h *TicketHandler) GetStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.get_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	ticketID := c.Param("ticket_id")
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	result, err := h.ticketService.GetTicketStatus(ctx, ticketID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, http.StatusOK, result, time.Since(start))
}

// GetScanHistory handles GET /internal/tickets/:ticket_id/scan-history
func (h *TicketHandler) GetScanHistory(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.get_scan_history")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	ticketID := c.Param("ticket_id")
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := &domain.ScanHistoryFilter{
		Location: c.Query("location"),
	}
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			span.SetStatus(codes.Error, "invalid start_date")
			response.Error(c, http.StatusBadRequest, domain.CodeInvalidRequest.String(), "start_date must be RFC3339")
			return
		}
		filter.StartDate = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			span.SetStatus(codes.Error, "invalid end_date")
			response.Error(c, http.StatusBadRequest, domain.CodeInvalidRequest.String(), "end_date must be RFC3339")
			return
		}
		filter.EndDate = &t
	}

	result, err := h.ticketService.GetScanHistory(ctx, ticketID, filter, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, http.StatusOK, result, time.Since(start))
}

// UpdateStatus handles PATCH /internal/tickets/:ticket_id/status
func (h *TicketHandler) UpdateStatus(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.ticket.update_status")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	ticketID := c.Param("ticket_id")

	var req dto.UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		response.Error(c, http.StatusBadRequest, domain.CodeInvalidRequest.String(), err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.String("target_status", req.Status),
	)

	result, err := h.ticketService.UpdateTicketStatus(ctx, ticketID, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !isClientError(err) {
			h.logger.Error("status update failed", zap.String("ticket_id", ticketID), zap.Error(err))
		}
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, http.StatusOK, result, time.Since(start))
}

// Health handles GET /internal/tickets/health
func (h *TicketHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"service": "tickets", "status": "ok"}, 0)
}
