package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/service"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/response"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

// EventHandler handles event-level HTTP requests
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Validate handles GET /internal/events/:event_id/validate
func (h *EventHandler) Validate(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.validate")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)
	start := time.Now()

	eventID := c.Param("event_id")
	span.SetAttributes(attribute.String("event_id", eventID))

	result, err := h.eventService.CheckScannability(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Bool("scannable", result.Scannable))
	span.SetStatus(codes.Ok, "")
	response.Success(c, http.StatusOK, result, time.Since(start))
}

// Health handles GET /internal/events/health
func (h *EventHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"service": "events", "status": "ok"}, 0)
}
