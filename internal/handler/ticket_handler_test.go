package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
)

// MockTicketService is a mock implementation of TicketService
type MockTicketService struct {
	GetTicketStatusFunc    func(ctx context.Context, ticketID string) (*dto.TicketStatusResponse, error)
	GetScanHistoryFunc     func(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) (*dto.ScanHistoryResponse, error)
	UpdateTicketStatusFunc func(ctx context.Context, ticketID string, req *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error)
}

func (m *MockTicketService) GetTicketStatus(ctx context.Context, ticketID string) (*dto.TicketStatusResponse, error) {
	if m.GetTicketStatusFunc != nil {
		return m.GetTicketStatusFunc(ctx, ticketID)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketService) GetScanHistory(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) (*dto.ScanHistoryResponse, error) {
	if m.GetScanHistoryFunc != nil {
		return m.GetScanHistoryFunc(ctx, ticketID, filter, limit, offset)
	}
	return nil, domain.ErrTicketNotFound
}

func (m *MockTicketService) UpdateTicketStatus(ctx context.Context, ticketID string, req *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error) {
	if m.UpdateTicketStatusFunc != nil {
		return m.UpdateTicketStatusFunc(ctx, ticketID, req)
	}
	return nil, domain.ErrTicketNotFound
}

func setupTicketRouter(svc *MockTicketService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewTicketHandler(svc, nil)
	router := gin.New()
	router.GET("/internal/tickets/:ticket_id/status", h.GetStatus)
	router.GET("/internal/tickets/:ticket_id/scan-history", h.GetScanHistory)
	router.PATCH("/internal/tickets/:ticket_id/status", h.UpdateStatus)
	return router
}

func TestGetStatusHandler(t *testing.T) {
	svc := &MockTicketService{
		GetTicketStatusFunc: func(ctx context.Context, ticketID string) (*dto.TicketStatusResponse, error) {
			assert.Equal(t, "ticket-001", ticketID)
			return &dto.TicketStatusResponse{
				Ticket:         &dto.TicketResponse{ID: ticketID, Status: "active", MaxScans: 2},
				AdmittedCount:  1,
				RemainingScans: 1,
				CanBeScanned:   true,
			}, nil
		},
	}
	router := setupTicketRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/internal/tickets/ticket-001/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)

	var status dto.TicketStatusResponse
	require.NoError(t, json.Unmarshal(body.Data, &status))
	assert.Equal(t, 1, status.RemainingScans)
	assert.True(t, status.CanBeScanned)
}

func TestGetStatusHandlerNotFound(t *testing.T) {
	router := setupTicketRouter(&MockTicketService{})

	req := httptest.NewRequest(http.MethodGet, "/internal/tickets/ghost/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TICKET_NOT_FOUND", body.Code)
}

func TestGetScanHistoryHandler(t *testing.T) {
	var gotLimit, gotOffset int
	var gotFilter *domain.ScanHistoryFilter
	svc := &MockTicketService{
		GetScanHistoryFunc: func(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) (*dto.ScanHistoryResponse, error) {
			gotLimit, gotOffset, gotFilter = limit, offset, filter
			return &dto.ScanHistoryResponse{TicketID: ticketID, Total: 0, Limit: limit, Offset: offset}, nil
		},
	}
	router := setupTicketRouter(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/internal/tickets/ticket-001/scan-history?limit=5&offset=10&location=gate-a&start_date=2026-06-15T00:00:00Z", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, 10, gotOffset)
	require.NotNil(t, gotFilter)
	assert.Equal(t, "gate-a", gotFilter.Location)
	require.NotNil(t, gotFilter.StartDate)
}

func TestGetScanHistoryHandlerBadDate(t *testing.T) {
	router := setupTicketRouter(&MockTicketService{})

	req := httptest.NewRequest(http.MethodGet,
		"/internal/tickets/ticket-001/scan-history?start_date=yesterday", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusHandler(t *testing.T) {
	svc := &MockTicketService{
		UpdateTicketStatusFunc: func(ctx context.Context, ticketID string, req *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error) {
			assert.Equal(t, "cancelled", req.Status)
			return &dto.TicketResponse{ID: ticketID, Status: req.Status}, nil
		},
	}
	router := setupTicketRouter(svc)

	payload, _ := json.Marshal(map[string]string{"status": "cancelled", "reason": "duplicate purchase"})
	req := httptest.NewRequest(http.MethodPatch, "/internal/tickets/ticket-001/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateStatusHandlerInvalidTarget(t *testing.T) {
	router := setupTicketRouter(&MockTicketService{})

	// "used" is not an admin transition and fails binding
	payload, _ := json.Marshal(map[string]string{"status": "used"})
	req := httptest.NewRequest(http.MethodPatch, "/internal/tickets/ticket-001/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusHandlerIllegalTransition(t *testing.T) {
	svc := &MockTicketService{
		UpdateTicketStatusFunc: func(ctx context.Context, ticketID string, req *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error) {
			return nil, domain.ErrInvalidTransition
		},
	}
	router := setupTicketRouter(svc)

	payload, _ := json.Marshal(map[string]string{"status": "cancelled"})
	req := httptest.NewRequest(http.MethodPatch, "/internal/tickets/ticket-001/status", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_REQUEST", body.Code)
}

// MockEventService is a mock implementation of EventService
type MockEventService struct {
	CheckScannabilityFunc func(ctx context.Context, eventID string) (*dto.EventScannabilityResponse, error)
}

func (m *MockEventService) CheckScannability(ctx context.Context, eventID string) (*dto.EventScannabilityResponse, error) {
	if m.CheckScannabilityFunc != nil {
		return m.CheckScannabilityFunc(ctx, eventID)
	}
	return nil, domain.ErrEventNotFound
}

func TestEventValidateHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &MockEventService{
		CheckScannabilityFunc: func(ctx context.Context, eventID string) (*dto.EventScannabilityResponse, error) {
			return &dto.EventScannabilityResponse{EventID: eventID, Scannable: true, Status: "active"}, nil
		},
	}
	h := NewEventHandler(svc)
	router := gin.New()
	router.GET("/internal/events/:event_id/validate", h.Validate)

	req := httptest.NewRequest(http.MethodGet, "/internal/events/event-001/validate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	var resp dto.EventScannabilityResponse
	require.NoError(t, json.Unmarshal(body.Data, &resp))
	assert.True(t, resp.Scannable)
}

func TestEventValidateHandlerNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEventHandler(&MockEventService{})
	router := gin.New()
	router.GET("/internal/events/:event_id/validate", h.Validate)

	req := httptest.NewRequest(http.MethodGet, "/internal/events/ghost/validate", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
