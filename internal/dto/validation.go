package dto

import (
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
)

// ScanContextRequest carries the where/who/when of a scan attempt
type ScanContextRequest struct {
	Location     string     `json:"location" binding:"required"`
	DeviceID     string     `json:"device_id" binding:"required"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
	OperatorID   string     `json:"operator_id,omitempty"`
	CheckpointID string     `json:"checkpoint_id,omitempty"`
}

// ValidationMetadata carries optional QR hints supplied by the scanner
type ValidationMetadata struct {
	QRVersion   string     `json:"qr_version,omitempty"`
	QRAlgorithm string     `json:"qr_algorithm,omitempty"`
	ValidatedAt *time.Time `json:"validated_at,omitempty"`
}

// ValidateTicketRequest represents a request to validate one ticket by ID
type ValidateTicketRequest struct {
	TicketID           string              `json:"ticket_id" binding:"required"`
	EventID            string              `json:"event_id" binding:"required"`
	TicketType         string              `json:"ticket_type,omitempty"`
	UserID             string              `json:"user_id,omitempty"`
	ScanContext        ScanContextRequest  `json:"scan_context" binding:"required"`
	ValidationMetadata *ValidationMetadata `json:"validation_metadata,omitempty"`
}

// ValidateTicketByCodeRequest represents a request to validate by ticket code
type ValidateTicketByCodeRequest struct {
	TicketCode  string             `json:"ticket_code" binding:"required"`
	ScanContext ScanContextRequest `json:"scan_context" binding:"required"`
}

// ValidateBatchRequest represents a batch of validation requests
type ValidateBatchRequest struct {
	Tickets  []ValidateTicketRequest `json:"tickets" binding:"required"`
	BatchID  string                  `json:"batch_id,omitempty"`
	Metadata map[string]string       `json:"metadata,omitempty"`
}

// ValidationResult represents the outcome of one validation attempt
type ValidationResult struct {
	TicketID       string     `json:"ticket_id"`
	EventID        string     `json:"event_id"`
	Admitted       bool       `json:"admitted"`
	Code           string     `json:"code"`
	Reason         string     `json:"reason,omitempty"`
	TicketStatus   string     `json:"ticket_status,omitempty"`
	RemainingScans int        `json:"remaining_scans"`
	ValidatedAt    *time.Time `json:"validated_at,omitempty"`
	Restrictions   []string   `json:"restrictions,omitempty"`
}

// BatchItemResult pairs an input position with its validation outcome
type BatchItemResult struct {
	Index  int               `json:"index"`
	Result *ValidationResult `json:"result,omitempty"`
	Code   string            `json:"code,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// BatchSummary aggregates batch outcomes
type BatchSummary struct {
	Total       int     `json:"total"`
	Admitted    int     `json:"admitted"`
	Rejected    int     `json:"rejected"`
	SuccessRate float64 `json:"success_rate"`
}

// ValidateBatchResponse represents the outcome of a batch validation
type ValidateBatchResponse struct {
	BatchID string            `json:"batch_id,omitempty"`
	Results []BatchItemResult `json:"results"`
	Summary BatchSummary      `json:"summary"`
}

// ToScanContext converts the request scan context to the domain form,
// defaulting the timestamp to now when the scanner omits it.
func (r *ScanContextRequest) ToScanContext(now time.Time) domain.ScanContext {
	ts := now
	if r.Timestamp != nil {
		ts = *r.Timestamp
	}
	return domain.ScanContext{
		Location:     r.Location,
		DeviceID:     r.DeviceID,
		OperatorID:   r.OperatorID,
		CheckpointID: r.CheckpointID,
		Timestamp:    ts,
	}
}
