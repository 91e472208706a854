package domain

import "time"

// ScanDecision is the recorded outcome of a scan attempt
type ScanDecision string

const (
	ScanDecisionAdmitted ScanDecision = "admitted"
	ScanDecisionRejected ScanDecision = "rejected"
)

// String returns the string representation of the decision
func (d ScanDecision) String() string {
	return string(d)
}

// ScanContext carries the where/who/when of a scan attempt
type ScanContext struct {
	Location     string    `json:"location"`
	DeviceID     string    `json:"device_id"`
	OperatorID   string    `json:"operator_id,omitempty"`
	CheckpointID string    `json:"checkpoint_id,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// ScanLog is an append-only audit entry for one scan attempt
type ScanLog struct {
	ID                 string       `json:"id"`
	TicketID           string       `json:"ticket_id"`
	EventID            string       `json:"event_id"`
	OperatorID         string       `json:"operator_id,omitempty"`
	DeviceID           string       `json:"device_id"`
	Location           string       `json:"location"`
	ScannedAt          time.Time    `json:"scanned_at"`
	Decision           ScanDecision `json:"decision"`
	RejectionCode      Code         `json:"rejection_code,omitempty"`
	RequestFingerprint string       `json:"request_fingerprint"`

	// ClaimedEventID is the event the scanner asserted when it differs from
	// the ticket's own event, so a mismatch row preserves both sides.
	ClaimedEventID string `json:"claimed_event_id,omitempty"`

	// AdmissionIndex is 1-based for admitted entries and zero for rejected
	// ones. Two scans that both read the same history and admit collide on
	// it, which surfaces as a replay race.
	AdmissionIndex int `json:"admission_index,omitempty"`
}

// ScanHistory is the per-ticket admission summary read inside the
// validation transaction and fed to the policy evaluator.
type ScanHistory struct {
	AdmittedCount  int        `json:"admitted_count"`
	LastAdmittedAt *time.Time `json:"last_admitted_at,omitempty"`
}

// ScanHistoryFilter narrows a scan history listing
type ScanHistoryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Location  string
}
