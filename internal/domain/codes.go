package domain

import "net/http"

// Code is a stable, wire-visible validation outcome code. Callers match on
// codes, never on message text.
type Code string

const (
	CodeAdmitted Code = "ADMITTED"

	// Ticket codes
	CodeTicketNotFound         Code = "TICKET_NOT_FOUND"
	CodeTicketEventMismatch    Code = "TICKET_EVENT_MISMATCH"
	CodeTicketAlreadyValidated Code = "TICKET_ALREADY_VALIDATED"
	CodeTicketUsed             Code = "TICKET_USED"
	CodeTicketCancelled        Code = "TICKET_CANCELLED"
	CodeTicketExpired          Code = "TICKET_EXPIRED"
	CodeTicketVoid             Code = "TICKET_VOID"

	// Event codes
	CodeEventNotActive  Code = "EVENT_NOT_ACTIVE"
	CodeEventNotStarted Code = "EVENT_NOT_STARTED"
	CodeEventEnded      Code = "EVENT_ENDED"
	CodeEventCancelled  Code = "EVENT_CANCELLED"
	CodeEventFull       Code = "EVENT_FULL"

	// Restriction codes
	CodeTimeRestriction  Code = "TIME_RESTRICTION"
	CodeZoneRestriction  Code = "ZONE_RESTRICTION"
	CodeScanLimitReached Code = "SCAN_LIMIT_REACHED"
	CodeScanTooFrequent  Code = "SCAN_TOO_FREQUENT"

	// QR codes
	CodeQRTicketMismatch Code = "QR_TICKET_MISMATCH"
	CodeInvalidQRFormat  Code = "INVALID_QR_FORMAT"
	CodeCorruptedQRCode  Code = "CORRUPTED_QR_CODE"

	// Infrastructure codes
	CodeInvalidReference      Code = "INVALID_REFERENCE"
	CodeReplayRace            Code = "REPLAY_RACE"
	CodeTransientRetryExhaust Code = "TRANSIENT_RETRY_EXHAUSTED"
	CodeInvalidRequest        Code = "INVALID_REQUEST"
	CodeInternalError         Code = "INTERNAL_ERROR"
)

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// HTTPStatus maps a code to the HTTP status the boundary responds with:
// 200 admit, 400 validation/business, 403 security, 404 not found,
// 409 race/conflict, 429 rate limit, 500 transient/internal.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeAdmitted:
		return http.StatusOK
	case CodeTicketNotFound:
		return http.StatusNotFound
	case CodeTicketAlreadyValidated, CodeReplayRace:
		return http.StatusConflict
	case CodeScanTooFrequent:
		return http.StatusTooManyRequests
	case CodeZoneRestriction:
		return http.StatusForbidden
	case CodeTransientRetryExhaust, CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
