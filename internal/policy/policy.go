package policy

import (
	"fmt"
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
)

// Decision is the outcome of policy evaluation: an admission (possibly with
// restrictions the gate should enforce) or a rejection with a stable code.
type Decision struct {
	Admit        bool
	Code         domain.Code
	Reason       string
	Restrictions []string
}

// Admit builds an admission decision
func Admit(restrictions ...string) Decision {
	return Decision{Admit: true, Code: domain.CodeAdmitted, Restrictions: restrictions}
}

// Reject builds a rejection decision
func Reject(code domain.Code, reason string) Decision {
	return Decision{Admit: false, Code: code, Reason: reason}
}

// Input carries everything the evaluator needs. The evaluator is pure: it
// performs no I/O and reads no clocks, so identical inputs always produce
// identical decisions.
type Input struct {
	Ticket      *domain.Ticket
	Event       *domain.Event
	Scan        domain.ScanContext
	Now         time.Time
	History     domain.ScanHistory
	QR          *domain.QRPayload
	QRDecodeErr error

	// CapacityUsed is the admitted-scan count for the event, read inside
	// the validation transaction.
	CapacityUsed int

	// MinScanInterval is the minimum gap between two admissions of the
	// same ticket. Zero disables the check.
	MinScanInterval time.Duration

	// SupportedQRVersions gates qr.version. Empty means any version.
	SupportedQRVersions []string
}

// Evaluator encodes the admission rules. Rules run in a fixed order and the
// first failing rule wins, so outcomes are deterministic.
type Evaluator struct {
	minScanInterval     time.Duration
	supportedQRVersions []string
}

// Config contains evaluator defaults applied when Input leaves them unset
type Config struct {
	MinScanInterval     time.Duration
	SupportedQRVersions []string
}

// NewEvaluator creates an evaluator with the given defaults
func NewEvaluator(cfg *Config) *Evaluator {
	e := &Evaluator{
		minScanInterval:     30 * time.Second,
		supportedQRVersions: []string{"v1"},
	}
	if cfg != nil {
		if cfg.MinScanInterval > 0 {
			e.minScanInterval = cfg.MinScanInterval
		}
		if len(cfg.SupportedQRVersions) > 0 {
			e.supportedQRVersions = cfg.SupportedQRVersions
		}
	}
	return e
}

// Evaluate applies the admission rules to a scan attempt
func (e *Evaluator) Evaluate(in Input) Decision {
	interval := in.MinScanInterval
	if interval == 0 {
		interval = e.minScanInterval
	}
	versions := in.SupportedQRVersions
	if len(versions) == 0 {
		versions = e.supportedQRVersions
	}

	event := in.Event
	ticket := in.Ticket
	now := in.Now

	// Event lifecycle
	if event.Status == domain.EventStatusCancelled {
		return Reject(domain.CodeEventCancelled, "event has been cancelled")
	}
	if event.Status != domain.EventStatusActive {
		return Reject(domain.CodeEventNotActive, fmt.Sprintf("event is %s", event.Status))
	}
	if now.Before(event.StartsAt) {
		return Reject(domain.CodeEventNotStarted, "event has not started")
	}
	if now.After(event.EndsAt) {
		return Reject(domain.CodeEventEnded, "event has ended")
	}

	// Daily time window
	if event.TimeWindow != nil {
		minute := now.Hour()*60 + now.Minute()
		if !event.TimeWindow.Contains(minute) {
			return Reject(domain.CodeTimeRestriction, "outside allowed scan hours")
		}
	}

	// Zone restriction
	if !event.ZoneAllowed(in.Scan.Location) {
		return Reject(domain.CodeZoneRestriction, fmt.Sprintf("location %q is not an allowed scan zone", in.Scan.Location))
	}

	// Ticket state
	switch ticket.Status {
	case domain.TicketStatusActive:
	case domain.TicketStatusUsed:
		// A used ticket with logged admissions is a repeat of a scan that
		// already won, which callers treat as a conflict, not a plain reject
		if in.History.AdmittedCount >= 1 {
			return Reject(domain.CodeTicketAlreadyValidated, "ticket already validated by an earlier scan")
		}
		return Reject(domain.CodeTicketUsed, "ticket already used")
	case domain.TicketStatusCancelled:
		return Reject(domain.CodeTicketCancelled, "ticket has been cancelled")
	case domain.TicketStatusExpired:
		return Reject(domain.CodeTicketExpired, "ticket has expired")
	case domain.TicketStatusVoid:
		return Reject(domain.CodeTicketVoid, "ticket has been voided")
	default:
		return Reject(domain.CodeTicketVoid, "ticket in unknown state")
	}

	// QR integrity
	if in.QRDecodeErr != nil {
		switch in.QRDecodeErr {
		case domain.ErrMalformedQRPayload:
			return Reject(domain.CodeCorruptedQRCode, "qr payload could not be decoded")
		default:
			return Reject(domain.CodeInvalidQRFormat, "qr payload is not valid")
		}
	}
	if in.QR != nil {
		if !versionSupported(versions, in.QR.Version) {
			return Reject(domain.CodeInvalidQRFormat, fmt.Sprintf("unsupported qr version %q", in.QR.Version))
		}
		if in.QR.TicketID != ticket.ID || in.QR.EventID != event.ID {
			return Reject(domain.CodeQRTicketMismatch, "qr payload does not match ticket")
		}
	}

	// Scan limit
	if in.History.AdmittedCount >= ticket.MaxScans {
		return Reject(domain.CodeScanLimitReached, "scan limit reached")
	}

	// Min interval between admissions
	if in.History.LastAdmittedAt != nil && interval > 0 {
		if now.Sub(*in.History.LastAdmittedAt) < interval {
			return Reject(domain.CodeScanTooFrequent, "scanned too soon after previous admission")
		}
	}

	// Event capacity
	if event.MaxAttendees != nil && in.CapacityUsed >= *event.MaxAttendees {
		return Reject(domain.CodeEventFull, "event is at capacity")
	}

	return Admit()
}

func versionSupported(supported []string, v string) bool {
	for _, s := range supported {
		if s == v {
			return true
		}
	}
	return false
}
