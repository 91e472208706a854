package policy

import (
	"testing"
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
)

var testNow = time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)

func activeEvent() *domain.Event {
	return &domain.Event{
		ID:       "event-001",
		Title:    "Launch Party",
		Status:   domain.EventStatusActive,
		StartsAt: testNow.Add(-2 * time.Hour),
		EndsAt:   testNow.Add(6 * time.Hour),
	}
}

func activeTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:       "ticket-001",
		EventID:  "event-001",
		Status:   domain.TicketStatusActive,
		MaxScans: 1,
	}
}

func scanAt(location string) domain.ScanContext {
	return domain.ScanContext{
		Location:  location,
		DeviceID:  "device-001",
		Timestamp: testNow,
	}
}

func intPtr(v int) *int { return &v }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *Input)
		want     domain.Code
		admitted bool
	}{
		{
			name:     "clean admit",
			mutate:   func(in *Input) {},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "event cancelled",
			mutate: func(in *Input) {
				in.Event.Status = domain.EventStatusCancelled
			},
			want: domain.CodeEventCancelled,
		},
		{
			name: "event draft",
			mutate: func(in *Input) {
				in.Event.Status = domain.EventStatusDraft
			},
			want: domain.CodeEventNotActive,
		},
		{
			name: "event not started",
			mutate: func(in *Input) {
				in.Event.StartsAt = testNow.Add(time.Hour)
			},
			want: domain.CodeEventNotStarted,
		},
		{
			name: "event ended",
			mutate: func(in *Input) {
				in.Event.EndsAt = testNow.Add(-time.Minute)
			},
			want: domain.CodeEventEnded,
		},
		{
			name: "outside daily window",
			mutate: func(in *Input) {
				// 14:00 UTC is minute 840
				in.Event.TimeWindow = &domain.TimeWindow{StartMinute: 900, EndMinute: 1020}
			},
			want: domain.CodeTimeRestriction,
		},
		{
			name: "inside daily window",
			mutate: func(in *Input) {
				in.Event.TimeWindow = &domain.TimeWindow{StartMinute: 600, EndMinute: 1020}
			},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "zone not allowed",
			mutate: func(in *Input) {
				in.Event.AllowedScanZones = []string{"gate-b", "gate-c"}
			},
			want: domain.CodeZoneRestriction,
		},
		{
			name: "zone allowed",
			mutate: func(in *Input) {
				in.Event.AllowedScanZones = []string{"gate-a", "gate-b"}
			},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "ticket used without logged admission",
			mutate: func(in *Input) {
				in.Ticket.Status = domain.TicketStatusUsed
			},
			want: domain.CodeTicketUsed,
		},
		{
			name: "repeat scan of consumed ticket",
			mutate: func(in *Input) {
				in.Ticket.Status = domain.TicketStatusUsed
				in.History.AdmittedCount = 1
			},
			want: domain.CodeTicketAlreadyValidated,
		},
		{
			name: "ticket cancelled",
			mutate: func(in *Input) {
				in.Ticket.Status = domain.TicketStatusCancelled
			},
			want: domain.CodeTicketCancelled,
		},
		{
			name: "ticket expired",
			mutate: func(in *Input) {
				in.Ticket.Status = domain.TicketStatusExpired
			},
			want: domain.CodeTicketExpired,
		},
		{
			name: "ticket void",
			mutate: func(in *Input) {
				in.Ticket.Status = domain.TicketStatusVoid
			},
			want: domain.CodeTicketVoid,
		},
		{
			name: "corrupted qr",
			mutate: func(in *Input) {
				in.QRDecodeErr = domain.ErrMalformedQRPayload
			},
			want: domain.CodeCorruptedQRCode,
		},
		{
			name: "incomplete qr",
			mutate: func(in *Input) {
				in.QRDecodeErr = domain.ErrIncompleteQRPayload
			},
			want: domain.CodeInvalidQRFormat,
		},
		{
			name: "unsupported qr version",
			mutate: func(in *Input) {
				in.QR = &domain.QRPayload{TicketID: "ticket-001", EventID: "event-001", Version: "v9"}
			},
			want: domain.CodeInvalidQRFormat,
		},
		{
			name: "qr ticket mismatch",
			mutate: func(in *Input) {
				in.QR = &domain.QRPayload{TicketID: "ticket-999", EventID: "event-001", Version: "v1"}
			},
			want: domain.CodeQRTicketMismatch,
		},
		{
			name: "qr event mismatch",
			mutate: func(in *Input) {
				in.QR = &domain.QRPayload{TicketID: "ticket-001", EventID: "event-999", Version: "v1"}
			},
			want: domain.CodeQRTicketMismatch,
		},
		{
			name: "matching qr admits",
			mutate: func(in *Input) {
				in.QR = &domain.QRPayload{TicketID: "ticket-001", EventID: "event-001", Version: "v1"}
			},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "scan limit reached",
			mutate: func(in *Input) {
				in.History.AdmittedCount = 1
			},
			want: domain.CodeScanLimitReached,
		},
		{
			name: "multi scan below limit",
			mutate: func(in *Input) {
				in.Ticket.MaxScans = 3
				in.History.AdmittedCount = 2
				last := testNow.Add(-time.Hour)
				in.History.LastAdmittedAt = &last
			},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "too soon after previous admission",
			mutate: func(in *Input) {
				in.Ticket.MaxScans = 2
				in.History.AdmittedCount = 1
				last := testNow.Add(-5 * time.Second)
				in.History.LastAdmittedAt = &last
			},
			want: domain.CodeScanTooFrequent,
		},
		{
			name: "interval elapsed admits",
			mutate: func(in *Input) {
				in.Ticket.MaxScans = 2
				in.History.AdmittedCount = 1
				last := testNow.Add(-31 * time.Second)
				in.History.LastAdmittedAt = &last
			},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "event full",
			mutate: func(in *Input) {
				in.Event.MaxAttendees = intPtr(100)
				in.CapacityUsed = 100
			},
			want: domain.CodeEventFull,
		},
		{
			name: "capacity available admits",
			mutate: func(in *Input) {
				in.Event.MaxAttendees = intPtr(100)
				in.CapacityUsed = 99
			},
			want:     domain.CodeAdmitted,
			admitted: true,
		},
		{
			name: "event state outranks ticket state",
			mutate: func(in *Input) {
				in.Event.Status = domain.EventStatusCancelled
				in.Ticket.Status = domain.TicketStatusUsed
			},
			want: domain.CodeEventCancelled,
		},
		{
			name: "ticket state outranks scan limit",
			mutate: func(in *Input) {
				in.Ticket.Status = domain.TicketStatusUsed
				in.History.AdmittedCount = 1
			},
			want: domain.CodeTicketAlreadyValidated,
		},
		{
			name: "zone outranks qr integrity",
			mutate: func(in *Input) {
				in.Event.AllowedScanZones = []string{"gate-b"}
				in.QRDecodeErr = domain.ErrMalformedQRPayload
			},
			want: domain.CodeZoneRestriction,
		},
	}

	evaluator := NewEvaluator(nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Input{
				Ticket: activeTicket(),
				Event:  activeEvent(),
				Scan:   scanAt("gate-a"),
				Now:    testNow,
			}
			tt.mutate(&in)

			decision := evaluator.Evaluate(in)

			if decision.Admit != tt.admitted {
				t.Errorf("Evaluate() admit = %v, want %v (code %s)", decision.Admit, tt.admitted, decision.Code)
			}
			if decision.Code != tt.want {
				t.Errorf("Evaluate() code = %s, want %s", decision.Code, tt.want)
			}
			if !decision.Admit && decision.Reason == "" {
				t.Error("Evaluate() rejection carries no reason")
			}
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	evaluator := NewEvaluator(&Config{
		MinScanInterval:     30 * time.Second,
		SupportedQRVersions: []string{"v1"},
	})

	in := Input{
		Ticket: activeTicket(),
		Event:  activeEvent(),
		Scan:   scanAt("gate-a"),
		Now:    testNow,
	}

	first := evaluator.Evaluate(in)
	for i := 0; i < 10; i++ {
		got := evaluator.Evaluate(in)
		if got.Admit != first.Admit || got.Code != first.Code || got.Reason != first.Reason {
			t.Fatalf("Evaluate() not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestEvaluateInputOverridesDefaults(t *testing.T) {
	evaluator := NewEvaluator(&Config{MinScanInterval: time.Hour})

	last := testNow.Add(-2 * time.Minute)
	in := Input{
		Ticket: activeTicket(),
		Event:  activeEvent(),
		Scan:   scanAt("gate-a"),
		Now:    testNow,
		History: domain.ScanHistory{
			AdmittedCount:  1,
			LastAdmittedAt: &last,
		},
		MinScanInterval: time.Minute,
	}
	in.Ticket.MaxScans = 2

	decision := evaluator.Evaluate(in)
	if !decision.Admit {
		t.Errorf("Evaluate() = %s, want admit with per-input interval", decision.Code)
	}
}
