package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/clock"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/dto"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/policy"
	"github.com/HayasMoustapha/event-planner-core-sub002/internal/repository"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/retry"
)

var testNow = time.Date(2026, 6, 15, 14, 0, 0, 0, time.UTC)

// stubLimiter always answers the same way
type stubLimiter struct {
	allow bool
}

func (l *stubLimiter) AllowAll(keys ...string) bool { return l.allow }

// capturePublisher records published scan events
type capturePublisher struct {
	admitted []*domain.ScanLog
	rejected []*domain.ScanLog
}

func (p *capturePublisher) PublishScanAdmitted(ctx context.Context, log *domain.ScanLog) error {
	p.admitted = append(p.admitted, log)
	return nil
}

func (p *capturePublisher) PublishScanRejected(ctx context.Context, log *domain.ScanLog) error {
	p.rejected = append(p.rejected, log)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

// flakyStore fails WithTx with a transient error a set number of times
type flakyStore struct {
	*repository.MemoryStore
	failures  int
	attempts  int
	transient error
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.attempts++
	if s.attempts <= s.failures {
		return fmt.Errorf("%w: could not serialize access", s.transient)
	}
	return s.MemoryStore.WithTx(ctx, fn)
}

// lockTrackingStore records which events the engine locks before counting
// capacity
type lockTrackingStore struct {
	*repository.MemoryStore
	locked []string
}

func (s *lockTrackingStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.MemoryStore.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, &lockTrackingTx{Tx: tx, store: s})
	})
}

type lockTrackingTx struct {
	repository.Tx
	store *lockTrackingStore
}

func (t *lockTrackingTx) LockEventForAdmission(ctx context.Context, eventID string) error {
	t.store.locked = append(t.store.locked, eventID)
	return t.Tx.LockEventForAdmission(ctx, eventID)
}

func seedEvent(store *repository.MemoryStore, mutate func(e *domain.Event)) *domain.Event {
	event := &domain.Event{
		ID:       "event-001",
		Title:    "Launch Party",
		Status:   domain.EventStatusActive,
		StartsAt: testNow.Add(-2 * time.Hour),
		EndsAt:   testNow.Add(6 * time.Hour),
	}
	if mutate != nil {
		mutate(event)
	}
	store.PutEvent(event)
	return event
}

func seedTicket(store *repository.MemoryStore, id string, mutate func(t *domain.Ticket)) *domain.Ticket {
	ticket := &domain.Ticket{
		ID:           id,
		EventGuestID: "guest-001",
		EventID:      "event-001",
		TicketCode:   "TC-" + id,
		Status:       domain.TicketStatusActive,
		MaxScans:     1,
		UpdatedAt:    testNow.Add(-24 * time.Hour),
	}
	if mutate != nil {
		mutate(ticket)
	}
	store.PutTicket(ticket)
	return ticket
}

func validateRequest(ticketID string) *dto.ValidateTicketRequest {
	return &dto.ValidateTicketRequest{
		TicketID: ticketID,
		EventID:  "event-001",
		ScanContext: dto.ScanContextRequest{
			Location: "gate-a",
			DeviceID: "device-001",
		},
	}
}

type testEnv struct {
	store     *repository.MemoryStore
	clock     *clock.FakeClock
	publisher *capturePublisher
	service   ValidationService
}

func newTestEnv(store repository.Store) *testEnv {
	env := &testEnv{
		clock:     clock.NewFake(testNow),
		publisher: &capturePublisher{},
	}
	if store == nil {
		env.store = repository.NewMemoryStore()
		store = env.store
	} else if ms, ok := store.(*repository.MemoryStore); ok {
		env.store = ms
	}
	env.service = NewValidationService(
		store,
		policy.NewEvaluator(nil),
		&stubLimiter{allow: true},
		env.publisher,
		env.clock,
		nil,
		nil,
	)
	return env
}

func TestValidateTicketAdmit(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)

	result, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("ValidateTicket() unexpected error = %v", err)
	}

	if !result.Admitted {
		t.Fatalf("ValidateTicket() rejected with %s: %s", result.Code, result.Reason)
	}
	if result.Code != domain.CodeAdmitted.String() {
		t.Errorf("code = %s, want ADMITTED", result.Code)
	}
	if result.TicketStatus != domain.TicketStatusUsed.String() {
		t.Errorf("ticket status = %s, want used", result.TicketStatus)
	}
	if result.RemainingScans != 0 {
		t.Errorf("remaining scans = %d, want 0", result.RemainingScans)
	}
	if result.ValidatedAt == nil || !result.ValidatedAt.Equal(testNow) {
		t.Errorf("validated_at = %v, want %v", result.ValidatedAt, testNow)
	}

	ticket, err := env.store.GetTicket(context.Background(), "ticket-001")
	if err != nil {
		t.Fatalf("GetTicket() error = %v", err)
	}
	if ticket.Status != domain.TicketStatusUsed {
		t.Errorf("stored status = %s, want used", ticket.Status)
	}
	if ticket.ValidatedAt == nil {
		t.Error("stored validated_at not stamped on final admission")
	}

	if env.store.ScanLogCount() != 1 {
		t.Errorf("scan log count = %d, want 1", env.store.ScanLogCount())
	}
	if len(env.publisher.admitted) != 1 {
		t.Errorf("published admitted events = %d, want 1", len(env.publisher.admitted))
	}
}

func TestValidateTicketSecondScanRejected(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)

	if _, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001")); err != nil {
		t.Fatalf("first ValidateTicket() error = %v", err)
	}

	env.clock.Advance(time.Minute)
	result, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("second ValidateTicket() error = %v", err)
	}

	if result.Admitted {
		t.Fatal("second scan admitted a used ticket")
	}
	if result.Code != domain.CodeTicketAlreadyValidated.String() {
		t.Errorf("code = %s, want TICKET_ALREADY_VALIDATED", result.Code)
	}

	// Both attempts are audited
	if env.store.ScanLogCount() != 2 {
		t.Errorf("scan log count = %d, want 2", env.store.ScanLogCount())
	}
	if len(env.publisher.rejected) != 1 {
		t.Errorf("published rejected events = %d, want 1", len(env.publisher.rejected))
	}
}

func TestValidateTicketConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)

	results := make([]*dto.ValidationResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
			if err != nil {
				t.Errorf("ValidateTicket() error = %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	admitted, conflicted := 0, 0
	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Admitted {
			admitted++
		} else if res.Code == domain.CodeTicketAlreadyValidated.String() {
			conflicted++
		} else {
			t.Errorf("loser code = %s, want TICKET_ALREADY_VALIDATED", res.Code)
		}
	}
	if admitted != 1 || conflicted != 1 {
		t.Errorf("admitted = %d, conflicted = %d, want exactly one of each", admitted, conflicted)
	}

	if env.store.ScanLogCount() != 2 {
		t.Errorf("scan log count = %d, want 2", env.store.ScanLogCount())
	}
}

func TestValidateTicketEventMismatch(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedEvent(env.store, func(e *domain.Event) { e.ID = "event-002" })
	seedTicket(env.store, "ticket-001", nil)

	req := validateRequest("ticket-001")
	req.EventID = "event-002"

	result, err := env.service.ValidateTicket(context.Background(), req)
	if err != nil {
		t.Fatalf("ValidateTicket() error = %v", err)
	}

	if result.Admitted {
		t.Fatal("mismatched event admitted")
	}
	if result.Code != domain.CodeTicketEventMismatch.String() {
		t.Errorf("code = %s, want TICKET_EVENT_MISMATCH", result.Code)
	}
	if env.store.ScanLogCount() != 1 {
		t.Errorf("scan log count = %d, mismatch attempts must be audited", env.store.ScanLogCount())
	}

	// The audit row keeps both the ticket's event and the claimed one
	logs, _, err := env.store.ListScanHistory(context.Background(), "ticket-001", nil, 10, 0)
	if err != nil || len(logs) != 1 {
		t.Fatalf("ListScanHistory() = %d entries, err = %v", len(logs), err)
	}
	if logs[0].EventID != "event-001" || logs[0].ClaimedEventID != "event-002" {
		t.Errorf("log event = %s claimed = %s, want event-001 / event-002", logs[0].EventID, logs[0].ClaimedEventID)
	}

	ticket, _ := env.store.GetTicket(context.Background(), "ticket-001")
	if ticket.Status != domain.TicketStatusActive {
		t.Errorf("stored status = %s, mismatch must not consume the ticket", ticket.Status)
	}
}

func TestValidateTicketNotFound(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)

	_, err := env.service.ValidateTicket(context.Background(), validateRequest("ghost"))
	if !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("ValidateTicket() error = %v, want ErrTicketNotFound", err)
	}
	if env.store.ScanLogCount() != 0 {
		t.Errorf("scan log count = %d, not-found must not be audited", env.store.ScanLogCount())
	}
}

func TestValidateTicketRequestValidation(t *testing.T) {
	env := newTestEnv(nil)

	tests := []struct {
		name    string
		mutate  func(req *dto.ValidateTicketRequest)
		wantErr error
	}{
		{"missing ticket id", func(r *dto.ValidateTicketRequest) { r.TicketID = "" }, domain.ErrInvalidTicketID},
		{"missing event id", func(r *dto.ValidateTicketRequest) { r.EventID = "" }, domain.ErrInvalidEventID},
		{"missing device id", func(r *dto.ValidateTicketRequest) { r.ScanContext.DeviceID = "" }, domain.ErrInvalidDeviceID},
		{"missing location", func(r *dto.ValidateTicketRequest) { r.ScanContext.Location = "" }, domain.ErrInvalidLocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validateRequest("ticket-001")
			tt.mutate(req)
			_, err := env.service.ValidateTicket(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTicket() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTicketThrottled(t *testing.T) {
	env := &testEnv{
		clock:     clock.NewFake(testNow),
		publisher: &capturePublisher{},
		store:     repository.NewMemoryStore(),
	}
	env.service = NewValidationService(
		env.store,
		policy.NewEvaluator(nil),
		&stubLimiter{allow: false},
		env.publisher,
		env.clock,
		nil,
		nil,
	)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)

	result, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("ValidateTicket() error = %v", err)
	}
	if result.Admitted || result.Code != domain.CodeScanTooFrequent.String() {
		t.Errorf("result = %+v, want SCAN_TOO_FREQUENT rejection", result)
	}

	// Throttled attempts never open a transaction
	if env.store.ScanLogCount() != 0 {
		t.Errorf("scan log count = %d, throttle must short-circuit", env.store.ScanLogCount())
	}
}

func TestValidateTicketMultiScan(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", func(tk *domain.Ticket) { tk.MaxScans = 2 })

	// First admission: not final, ticket stays active
	first, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("first ValidateTicket() error = %v", err)
	}
	if !first.Admitted || first.RemainingScans != 1 {
		t.Fatalf("first = %+v, want admitted with 1 remaining", first)
	}

	ticket, _ := env.store.GetTicket(context.Background(), "ticket-001")
	if ticket.Status != domain.TicketStatusActive {
		t.Errorf("status after first scan = %s, want active", ticket.Status)
	}
	if ticket.ValidatedAt != nil {
		t.Error("validated_at stamped before the final admission")
	}

	// 5 seconds later: blocked by the min interval
	env.clock.Advance(5 * time.Second)
	tooSoon, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("too-soon ValidateTicket() error = %v", err)
	}
	if tooSoon.Admitted || tooSoon.Code != domain.CodeScanTooFrequent.String() {
		t.Errorf("too-soon = %+v, want SCAN_TOO_FREQUENT", tooSoon)
	}

	// 31 seconds after the first admission: final admission
	env.clock.Advance(26 * time.Second)
	second, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("second ValidateTicket() error = %v", err)
	}
	if !second.Admitted || second.RemainingScans != 0 {
		t.Fatalf("second = %+v, want final admission", second)
	}

	ticket, _ = env.store.GetTicket(context.Background(), "ticket-001")
	if ticket.Status != domain.TicketStatusUsed {
		t.Errorf("status after final scan = %s, want used", ticket.Status)
	}
	if ticket.ValidatedAt == nil {
		t.Error("validated_at not stamped on final admission")
	}

	// Limit reached
	env.clock.Advance(time.Minute)
	third, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("third ValidateTicket() error = %v", err)
	}
	if third.Admitted || third.Code != domain.CodeTicketAlreadyValidated.String() {
		t.Errorf("third = %+v, want TICKET_ALREADY_VALIDATED", third)
	}
}

func TestValidateTicketCapacity(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, func(e *domain.Event) {
		one := 1
		e.MaxAttendees = &one
	})
	seedTicket(env.store, "ticket-001", nil)
	seedTicket(env.store, "ticket-002", nil)

	first, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil || !first.Admitted {
		t.Fatalf("first = %+v err = %v, want admission", first, err)
	}

	second, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-002"))
	if err != nil {
		t.Fatalf("second ValidateTicket() error = %v", err)
	}
	if second.Admitted || second.Code != domain.CodeEventFull.String() {
		t.Errorf("second = %+v, want EVENT_FULL", second)
	}
}

func TestValidateTicketCapacityTakesEventLock(t *testing.T) {
	memory := repository.NewMemoryStore()
	store := &lockTrackingStore{MemoryStore: memory}
	env := &testEnv{
		store:     memory,
		clock:     clock.NewFake(testNow),
		publisher: &capturePublisher{},
	}
	env.service = NewValidationService(
		store,
		policy.NewEvaluator(nil),
		&stubLimiter{allow: true},
		env.publisher,
		env.clock,
		nil,
		nil,
	)
	seedEvent(memory, func(e *domain.Event) {
		ten := 10
		e.MaxAttendees = &ten
	})
	seedTicket(memory, "ticket-001", nil)
	seedTicket(memory, "ticket-002", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusCancelled })

	// Admission into a capacity-bounded event must serialize on the event
	// lock before the authoritative count
	result, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil || !result.Admitted {
		t.Fatalf("result = %+v err = %v, want admission", result, err)
	}
	if len(store.locked) != 1 || store.locked[0] != "event-001" {
		t.Errorf("locked events = %v, want [event-001]", store.locked)
	}

	// A policy reject never reaches the capacity re-read, so no lock
	store.locked = nil
	rejected, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-002"))
	if err != nil || rejected.Admitted {
		t.Fatalf("rejected = %+v err = %v, want rejection", rejected, err)
	}
	if len(store.locked) != 0 {
		t.Errorf("locked events = %v, rejects must not lock", store.locked)
	}
}

func TestValidateTicketUnlimitedEventSkipsLock(t *testing.T) {
	memory := repository.NewMemoryStore()
	store := &lockTrackingStore{MemoryStore: memory}
	env := &testEnv{
		store:     memory,
		clock:     clock.NewFake(testNow),
		publisher: &capturePublisher{},
	}
	env.service = NewValidationService(
		store,
		policy.NewEvaluator(nil),
		&stubLimiter{allow: true},
		env.publisher,
		env.clock,
		nil,
		nil,
	)
	seedEvent(memory, nil)
	seedTicket(memory, "ticket-001", nil)

	result, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil || !result.Admitted {
		t.Fatalf("result = %+v err = %v, want admission", result, err)
	}
	if len(store.locked) != 0 {
		t.Errorf("locked events = %v, unlimited events must not lock", store.locked)
	}
}

func TestValidateTicketByCode(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)

	result, err := env.service.ValidateTicketByCode(context.Background(), &dto.ValidateTicketByCodeRequest{
		TicketCode: "TC-ticket-001",
		ScanContext: dto.ScanContextRequest{
			Location: "gate-a",
			DeviceID: "device-001",
		},
	})
	if err != nil {
		t.Fatalf("ValidateTicketByCode() error = %v", err)
	}
	if !result.Admitted {
		t.Errorf("result = %+v, want admission", result)
	}
	if result.TicketID != "ticket-001" {
		t.Errorf("ticket_id = %s, want ticket-001", result.TicketID)
	}

	_, err = env.service.ValidateTicketByCode(context.Background(), &dto.ValidateTicketByCodeRequest{
		TicketCode: "TC-unknown",
		ScanContext: dto.ScanContextRequest{
			Location: "gate-a",
			DeviceID: "device-001",
		},
	})
	if !errors.Is(err, domain.ErrTicketNotFound) {
		t.Errorf("unknown code error = %v, want ErrTicketNotFound", err)
	}
}

func TestValidateTicketTransientRetry(t *testing.T) {
	memory := repository.NewMemoryStore()
	store := &flakyStore{
		MemoryStore: memory,
		failures:    2,
		transient:   domain.ErrSerializationFailure,
	}
	env := &testEnv{
		store:     memory,
		clock:     clock.NewFake(testNow),
		publisher: &capturePublisher{},
	}
	env.service = NewValidationService(
		store,
		policy.NewEvaluator(nil),
		&stubLimiter{allow: true},
		env.publisher,
		env.clock,
		nil,
		nil,
	)
	seedEvent(memory, nil)
	seedTicket(memory, "ticket-001", nil)

	result, err := env.service.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if err != nil {
		t.Fatalf("ValidateTicket() error = %v, want success after transient retries", err)
	}
	if !result.Admitted {
		t.Errorf("result = %+v, want admission", result)
	}
	if store.attempts != 3 {
		t.Errorf("attempts = %d, want 3", store.attempts)
	}
}

func TestValidateTicketRetryExhausted(t *testing.T) {
	memory := repository.NewMemoryStore()
	store := &flakyStore{
		MemoryStore: memory,
		failures:    100,
		transient:   domain.ErrDeadlockDetected,
	}
	svc := NewValidationService(
		store,
		policy.NewEvaluator(nil),
		&stubLimiter{allow: true},
		nil,
		clock.NewFake(testNow),
		nil,
		&ValidationServiceConfig{RetryConfig: retry.DefaultConfig()},
	)
	seedEvent(memory, nil)
	seedTicket(memory, "ticket-001", nil)

	_, err := svc.ValidateTicket(context.Background(), validateRequest("ticket-001"))
	if !errors.Is(err, domain.ErrRetryExhausted) {
		t.Fatalf("ValidateTicket() error = %v, want ErrRetryExhausted", err)
	}
	if got := CodeForError(err); got != domain.CodeTransientRetryExhaust {
		t.Errorf("CodeForError() = %s, want TRANSIENT_RETRY_EXHAUSTED", got)
	}
	if store.attempts != 4 {
		t.Errorf("attempts = %d, want 1 initial + 3 retries", store.attempts)
	}
}

func TestValidateBatch(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)
	seedTicket(env.store, "ticket-002", func(tk *domain.Ticket) { tk.Status = domain.TicketStatusCancelled })

	req := &dto.ValidateBatchRequest{
		BatchID: "batch-001",
		Tickets: []dto.ValidateTicketRequest{
			*validateRequest("ticket-001"),
			*validateRequest("ticket-002"),
			*validateRequest("ghost"),
		},
	}

	resp, err := env.service.ValidateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}

	if len(resp.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(resp.Results))
	}

	// Order mirrors input order
	if resp.Results[0].Result == nil || !resp.Results[0].Result.Admitted {
		t.Errorf("result[0] = %+v, want admission", resp.Results[0])
	}
	if resp.Results[1].Result == nil || resp.Results[1].Result.Code != domain.CodeTicketCancelled.String() {
		t.Errorf("result[1] = %+v, want TICKET_CANCELLED", resp.Results[1])
	}
	if resp.Results[2].Code != domain.CodeTicketNotFound.String() || resp.Results[2].Error == "" {
		t.Errorf("result[2] = %+v, want TICKET_NOT_FOUND error item", resp.Results[2])
	}

	if resp.Summary.Total != 3 || resp.Summary.Admitted != 1 || resp.Summary.Rejected != 2 {
		t.Errorf("summary = %+v, want total 3 / admitted 1 / rejected 2", resp.Summary)
	}
	if diff := resp.Summary.SuccessRate - 1.0/3.0; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("success rate = %f, want 1/3", resp.Summary.SuccessRate)
	}
}

func TestValidateBatchLimits(t *testing.T) {
	env := newTestEnv(nil)

	_, err := env.service.ValidateBatch(context.Background(), &dto.ValidateBatchRequest{})
	if !errors.Is(err, domain.ErrBatchEmpty) {
		t.Errorf("empty batch error = %v, want ErrBatchEmpty", err)
	}

	oversized := &dto.ValidateBatchRequest{Tickets: make([]dto.ValidateTicketRequest, 51)}
	for i := range oversized.Tickets {
		oversized.Tickets[i] = *validateRequest(fmt.Sprintf("ticket-%03d", i))
	}
	_, err = env.service.ValidateBatch(context.Background(), oversized)
	if !errors.Is(err, domain.ErrBatchTooLarge) {
		t.Errorf("oversized batch error = %v, want ErrBatchTooLarge", err)
	}
}

func TestValidateBatchIsolation(t *testing.T) {
	env := newTestEnv(nil)
	seedEvent(env.store, nil)
	seedTicket(env.store, "ticket-001", nil)

	// Same ticket twice: the first admission must commit even though the
	// second attempt rejects.
	req := &dto.ValidateBatchRequest{
		Tickets: []dto.ValidateTicketRequest{
			*validateRequest("ticket-001"),
			*validateRequest("ticket-001"),
		},
	}

	resp, err := env.service.ValidateBatch(context.Background(), req)
	if err != nil {
		t.Fatalf("ValidateBatch() error = %v", err)
	}
	if resp.Summary.Admitted != 1 || resp.Summary.Rejected != 1 {
		t.Errorf("summary = %+v, want one admission and one rejection", resp.Summary)
	}

	ticket, _ := env.store.GetTicket(context.Background(), "ticket-001")
	if ticket.Status != domain.TicketStatusUsed {
		t.Errorf("stored status = %s, want used after batch", ticket.Status)
	}
}

func TestCodeForError(t *testing.T) {
	tests := []struct {
		err  error
		want domain.Code
	}{
		{domain.ErrTicketNotFound, domain.CodeTicketNotFound},
		{domain.ErrEventNotFound, domain.CodeTicketNotFound},
		{fmt.Errorf("wrap: %w", domain.ErrReplayRace), domain.CodeReplayRace},
		{domain.ErrInvalidReference, domain.CodeInvalidReference},
		{domain.ErrAlreadyValidated, domain.CodeTicketAlreadyValidated},
		{domain.ErrRetryExhausted, domain.CodeTransientRetryExhaust},
		{domain.ErrInvalidDeviceID, domain.CodeInvalidRequest},
		{domain.ErrInvalidTransition, domain.CodeInvalidRequest},
		{errors.New("boom"), domain.CodeInternalError},
	}

	for _, tt := range tests {
		if got := CodeForError(tt.err); got != tt.want {
			t.Errorf("CodeForError(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
