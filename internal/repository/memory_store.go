package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
)

// MemoryStore is an in-memory Store for tests and local development. A single
// mutex stands in for row locking, so transactions serialize the same way the
// SELECT FOR UPDATE path does.
type MemoryStore struct {
	mu       sync.Mutex
	tickets  map[string]*domain.Ticket
	events   map[string]*domain.Event
	scanLogs []*domain.ScanLog
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[string]*domain.Ticket),
		events:  make(map[string]*domain.Event),
	}
}

// PutTicket seeds a ticket
func (s *MemoryStore) PutTicket(ticket *domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *ticket
	s.tickets[ticket.ID] = &copied
}

// PutEvent seeds an event
func (s *MemoryStore) PutEvent(event *domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *event
	s.events[event.ID] = &copied
}

// ScanLogCount returns the number of appended scan log entries
func (s *MemoryStore) ScanLogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scanLogs)
}

// GetTicket retrieves a ticket by ID
func (s *MemoryStore) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTicketLocked(id)
}

func (s *MemoryStore) getTicketLocked(id string) (*domain.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	copied := *ticket
	return &copied, nil
}

// GetTicketByCode retrieves a ticket by its human-readable code
func (s *MemoryStore) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ticket := range s.tickets {
		if ticket.TicketCode == code {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, domain.ErrTicketNotFound
}

// GetEvent retrieves an event by ID
func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getEventLocked(id)
}

func (s *MemoryStore) getEventLocked(id string) (*domain.Event, error) {
	event, ok := s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	copied := *event
	return &copied, nil
}

// ScanStats returns the per-ticket admission summary
func (s *MemoryStore) ScanStats(ctx context.Context, ticketID string) (*domain.ScanHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanStatsLocked(ticketID), nil
}

func (s *MemoryStore) scanStatsLocked(ticketID string) *domain.ScanHistory {
	history := &domain.ScanHistory{}
	for _, log := range s.scanLogs {
		if log.TicketID != ticketID || log.Decision != domain.ScanDecisionAdmitted {
			continue
		}
		history.AdmittedCount++
		if history.LastAdmittedAt == nil || log.ScannedAt.After(*history.LastAdmittedAt) {
			at := log.ScannedAt
			history.LastAdmittedAt = &at
		}
	}
	return history
}

// ListScanHistory lists scan log entries for a ticket, newest first
func (s *MemoryStore) ListScanHistory(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) ([]*domain.ScanLog, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*domain.ScanLog
	for _, log := range s.scanLogs {
		if log.TicketID != ticketID {
			continue
		}
		if filter != nil {
			if filter.StartDate != nil && log.ScannedAt.Before(*filter.StartDate) {
				continue
			}
			if filter.EndDate != nil && log.ScannedAt.After(*filter.EndDate) {
				continue
			}
			if filter.Location != "" && log.Location != filter.Location {
				continue
			}
		}
		copied := *log
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ScannedAt.After(matched[j].ScannedAt)
	})

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

// CountAdmittedForEvent counts distinct admitted tickets for an event
func (s *MemoryStore) CountAdmittedForEvent(ctx context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countAdmittedLocked(eventID), nil
}

func (s *MemoryStore) countAdmittedLocked(eventID string) int {
	seen := make(map[string]bool)
	for _, log := range s.scanLogs {
		if log.EventID == eventID && log.Decision == domain.ScanDecisionAdmitted {
			seen[log.TicketID] = true
		}
	}
	return len(seen)
}

// UpdateTicketStatus performs a conditional admin transition
func (s *MemoryStore) UpdateTicketStatus(ctx context.Context, id string, from, to domain.TicketStatus) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	if ticket.Status != from {
		return nil, fmt.Errorf("%w: ticket is %s", domain.ErrInvalidTransition, ticket.Status)
	}

	ticket.Status = to
	ticket.UpdatedAt = time.Now().UTC()
	copied := *ticket
	return &copied, nil
}

// WithTx runs fn while holding the store mutex
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	// Commit: apply buffered writes
	for id, ticket := range tx.ticketUpdates {
		s.tickets[id] = ticket
	}
	s.scanLogs = append(s.scanLogs, tx.logAppends...)
	return nil
}

// HealthCheck always succeeds
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// memoryTx buffers writes until commit so a failed attempt leaves no trace
type memoryTx struct {
	store         *MemoryStore
	ticketUpdates map[string]*domain.Ticket
	logAppends    []*domain.ScanLog
}

func (t *memoryTx) GetTicketForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	if updated, ok := t.ticketUpdates[id]; ok {
		copied := *updated
		return &copied, nil
	}
	return t.store.getTicketLocked(id)
}

func (t *memoryTx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	return t.store.getEventLocked(id)
}

func (t *memoryTx) ScanStats(ctx context.Context, ticketID string) (*domain.ScanHistory, error) {
	return t.store.scanStatsLocked(ticketID), nil
}

func (t *memoryTx) CountAdmittedForEvent(ctx context.Context, eventID string) (int, error) {
	return t.store.countAdmittedLocked(eventID), nil
}

// LockEventForAdmission is a no-op: the store mutex already serializes whole
// transactions, so no rival admission can interleave with the capacity count.
func (t *memoryTx) LockEventForAdmission(ctx context.Context, eventID string) error {
	return nil
}

func (t *memoryTx) ConsumeTicket(ctx context.Context, ticketID string, validatedAt time.Time, final bool) error {
	ticket, err := t.GetTicketForUpdate(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.TicketStatusActive {
		return domain.ErrAlreadyValidated
	}

	if final {
		at := validatedAt
		ticket.ValidatedAt = &at
		ticket.Status = domain.TicketStatusUsed
	}
	ticket.UpdatedAt = validatedAt

	if t.ticketUpdates == nil {
		t.ticketUpdates = make(map[string]*domain.Ticket)
	}
	t.ticketUpdates[ticketID] = ticket
	return nil
}

func (t *memoryTx) AppendScanLog(ctx context.Context, log *domain.ScanLog) error {
	if _, ok := t.store.tickets[log.TicketID]; !ok {
		return fmt.Errorf("%w: ticket %s", domain.ErrInvalidReference, log.TicketID)
	}
	if _, ok := t.store.events[log.EventID]; !ok {
		return fmt.Errorf("%w: event %s", domain.ErrInvalidReference, log.EventID)
	}

	// Mirror the partial unique index on (ticket_id, admission_index)
	if log.Decision == domain.ScanDecisionAdmitted {
		for _, existing := range t.store.scanLogs {
			if existing.TicketID == log.TicketID &&
				existing.Decision == domain.ScanDecisionAdmitted &&
				existing.AdmissionIndex == log.AdmissionIndex {
				return fmt.Errorf("%w: scan_logs_ticket_admission", domain.ErrReplayRace)
			}
		}
	}

	copied := *log
	t.logAppends = append(t.logAppends, &copied)
	return nil
}
