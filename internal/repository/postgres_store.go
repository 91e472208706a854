package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/HayasMoustapha/event-planner-core-sub002/internal/domain"
	"github.com/HayasMoustapha/event-planner-core-sub002/pkg/telemetry"
)

// PostgreSQL error codes
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
)

// PostgresStore implements Store using PostgreSQL with pgxpool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// classifyError maps PostgreSQL failures onto domain errors so callers can
// decide retry vs conflict without knowing SQLSTATE codes.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure:
			return fmt.Errorf("%w: %s", domain.ErrSerializationFailure, pgErr.Message)
		case pgDeadlockDetected:
			return fmt.Errorf("%w: %s", domain.ErrDeadlockDetected, pgErr.Message)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrReplayRace, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrInvalidReference, pgErr.ConstraintName)
		}
	}
	return err
}

const ticketColumns = `id, event_guest_id, event_id, ticket_code,
	COALESCE(qr_payload, '') as qr_payload,
	status, max_scans, validated_at, updated_at`

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	ticket := &domain.Ticket{}
	var status string
	var qrPayload string

	err := row.Scan(
		&ticket.ID,
		&ticket.EventGuestID,
		&ticket.EventID,
		&ticket.TicketCode,
		&qrPayload,
		&status,
		&ticket.MaxScans,
		&ticket.ValidatedAt,
		&ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ticket.Status = domain.TicketStatus(status)
	ticket.QRPayload = []byte(qrPayload)
	return ticket, nil
}

const eventColumns = `id, title, status, starts_at, ends_at, max_attendees,
	COALESCE(allowed_scan_zones, '{}') as allowed_scan_zones,
	scan_window_start_minute, scan_window_end_minute, created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	event := &domain.Event{}
	var status string
	var zones []string
	var windowStart, windowEnd *int

	err := row.Scan(
		&event.ID,
		&event.Title,
		&status,
		&event.StartsAt,
		&event.EndsAt,
		&event.MaxAttendees,
		&zones,
		&windowStart,
		&windowEnd,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Status = domain.EventStatus(status)
	event.AllowedScanZones = zones
	if windowStart != nil && windowEnd != nil {
		event.TimeWindow = &domain.TimeWindow{
			StartMinute: *windowStart,
			EndMinute:   *windowEnd,
		}
	}
	return event, nil
}

// GetTicket retrieves a ticket by ID without locking
func (s *PostgresStore) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id = $1`, ticketColumns)
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

// GetTicketByCode retrieves a ticket by its human-readable code
func (s *PostgresStore) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_by_code")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_code = $1`, ticketColumns)
	ticket, err := scanTicket(s.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

// GetEvent retrieves an event by ID
func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", id))

	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	event, err := scanEvent(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

const scanStatsQuery = `
	SELECT COUNT(*), MAX(scanned_at)
	FROM scan_logs
	WHERE ticket_id = $1 AND decision = 'admitted'
`

// ScanStats returns the per-ticket admission summary
func (s *PostgresStore) ScanStats(ctx context.Context, ticketID string) (*domain.ScanHistory, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.scan_log.stats")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	history := &domain.ScanHistory{}
	err := s.pool.QueryRow(ctx, scanStatsQuery, ticketID).Scan(&history.AdmittedCount, &history.LastAdmittedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return history, nil
}

// ListScanHistory lists scan log entries for a ticket, newest first
func (s *PostgresStore) ListScanHistory(ctx context.Context, ticketID string, filter *domain.ScanHistoryFilter, limit, offset int) ([]*domain.ScanLog, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.scan_log.list")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", ticketID))

	conditions := []string{"ticket_id = $1"}
	args := []interface{}{ticketID}
	argIndex := 2

	if filter != nil {
		if filter.StartDate != nil {
			conditions = append(conditions, fmt.Sprintf("scanned_at >= $%d", argIndex))
			args = append(args, *filter.StartDate)
			argIndex++
		}
		if filter.EndDate != nil {
			conditions = append(conditions, fmt.Sprintf("scanned_at <= $%d", argIndex))
			args = append(args, *filter.EndDate)
			argIndex++
		}
		if filter.Location != "" {
			conditions = append(conditions, fmt.Sprintf("location = $%d", argIndex))
			args = append(args, filter.Location)
			argIndex++
		}
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM scan_logs WHERE %s", whereClause)
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, classifyError(err)
	}

	query := fmt.Sprintf(`
		SELECT id, ticket_id, event_id,
			COALESCE(operator_id, '') as operator_id,
			device_id, location, scanned_at, decision,
			COALESCE(rejection_code, '') as rejection_code,
			request_fingerprint,
			COALESCE(admission_index, 0) as admission_index,
			COALESCE(claimed_event_id, '') as claimed_event_id
		FROM scan_logs
		WHERE %s
		ORDER BY scanned_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, 0, classifyError(err)
	}
	defer rows.Close()

	var logs []*domain.ScanLog
	for rows.Next() {
		log := &domain.ScanLog{}
		var decision, rejectionCode string
		err := rows.Scan(
			&log.ID,
			&log.TicketID,
			&log.EventID,
			&log.OperatorID,
			&log.DeviceID,
			&log.Location,
			&log.ScannedAt,
			&decision,
			&rejectionCode,
			&log.RequestFingerprint,
			&log.AdmissionIndex,
			&log.ClaimedEventID,
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, 0, classifyError(err)
		}
		log.Decision = domain.ScanDecision(decision)
		log.RejectionCode = domain.Code(rejectionCode)
		logs = append(logs, log)
	}

	span.SetStatus(codes.Ok, "")
	return logs, total, nil
}

const countAdmittedQuery = `
	SELECT COUNT(DISTINCT ticket_id)
	FROM scan_logs
	WHERE event_id = $1 AND decision = 'admitted'
`

// CountAdmittedForEvent counts distinct admitted tickets for an event
func (s *PostgresStore) CountAdmittedForEvent(ctx context.Context, eventID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.scan_log.count_admitted")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	var count int
	if err := s.pool.QueryRow(ctx, countAdmittedQuery, eventID).Scan(&count); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return count, nil
}

// UpdateTicketStatus performs a conditional admin transition. When the
// conditional update misses, the ticket is re-read to distinguish a missing
// ticket from an illegal transition.
func (s *PostgresStore) UpdateTicketStatus(ctx context.Context, id string, from, to domain.TicketStatus) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket_id", id),
		attribute.String("from_status", from.String()),
		attribute.String("to_status", to.String()),
	)

	query := `
		UPDATE tickets
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	result, err := s.pool.Exec(ctx, query, id, from.String(), to.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err)
	}

	if result.RowsAffected() == 0 {
		ticket, err := s.GetTicket(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: ticket is %s", domain.ErrInvalidTransition, ticket.Status)
	}

	span.SetStatus(codes.Ok, "")
	return s.GetTicket(ctx, id)
}

// WithTx runs fn inside a single database transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.tx")
	defer span.End()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyError(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// HealthCheck verifies database connectivity
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// postgresTx implements Tx on top of a pgx transaction
type postgresTx struct {
	tx pgx.Tx
}

// GetTicketForUpdate retrieves a ticket with a row lock held until commit
func (t *postgresTx) GetTicketForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.get_for_update")
	defer span.End()
	span.SetAttributes(attribute.String("ticket_id", id))

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id = $1 FOR UPDATE`, ticketColumns)
	ticket, err := scanTicket(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return ticket, nil
}

// GetEvent retrieves an event inside the transaction
func (t *postgresTx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	event, err := scanEvent(t.tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, classifyError(err)
	}
	return event, nil
}

// ScanStats returns the per-ticket admission summary inside the transaction
func (t *postgresTx) ScanStats(ctx context.Context, ticketID string) (*domain.ScanHistory, error) {
	history := &domain.ScanHistory{}
	err := t.tx.QueryRow(ctx, scanStatsQuery, ticketID).Scan(&history.AdmittedCount, &history.LastAdmittedAt)
	if err != nil {
		return nil, classifyError(err)
	}
	return history, nil
}

// CountAdmittedForEvent counts distinct admitted tickets inside the transaction
func (t *postgresTx) CountAdmittedForEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := t.tx.QueryRow(ctx, countAdmittedQuery, eventID).Scan(&count); err != nil {
		return 0, classifyError(err)
	}
	return count, nil
}

// LockEventForAdmission takes a transaction-scoped advisory lock on the
// event. Rival admissions block here until the holder commits, and the next
// capacity count runs on a fresh snapshot that sees the committed rows.
// An advisory lock avoids locking the event row itself.
func (t *postgresTx) LockEventForAdmission(ctx context.Context, eventID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.admission_lock")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID))

	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, eventID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ConsumeTicket conditionally updates an active ticket after an admission
func (t *postgresTx) ConsumeTicket(ctx context.Context, ticketID string, validatedAt time.Time, final bool) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.consume")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.Bool("final", final),
	)

	var query string
	if final {
		query = `
			UPDATE tickets
			SET status = 'used', validated_at = $2, updated_at = NOW()
			WHERE id = $1 AND status = 'active'
		`
	} else {
		// validated_at is set exactly when the status flips to used, so a
		// non-final admission only re-verifies the active state
		query = `
			UPDATE tickets
			SET updated_at = NOW()
			WHERE id = $1 AND status = 'active'
		`
	}

	var result pgconn.CommandTag
	var err error
	if final {
		result, err = t.tx.Exec(ctx, query, ticketID, validatedAt)
	} else {
		result, err = t.tx.Exec(ctx, query, ticketID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyError(err)
	}
	if result.RowsAffected() == 0 {
		// Lost the race to another scan despite the row lock, or the
		// ticket left active between policy and consume
		return domain.ErrAlreadyValidated
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// AppendScanLog appends one audit entry for the attempt
func (t *postgresTx) AppendScanLog(ctx context.Context, log *domain.ScanLog) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.scan_log.append")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket_id", log.TicketID),
		attribute.String("decision", log.Decision.String()),
	)

	query := `
		INSERT INTO scan_logs (
			id, ticket_id, event_id, operator_id, device_id, location,
			scanned_at, decision, rejection_code, request_fingerprint,
			admission_index, claimed_event_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	var operatorID *string
	if log.OperatorID != "" {
		operatorID = &log.OperatorID
	}
	var rejectionCode *string
	if log.RejectionCode != "" {
		code := string(log.RejectionCode)
		rejectionCode = &code
	}
	var admissionIndex *int
	if log.AdmissionIndex > 0 {
		admissionIndex = &log.AdmissionIndex
	}
	var claimedEventID *string
	if log.ClaimedEventID != "" {
		claimedEventID = &log.ClaimedEventID
	}

	_, err := t.tx.Exec(ctx, query,
		log.ID,
		log.TicketID,
		log.EventID,
		operatorID,
		log.DeviceID,
		log.Location,
		log.ScannedAt,
		log.Decision.String(),
		rejectionCode,
		log.RequestFingerprint,
		admissionIndex,
		claimedEventID,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return classifyError(err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
