package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
)

const sessionColumns = `s.id, s.project_id, s.owner_id, s.investor_id, s.status,
	s.opened_at, s.expires_at, s.closed_at, s.admin_fee,
	s.agreement_reached, s.agreed_amount, s.agreement_terms,
	s.leak_detections, s.flagged, s.created_at, s.updated_at,
	n.session_id IS NOT NULL`

const sessionFrom = `FROM negotiation_sessions s LEFT JOIN nda_signatures n ON n.session_id = s.id`

// SQLiteSessionRepo implements SessionRepo using a SQLite database.
type SQLiteSessionRepo struct {
	db db.DBTX
}

// NewSQLiteSessionRepo creates a new SQLiteSessionRepo.
func NewSQLiteSessionRepo(conn db.DBTX) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: conn}
}

func (r *SQLiteSessionRepo) Create(ctx context.Context, s *domain.NegotiationSession) error {
	query := `INSERT INTO negotiation_sessions
		(id, project_id, owner_id, investor_id, status, opened_at, expires_at, closed_at, admin_fee,
		 agreement_reached, agreed_amount, agreement_terms, leak_detections, flagged, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.ProjectID,
		s.OwnerID,
		s.InvestorID,
		string(s.Status),
		formatTime(s.OpenedAt),
		formatTime(s.ExpiresAt),
		nullableTimeToString(s.ClosedAt, time.RFC3339),
		s.AdminFee,
		boolToInt(s.AgreementReached),
		s.AgreedAmount,
		s.AgreementTerms,
		s.LeakDetections,
		boolToInt(s.Flagged),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err, "negotiation_sessions.project_id") {
			return fmt.Errorf("inserting session: %w", domain.ErrDuplicateActiveNegotiation)
		}
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepo) GetByID(ctx context.Context, id string) (*domain.NegotiationSession, error) {
	query := `SELECT ` + sessionColumns + ` ` + sessionFrom + ` WHERE s.id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteSessionRepo) FindActive(ctx context.Context, projectID, investorID string) (*domain.NegotiationSession, error) {
	query := `SELECT ` + sessionColumns + ` ` + sessionFrom + `
		WHERE s.project_id = ? AND s.investor_id = ? AND s.status = 'active'`
	return r.scanSession(r.db.QueryRowContext(ctx, query, projectID, investorID))
}

func (r *SQLiteSessionRepo) Transition(ctx context.Context, id string, to domain.SessionStatus, at time.Time) (bool, error) {
	if !to.IsTerminal() {
		return false, fmt.Errorf("transition target %s is not terminal", to)
	}
	query := `UPDATE negotiation_sessions SET status = ?, closed_at = ?, updated_at = ?
		WHERE id = ? AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, string(to), formatTime(at), formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("transitioning session %s to %s: %w", id, to, err)
	}
	return rowsChanged(res)
}

func (r *SQLiteSessionRepo) RecordAgreement(ctx context.Context, id string, amount int64, terms string, at time.Time) (bool, error) {
	query := `UPDATE negotiation_sessions
		SET agreement_reached = 1, agreed_amount = ?, agreement_terms = ?, updated_at = ?
		WHERE id = ? AND status = 'accepted' AND agreement_reached = 0`
	res, err := r.db.ExecContext(ctx, query, amount, terms, formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("recording agreement for session %s: %w", id, err)
	}
	return rowsChanged(res)
}

func (r *SQLiteSessionRepo) IncrementLeakDetections(ctx context.Context, id string, at time.Time) (int, error) {
	query := `UPDATE negotiation_sessions
		SET leak_detections = leak_detections + 1, updated_at = ?
		WHERE id = ?
		RETURNING leak_detections`
	var n int
	if err := r.db.QueryRowContext(ctx, query, formatTime(at), id).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("incrementing leak detections for session %s: %w", id, err)
	}
	return n, nil
}

func (r *SQLiteSessionRepo) MarkFlagged(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE negotiation_sessions SET flagged = 1, updated_at = ? WHERE id = ? AND flagged = 0`
	res, err := r.db.ExecContext(ctx, query, formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("flagging session %s: %w", id, err)
	}
	return rowsChanged(res)
}

// NextMessageSeq allocates the next per-session message sequence number.
// Allocation is atomic under concurrent writers.
func (r *SQLiteSessionRepo) NextMessageSeq(ctx context.Context, id string) (int, error) {
	query := `UPDATE negotiation_sessions
		SET next_message_seq = next_message_seq + 1
		WHERE id = ?
		RETURNING next_message_seq - 1`
	var next int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&next); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return 0, fmt.Errorf("allocating message seq for session %s: %w", id, err)
	}
	return next, nil
}

func (r *SQLiteSessionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.NegotiationSession, error) {
	query := `SELECT ` + sessionColumns + ` ` + sessionFrom + `
		WHERE s.status = 'active' AND s.expires_at <= ?
		ORDER BY s.expires_at, s.id`
	rows, err := r.db.QueryContext(ctx, query, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("listing expired sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

func (r *SQLiteSessionRepo) List(ctx context.Context, f SessionFilter) ([]*domain.NegotiationSession, error) {
	var where []string
	var args []any
	if f.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, string(f.Status))
	}
	if f.ProjectID != "" {
		where = append(where, "s.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if f.PartyID != "" {
		where = append(where, "(s.owner_id = ? OR s.investor_id = ?)")
		args = append(args, f.PartyID, f.PartyID)
	}

	query := `SELECT ` + sessionColumns + ` ` + sessionFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY s.opened_at DESC, s.id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return r.scanSessions(rows)
}

func (r *SQLiteSessionRepo) CountByStatus(ctx context.Context) (map[domain.SessionStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM negotiation_sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting sessions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SessionStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[domain.SessionStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}
	return counts, nil
}

func (r *SQLiteSessionRepo) SumAdminFees(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(admin_fee), 0) FROM negotiation_sessions`).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing admin fees: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// sessionRow holds the raw column values before parsing.
type sessionRow struct {
	s domain.NegotiationSession

	status, openedAt, expiresAt, createdAt, updatedAt string

	closedAt sql.NullString

	agreementReached, flagged, ndaSigned int
}

func (row *sessionRow) scan(sc rowScanner) error {
	return sc.Scan(
		&row.s.ID, &row.s.ProjectID, &row.s.OwnerID, &row.s.InvestorID, &row.status,
		&row.openedAt, &row.expiresAt, &row.closedAt, &row.s.AdminFee,
		&row.agreementReached, &row.s.AgreedAmount, &row.s.AgreementTerms,
		&row.s.LeakDetections, &row.flagged, &row.createdAt, &row.updatedAt,
		&row.ndaSigned,
	)
}

// scanSession scans a single session from a *sql.Row.
func (r *SQLiteSessionRepo) scanSession(sc *sql.Row) (*domain.NegotiationSession, error) {
	var row sessionRow
	if err := row.scan(sc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("negotiation session: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning negotiation session: %w", err)
	}
	return r.populateSession(&row)
}

// scanSessions scans multiple sessions from *sql.Rows.
func (r *SQLiteSessionRepo) scanSessions(rows *sql.Rows) ([]*domain.NegotiationSession, error) {
	var sessions []*domain.NegotiationSession
	for rows.Next() {
		var row sessionRow
		if err := row.scan(rows); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		s, err := r.populateSession(&row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// populateSession fills in parsed fields after scanning raw strings.
func (r *SQLiteSessionRepo) populateSession(row *sessionRow) (*domain.NegotiationSession, error) {
	s := row.s
	var err error
	if s.Status, err = domain.ParseSessionStatus(row.status); err != nil {
		return nil, fmt.Errorf("session %s: %w", s.ID, err)
	}
	if s.OpenedAt, err = time.Parse(time.RFC3339, row.openedAt); err != nil {
		return nil, fmt.Errorf("parsing opened_at: %w", err)
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339, row.expiresAt); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339, row.createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339, row.updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	s.ClosedAt = parseNullableTime(row.closedAt, time.RFC3339)
	s.AgreementReached = intToBool(row.agreementReached)
	s.Flagged = intToBool(row.flagged)
	s.NDASigned = intToBool(row.ndaSigned)
	return &s, nil
}

func rowsChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}
