package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
)

const depositColumns = `d.session_id, d.investor_id, d.amount, d.status, d.hold_tx_id, d.settle_tx_id, d.held_at, d.settled_at`

// SQLiteDepositRepo implements DepositRepo using a SQLite database.
type SQLiteDepositRepo struct {
	db db.DBTX
}

// NewSQLiteDepositRepo creates a new SQLiteDepositRepo.
func NewSQLiteDepositRepo(conn db.DBTX) *SQLiteDepositRepo {
	return &SQLiteDepositRepo{db: conn}
}

func (r *SQLiteDepositRepo) Create(ctx context.Context, d *domain.Deposit) error {
	query := `INSERT INTO deposits (session_id, investor_id, amount, status, hold_tx_id, settle_tx_id, held_at, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		d.SessionID,
		d.InvestorID,
		d.Amount,
		string(d.Status),
		d.HoldTxID,
		d.SettleTxID,
		formatTime(d.HeldAt),
		nullableTimeToString(d.SettledAt, time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting deposit: %w", err)
	}
	return nil
}

func (r *SQLiteDepositRepo) GetBySession(ctx context.Context, sessionID string) (*domain.Deposit, error) {
	query := `SELECT ` + depositColumns + ` FROM deposits d WHERE d.session_id = ?`
	d, err := scanDeposit(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("deposit for session %s: %w", sessionID, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning deposit: %w", err)
	}
	return d, nil
}

// Settle is a conditional update from held, so a refunded deposit can never
// become forfeited or the reverse.
func (r *SQLiteDepositRepo) Settle(ctx context.Context, sessionID string, to domain.DepositStatus, txID string, at time.Time) (bool, error) {
	if to == domain.DepositHeld {
		return false, fmt.Errorf("deposit cannot be settled to %s", to)
	}
	query := `UPDATE deposits SET status = ?, settle_tx_id = ?, settled_at = ?
		WHERE session_id = ? AND status = 'held'`
	res, err := r.db.ExecContext(ctx, query, string(to), txID, formatTime(at), sessionID)
	if err != nil {
		return false, fmt.Errorf("settling deposit for session %s: %w", sessionID, err)
	}
	return rowsChanged(res)
}

func (r *SQLiteDepositRepo) ListHeldForTerminal(ctx context.Context) ([]HeldSettlement, error) {
	query := `SELECT ` + sessionColumns + `, ` + depositColumns + `
		FROM negotiation_sessions s
		LEFT JOIN nda_signatures n ON n.session_id = s.id
		JOIN deposits d ON d.session_id = s.id
		WHERE s.status != 'active' AND d.status = 'held'
		ORDER BY s.closed_at, s.id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing unsettled deposits: %w", err)
	}
	defer rows.Close()

	sessions := &SQLiteSessionRepo{}
	var out []HeldSettlement
	for rows.Next() {
		var sr sessionRow
		var dr depositRow
		err := rows.Scan(
			&sr.s.ID, &sr.s.ProjectID, &sr.s.OwnerID, &sr.s.InvestorID, &sr.status,
			&sr.openedAt, &sr.expiresAt, &sr.closedAt, &sr.s.AdminFee,
			&sr.agreementReached, &sr.s.AgreedAmount, &sr.s.AgreementTerms,
			&sr.s.LeakDetections, &sr.flagged, &sr.createdAt, &sr.updatedAt,
			&sr.ndaSigned,
			&dr.d.SessionID, &dr.d.InvestorID, &dr.d.Amount, &dr.status, &dr.d.HoldTxID, &dr.d.SettleTxID,
			&dr.heldAt, &dr.settledAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning unsettled deposit row: %w", err)
		}
		s, err := sessions.populateSession(&sr)
		if err != nil {
			return nil, err
		}
		d, err := dr.populate()
		if err != nil {
			return nil, err
		}
		out = append(out, HeldSettlement{Session: s, Deposit: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating unsettled deposits: %w", err)
	}
	return out, nil
}

func (r *SQLiteDepositRepo) SumHeld(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM deposits WHERE status = 'held'`).Scan(&total); err != nil {
		return 0, fmt.Errorf("summing held deposits: %w", err)
	}
	return total, nil
}

type depositRow struct {
	d              domain.Deposit
	status, heldAt string
	settledAt      sql.NullString
}

func (row *depositRow) populate() (*domain.Deposit, error) {
	d := row.d
	var err error
	if d.Status, err = domain.ParseDepositStatus(row.status); err != nil {
		return nil, fmt.Errorf("deposit %s: %w", d.SessionID, err)
	}
	if d.HeldAt, err = time.Parse(time.RFC3339, row.heldAt); err != nil {
		return nil, fmt.Errorf("parsing held_at: %w", err)
	}
	d.SettledAt = parseNullableTime(row.settledAt, time.RFC3339)
	return &d, nil
}

func scanDeposit(sc rowScanner) (*domain.Deposit, error) {
	var row depositRow
	err := sc.Scan(&row.d.SessionID, &row.d.InvestorID, &row.d.Amount, &row.status,
		&row.d.HoldTxID, &row.d.SettleTxID, &row.heldAt, &row.settledAt)
	if err != nil {
		return nil, err
	}
	return row.populate()
}
