package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
)

// SQLiteFlagRepo implements FlagRepo using a SQLite database.
type SQLiteFlagRepo struct {
	db db.DBTX
}

// NewSQLiteFlagRepo creates a new SQLiteFlagRepo.
func NewSQLiteFlagRepo(conn db.DBTX) *SQLiteFlagRepo {
	return &SQLiteFlagRepo{db: conn}
}

func (r *SQLiteFlagRepo) Create(ctx context.Context, f *domain.AdminFlag) (bool, error) {
	query := `INSERT OR IGNORE INTO admin_flags (id, session_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, f.ID, f.SessionID, string(f.Kind), f.Detail, formatTime(f.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("inserting admin flag: %w", err)
	}
	return rowsChanged(res)
}

func (r *SQLiteFlagRepo) List(ctx context.Context) ([]*domain.AdminFlag, error) {
	return r.list(ctx, `SELECT id, session_id, kind, detail, created_at FROM admin_flags ORDER BY created_at DESC, id`)
}

func (r *SQLiteFlagRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.AdminFlag, error) {
	return r.list(ctx, `SELECT id, session_id, kind, detail, created_at FROM admin_flags
		WHERE session_id = ? ORDER BY created_at, id`, sessionID)
}

func (r *SQLiteFlagRepo) list(ctx context.Context, query string, args ...any) ([]*domain.AdminFlag, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing admin flags: %w", err)
	}
	defer rows.Close()

	var flags []*domain.AdminFlag
	for rows.Next() {
		var f domain.AdminFlag
		var kind, createdAtStr string
		if err := rows.Scan(&f.ID, &f.SessionID, &kind, &f.Detail, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning admin flag row: %w", err)
		}
		f.Kind = domain.FlagKind(kind)
		if f.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		flags = append(flags, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating admin flags: %w", err)
	}
	return flags, nil
}

// SQLiteAlertRepo implements AlertRepo using a SQLite database.
type SQLiteAlertRepo struct {
	db db.DBTX
}

// NewSQLiteAlertRepo creates a new SQLiteAlertRepo.
func NewSQLiteAlertRepo(conn db.DBTX) *SQLiteAlertRepo {
	return &SQLiteAlertRepo{db: conn}
}

func (r *SQLiteAlertRepo) Create(ctx context.Context, a *domain.SettlementAlert) error {
	query := `INSERT INTO settlement_alerts (id, session_id, op, attempts, last_error, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		a.ID,
		a.SessionID,
		string(a.Op),
		a.Attempts,
		a.LastError,
		formatTime(a.CreatedAt),
		nullableTimeToString(a.ResolvedAt, time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting settlement alert: %w", err)
	}
	return nil
}

func (r *SQLiteAlertRepo) List(ctx context.Context, includeResolved bool) ([]*domain.SettlementAlert, error) {
	query := `SELECT id, session_id, op, attempts, last_error, created_at, resolved_at FROM settlement_alerts`
	if !includeResolved {
		query += ` WHERE resolved_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id`
	return r.list(ctx, query)
}

func (r *SQLiteAlertRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.SettlementAlert, error) {
	return r.list(ctx, `SELECT id, session_id, op, attempts, last_error, created_at, resolved_at
		FROM settlement_alerts WHERE session_id = ? ORDER BY created_at, id`, sessionID)
}

func (r *SQLiteAlertRepo) ResolveBySession(ctx context.Context, sessionID string, at time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE settlement_alerts SET resolved_at = ?
		WHERE session_id = ? AND resolved_at IS NULL`, formatTime(at), sessionID)
	if err != nil {
		return 0, fmt.Errorf("resolving settlement alerts for session %s: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteAlertRepo) list(ctx context.Context, query string, args ...any) ([]*domain.SettlementAlert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing settlement alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*domain.SettlementAlert
	for rows.Next() {
		var a domain.SettlementAlert
		var op, createdAtStr string
		var resolvedAt sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &op, &a.Attempts, &a.LastError, &createdAtStr, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scanning settlement alert row: %w", err)
		}
		a.Op = domain.SettlementOp(op)
		if a.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		a.ResolvedAt = parseNullableTime(resolvedAt, time.RFC3339)
		alerts = append(alerts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating settlement alerts: %w", err)
	}
	return alerts, nil
}
