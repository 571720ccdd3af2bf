package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/google/uuid"
)

// SQLiteLedger keeps balances in wallet_accounts and an append-only
// ledger_entries journal with a unique reference per movement.
type SQLiteLedger struct {
	uow   db.UnitOfWork
	conn  db.DBTX
	clock func() time.Time
}

// NewSQLiteLedger creates a ledger backed by the given database.
func NewSQLiteLedger(database *sql.DB, clock func() time.Time) *SQLiteLedger {
	if clock == nil {
		clock = time.Now
	}
	return &SQLiteLedger{uow: db.NewSQLiteUnitOfWork(database), conn: database, clock: clock}
}

func (l *SQLiteLedger) Debit(ctx context.Context, userID string, amount int64, reason, reference string) (string, error) {
	return l.move(ctx, userID, amount, DirectionDebit, reason, reference)
}

func (l *SQLiteLedger) Credit(ctx context.Context, userID string, amount int64, reason, reference string) (string, error) {
	return l.move(ctx, userID, amount, DirectionCredit, reason, reference)
}

// Balance returns the current balance; unknown accounts hold zero.
func (l *SQLiteLedger) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := l.conn.QueryRowContext(ctx, `SELECT balance FROM wallet_accounts WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading balance for %s: %w", userID, err)
	}
	return balance, nil
}

// Entries returns a user's journal, oldest first.
func (l *SQLiteLedger) Entries(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := l.conn.QueryContext(ctx, `SELECT id, user_id, amount, direction, reason, reference, created_at
		FROM ledger_entries WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var direction, createdAtStr string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &direction, &e.Reason, &e.Reference, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning ledger entry: %w", err)
		}
		e.Direction = Direction(direction)
		if e.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger entries: %w", err)
	}
	return entries, nil
}

func (l *SQLiteLedger) move(ctx context.Context, userID string, amount int64, dir Direction, reason, reference string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("ledger %s of %d: amount must be positive", dir, amount)
	}
	if reference == "" {
		return "", fmt.Errorf("ledger %s: reference is required", dir)
	}

	var txID string
	err := l.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		existing, err := entryByReference(ctx, tx, reference)
		if err != nil {
			return err
		}
		if existing != "" {
			txID = existing
			return nil
		}

		now := l.clock().UTC().Format(time.RFC3339)
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO wallet_accounts (user_id, balance, updated_at)
			VALUES (?, 0, ?)`, userID, now); err != nil {
			return fmt.Errorf("opening account %s: %w", userID, err)
		}

		var res sql.Result
		if dir == DirectionDebit {
			res, err = tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance - ?, updated_at = ?
				WHERE user_id = ? AND balance >= ?`, amount, now, userID, amount)
		} else {
			res, err = tx.ExecContext(ctx, `UPDATE wallet_accounts SET balance = balance + ?, updated_at = ?
				WHERE user_id = ?`, amount, now, userID)
		}
		if err != nil {
			return fmt.Errorf("updating balance for %s: %w", userID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("reading rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("debiting %d from %s: %w", amount, userID, ErrInsufficientFunds)
		}

		txID = uuid.New().String()
		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_entries (id, user_id, amount, direction, reason, reference, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, txID, userID, amount, string(dir), reason, reference, now); err != nil {
			return fmt.Errorf("inserting ledger entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return txID, nil
}

func entryByReference(ctx context.Context, tx db.DBTX, reference string) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM ledger_entries WHERE reference = ?`, reference).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("looking up ledger reference %s: %w", reference, err)
	}
	return id, nil
}
