package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
)

// SQLiteNDARepo is the reference NDA store. It only records that a session's
// investor signed; document handling lives elsewhere.
type SQLiteNDARepo struct {
	db db.DBTX
}

// NewSQLiteNDARepo creates a new SQLiteNDARepo.
func NewSQLiteNDARepo(conn db.DBTX) *SQLiteNDARepo {
	return &SQLiteNDARepo{db: conn}
}

func (r *SQLiteNDARepo) MarkSigned(ctx context.Context, sessionID, signerID string, at time.Time) (bool, error) {
	query := `INSERT OR IGNORE INTO nda_signatures (session_id, signer_id, signed_at) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, sessionID, signerID, formatTime(at))
	if err != nil {
		return false, fmt.Errorf("recording nda signature for session %s: %w", sessionID, err)
	}
	return rowsChanged(res)
}

func (r *SQLiteNDARepo) IsSigned(ctx context.Context, sessionID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nda_signatures WHERE session_id = ?`, sessionID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking nda signature for session %s: %w", sessionID, err)
	}
	return n > 0, nil
}
