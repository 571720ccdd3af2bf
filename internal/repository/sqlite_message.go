package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
)

// SQLiteMessageRepo stores the append-only message log.
type SQLiteMessageRepo struct {
	db db.DBTX
}

// NewSQLiteMessageRepo creates a new SQLiteMessageRepo.
func NewSQLiteMessageRepo(conn db.DBTX) *SQLiteMessageRepo {
	return &SQLiteMessageRepo{db: conn}
}

func (r *SQLiteMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	query := `INSERT INTO messages (id, session_id, seq, sender_id, content, status, matches, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.SessionID,
		m.Seq,
		m.SenderID,
		m.Content,
		string(m.Status),
		joinMatches(m.Matches),
		formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// ListBySession returns the log in append order.
func (r *SQLiteMessageRepo) ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	query := `SELECT id, session_id, seq, sender_id, content, status, matches, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	var messages []*domain.Message
	for rows.Next() {
		var m domain.Message
		var status, matches, createdAtStr string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &m.SenderID, &m.Content, &status, &matches, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		if m.Status, err = domain.ParseMessageStatus(status); err != nil {
			return nil, fmt.Errorf("message %s: %w", m.ID, err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		m.Matches = splitMatches(matches)
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}
