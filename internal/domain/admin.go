package domain

import "time"

// AdminFlag escalates a session to human review.
type AdminFlag struct {
	ID        string
	SessionID string
	Kind      FlagKind
	Detail    string
	CreatedAt time.Time
}

// SettlementAlert records a refund or forfeit whose ledger call kept failing.
type SettlementAlert struct {
	ID         string
	SessionID  string
	Op         SettlementOp
	Attempts   int
	LastError  string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
