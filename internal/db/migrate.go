package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent so the whole
// list is replayed on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillMessageSeq(db); err != nil {
		return fmt.Errorf("backfilling message sequence state: %w", err)
	}
	return nil
}

// migrateBackfillMessageSeq repairs next_message_seq for sessions whose
// counter fell behind the persisted message log.
func migrateBackfillMessageSeq(db *sql.DB) error {
	_, err := db.Exec(`UPDATE negotiation_sessions
		SET next_message_seq = (
			SELECT COALESCE(MAX(m.seq), 0) + 1 FROM messages m WHERE m.session_id = negotiation_sessions.id
		)
		WHERE next_message_seq <= (
			SELECT COALESCE(MAX(m.seq), 0) FROM messages m WHERE m.session_id = negotiation_sessions.id
		)`)
	return err
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		title        TEXT NOT NULL,
		funding_goal INTEGER NOT NULL DEFAULT 0 CHECK(funding_goal >= 0),
		created_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS project_fields (
		project_id   TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		value        TEXT NOT NULL DEFAULT '',
		confidential INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS negotiation_sessions (
		id                TEXT PRIMARY KEY,
		project_id        TEXT NOT NULL REFERENCES projects(id),
		owner_id          TEXT NOT NULL,
		investor_id       TEXT NOT NULL,
		status            TEXT NOT NULL DEFAULT 'active'
		                  CHECK(status IN ('active','accepted','rejected','cancelled','expired')),
		opened_at         TEXT NOT NULL,
		expires_at        TEXT NOT NULL,
		closed_at         TEXT,
		admin_fee         INTEGER NOT NULL DEFAULT 0 CHECK(admin_fee >= 0),
		agreement_reached INTEGER NOT NULL DEFAULT 0,
		agreed_amount     INTEGER NOT NULL DEFAULT 0,
		agreement_terms   TEXT NOT NULL DEFAULT '',
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL
	)`,

	`ALTER TABLE negotiation_sessions ADD COLUMN leak_detections INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE negotiation_sessions ADD COLUMN flagged INTEGER NOT NULL DEFAULT 0`,
	`ALTER TABLE negotiation_sessions ADD COLUMN next_message_seq INTEGER NOT NULL DEFAULT 1`,

	// At most one active negotiation per (project, investor).
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
		ON negotiation_sessions(project_id, investor_id) WHERE status = 'active'`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_status_expires ON negotiation_sessions(status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_project ON negotiation_sessions(project_id)`,

	`CREATE TABLE IF NOT EXISTS deposits (
		session_id   TEXT PRIMARY KEY REFERENCES negotiation_sessions(id),
		investor_id  TEXT NOT NULL,
		amount       INTEGER NOT NULL CHECK(amount > 0),
		status       TEXT NOT NULL DEFAULT 'held'
		             CHECK(status IN ('held','refunded','forfeited')),
		hold_tx_id   TEXT NOT NULL DEFAULT '',
		settle_tx_id TEXT NOT NULL DEFAULT '',
		held_at      TEXT NOT NULL,
		settled_at   TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_deposits_status ON deposits(status)`,

	`CREATE TABLE IF NOT EXISTS nda_signatures (
		session_id TEXT PRIMARY KEY REFERENCES negotiation_sessions(id),
		signer_id  TEXT NOT NULL,
		signed_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES negotiation_sessions(id),
		seq        INTEGER NOT NULL,
		sender_id  TEXT NOT NULL,
		content    TEXT NOT NULL,
		status     TEXT NOT NULL CHECK(status IN ('sent','blocked')),
		matches    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(session_id, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS admin_flags (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES negotiation_sessions(id),
		kind       TEXT NOT NULL,
		detail     TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		UNIQUE(session_id, kind)
	)`,

	`CREATE TABLE IF NOT EXISTS settlement_alerts (
		id          TEXT PRIMARY KEY,
		session_id  TEXT NOT NULL REFERENCES negotiation_sessions(id),
		op          TEXT NOT NULL CHECK(op IN ('refund','forfeit')),
		attempts    INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		resolved_at TEXT
	)`,

	`CREATE INDEX IF NOT EXISTS idx_alerts_session ON settlement_alerts(session_id)`,

	`CREATE TABLE IF NOT EXISTS wallet_accounts (
		user_id    TEXT PRIMARY KEY,
		balance    INTEGER NOT NULL DEFAULT 0 CHECK(balance >= 0),
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES wallet_accounts(user_id),
		amount     INTEGER NOT NULL CHECK(amount > 0),
		direction  TEXT NOT NULL CHECK(direction IN ('debit','credit')),
		reason     TEXT NOT NULL,
		reference  TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, created_at)`,
}
