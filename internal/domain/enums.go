package domain

import "fmt"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionAccepted  SessionStatus = "accepted"
	SessionRejected  SessionStatus = "rejected"
	SessionCancelled SessionStatus = "cancelled"
	SessionExpired   SessionStatus = "expired"
)

// IsTerminal reports whether no further transition may be applied.
func (s SessionStatus) IsTerminal() bool {
	return s != SessionActive
}

// IsRejecting reports whether the session ended without a deal.
func (s SessionStatus) IsRejecting() bool {
	return s == SessionRejected || s == SessionCancelled || s == SessionExpired
}

// ParseSessionStatus validates a raw status string at the storage/transport boundary.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch s := SessionStatus(raw); s {
	case SessionActive, SessionAccepted, SessionRejected, SessionCancelled, SessionExpired:
		return s, nil
	}
	return "", fmt.Errorf("unknown session status %q", raw)
}

type DepositStatus string

const (
	DepositHeld      DepositStatus = "held"
	DepositRefunded  DepositStatus = "refunded"
	DepositForfeited DepositStatus = "forfeited"
)

// ParseDepositStatus validates a raw deposit status string.
func ParseDepositStatus(raw string) (DepositStatus, error) {
	switch s := DepositStatus(raw); s {
	case DepositHeld, DepositRefunded, DepositForfeited:
		return s, nil
	}
	return "", fmt.Errorf("unknown deposit status %q", raw)
}

type MessageStatus string

const (
	MessageSent    MessageStatus = "sent"
	MessageBlocked MessageStatus = "blocked"
)

// ParseMessageStatus validates a raw message status string.
func ParseMessageStatus(raw string) (MessageStatus, error) {
	switch s := MessageStatus(raw); s {
	case MessageSent, MessageBlocked:
		return s, nil
	}
	return "", fmt.Errorf("unknown message status %q", raw)
}

// AccessTier is the disclosure level a session currently grants.
type AccessTier string

const (
	TierNone    AccessTier = "none"
	TierPreview AccessTier = "preview"
	TierFull    AccessTier = "full"
)

type EventType string

const (
	EventSessionOpened    EventType = "session.opened"
	EventSessionAccepted  EventType = "session.accepted"
	EventSessionRejected  EventType = "session.rejected"
	EventSessionCancelled EventType = "session.cancelled"
	EventSessionExpired   EventType = "session.expired"
	EventSessionFlagged   EventType = "session.flagged"
	EventMessageBlocked   EventType = "message.blocked"
	EventSettlementStuck  EventType = "settlement.stuck"
)

type FlagKind string

const (
	FlagContactLeak FlagKind = "contact_leak"
)

// SettlementOp names the ledger movement that settles a deposit.
type SettlementOp string

const (
	SettleRefund  SettlementOp = "refund"
	SettleForfeit SettlementOp = "forfeit"
)

// TerminalEvent maps a terminal status to the event announcing it.
func TerminalEvent(s SessionStatus) EventType {
	switch s {
	case SessionAccepted:
		return EventSessionAccepted
	case SessionRejected:
		return EventSessionRejected
	case SessionCancelled:
		return EventSessionCancelled
	case SessionExpired:
		return EventSessionExpired
	}
	return ""
}
