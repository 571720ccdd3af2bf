package domain

import "time"

// NegotiationSession is one time-boxed, deposit-backed negotiation between a
// project owner and an investor.
type NegotiationSession struct {
	ID         string
	ProjectID  string
	OwnerID    string
	InvestorID string
	Status     SessionStatus

	OpenedAt  time.Time
	ExpiresAt time.Time
	ClosedAt  *time.Time

	NDASigned bool
	AdminFee  int64

	// Outcome, populated only after acceptance.
	AgreementReached bool
	AgreedAmount     int64
	AgreementTerms   string

	LeakDetections int
	Flagged        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsParty reports whether userID is the owner or the investor.
func (s *NegotiationSession) IsParty(userID string) bool {
	return userID != "" && (userID == s.OwnerID || userID == s.InvestorID)
}

// CounterParty returns the other side of the session for a party.
func (s *NegotiationSession) CounterParty(userID string) string {
	if userID == s.OwnerID {
		return s.InvestorID
	}
	return s.OwnerID
}

// DeadlinePassed reports whether the negotiation window has closed at now,
// regardless of whether the sweep has run yet.
func (s *NegotiationSession) DeadlinePassed(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// HasFullAccess is true only once the NDA is signed and the session ended in acceptance.
func (s *NegotiationSession) HasFullAccess() bool {
	return s.NDASigned && s.Status == SessionAccepted
}

// AccessTier resolves the disclosure tier: signing the NDA unlocks the full
// tier while negotiating, and any rejecting terminal state revokes it.
func (s *NegotiationSession) AccessTier() AccessTier {
	switch {
	case s.Status.IsRejecting():
		return TierNone
	case s.NDASigned && (s.Status == SessionActive || s.Status == SessionAccepted):
		return TierFull
	case s.Status == SessionActive || s.Status == SessionAccepted:
		return TierPreview
	default:
		return TierNone
	}
}

// DepositOutcome returns the deposit status a session status settles to.
func DepositOutcome(s SessionStatus) DepositStatus {
	switch {
	case s == SessionAccepted:
		return DepositForfeited
	case s.IsRejecting():
		return DepositRefunded
	default:
		return DepositHeld
	}
}
