package service

import (
	"context"
	"fmt"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
)

// Escrow is the deposit collaborator the lifecycle drives.
type Escrow interface {
	Hold(ctx context.Context, sessionID, investorID string, amount int64) (string, error)
	ReleaseHold(ctx context.Context, sessionID, investorID string, amount int64) error
	ChargeFee(ctx context.Context, sessionID, investorID string, fee int64) (string, error)
	ReverseFee(ctx context.Context, sessionID, investorID string, fee int64) error
	CollectFee(ctx context.Context, sessionID string, fee int64) error
	Settle(ctx context.Context, s *domain.NegotiationSession) error
}

// lifecycle performs terminal transitions. Every path that closes a
// session, whether a party action, lazy expiry or the sweep, goes through close.
type lifecycle struct {
	sessions repository.SessionRepo
	escrow   Escrow
	rt       *runtime
}

// close moves an active session to a terminal status, then settles the
// deposit and announces the outcome. It reports false without side effects
// when another caller closed the session first. A settlement failure is
// returned after the transition has been committed.
func (l *lifecycle) close(ctx context.Context, s *domain.NegotiationSession, to domain.SessionStatus) (bool, error) {
	now := l.rt.now()
	changed, err := l.sessions.Transition(ctx, s.ID, to, now)
	if err != nil {
		return false, fmt.Errorf("closing session %s as %s: %w", s.ID, to, err)
	}
	if !changed {
		return false, nil
	}
	s.Status = to
	s.ClosedAt = &now
	s.UpdatedAt = now

	settleErr := l.escrow.Settle(ctx, s)
	data := map[string]any{
		"deposit_status":  string(domain.DepositOutcome(to)),
		"deposit_settled": settleErr == nil,
	}
	l.rt.emit(ctx, domain.TerminalEvent(to), s, parties(s), data)
	if settleErr != nil {
		l.rt.logger.ErrorContext(ctx, "deposit settlement failed after close",
			"session_id", s.ID, "status", string(to), "error", settleErr)
		return true, settleErr
	}
	return true, nil
}

// expireIfDue writes an overdue active session through to expired. It
// reports whether the session is now expired.
func (l *lifecycle) expireIfDue(ctx context.Context, s *domain.NegotiationSession) (bool, error) {
	if s.Status != domain.SessionActive || !s.DeadlinePassed(l.rt.now()) {
		return s.Status == domain.SessionExpired, nil
	}
	changed, err := l.close(ctx, s, domain.SessionExpired)
	if err != nil && !changed {
		return false, err
	}
	if !changed {
		// Someone else closed it; report what they left behind.
		fresh, gerr := l.sessions.GetByID(ctx, s.ID)
		if gerr != nil {
			return false, gerr
		}
		*s = *fresh
		return s.Status == domain.SessionExpired, nil
	}
	return true, nil
}

// requireActive enforces the shared precondition of party actions: expired
// sessions report ExpiredSession, other terminal ones InvalidTransition, and
// an overdue active session is expired on the spot.
func (l *lifecycle) requireActive(ctx context.Context, s *domain.NegotiationSession, action string) error {
	if s.Status == domain.SessionExpired {
		return expiredSession(s)
	}
	if s.Status.IsTerminal() {
		return invalidTransition(s, action)
	}
	expired, err := l.expireIfDue(ctx, s)
	if err != nil {
		return err
	}
	if expired {
		return expiredSession(s)
	}
	if s.Status.IsTerminal() {
		return invalidTransition(s, action)
	}
	return nil
}
