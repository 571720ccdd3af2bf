// Package escrow holds, refunds and forfeits negotiation deposits against the
// wallet ledger. It is the only component that moves money for a session.
package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/events"
	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

type Deposits interface {
	GetBySession(ctx context.Context, sessionID string) (*domain.Deposit, error)
	Settle(ctx context.Context, sessionID string, to domain.DepositStatus, txID string, at time.Time) (bool, error)
}

type Alerts interface {
	Create(ctx context.Context, a *domain.SettlementAlert) error
	ResolveBySession(ctx context.Context, sessionID string, at time.Time) (int, error)
}

// Config controls ledger retries and where forfeited money goes.
type Config struct {
	PlatformAccount string
	MaxAttempts     uint
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

func DefaultConfig() Config {
	return Config{
		PlatformAccount: "platform",
		MaxAttempts:     5,
		InitialBackoff:  200 * time.Millisecond,
		MaxBackoff:      5 * time.Second,
	}
}

type Escrow struct {
	ledger    ledger.Ledger
	deposits  Deposits
	alerts    Alerts
	publisher events.Publisher
	cfg       Config
	clock     func() time.Time
	newID     func() string
	logger    *slog.Logger
}

type Option func(*Escrow)

func WithClock(clock func() time.Time) Option {
	return func(e *Escrow) { e.clock = clock }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Escrow) { e.newID = newID }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Escrow) { e.logger = logger }
}

func New(l ledger.Ledger, deposits Deposits, alerts Alerts, publisher events.Publisher, cfg Config, opts ...Option) *Escrow {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.PlatformAccount == "" {
		cfg.PlatformAccount = DefaultConfig().PlatformAccount
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	e := &Escrow{
		ledger:    l,
		deposits:  deposits,
		alerts:    alerts,
		publisher: publisher,
		cfg:       cfg,
		clock:     time.Now,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Escrow) PlatformAccount() string {
	return e.cfg.PlatformAccount
}

// Hold debits the deposit from the investor and returns the ledger tx id.
// An insufficient balance fails with domain.ErrInsufficientDepositFunds.
func (e *Escrow) Hold(ctx context.Context, sessionID, investorID string, amount int64) (string, error) {
	return e.debit(ctx, investorID, amount, ledger.ReasonDepositHold, sessionID)
}

// ReleaseHold returns a hold whose session was never created.
func (e *Escrow) ReleaseHold(ctx context.Context, sessionID, investorID string, amount int64) error {
	_, err := e.credit(ctx, investorID, amount, ledger.ReasonHoldReversal, sessionID)
	return err
}

// ChargeFee debits the non-refundable administrative fee.
func (e *Escrow) ChargeFee(ctx context.Context, sessionID, investorID string, fee int64) (string, error) {
	if fee <= 0 {
		return "", nil
	}
	return e.debit(ctx, investorID, fee, ledger.ReasonNegotiationFee, sessionID)
}

// ReverseFee returns a fee charged for an open that did not complete.
func (e *Escrow) ReverseFee(ctx context.Context, sessionID, investorID string, fee int64) error {
	if fee <= 0 {
		return nil
	}
	_, err := e.credit(ctx, investorID, fee, ledger.ReasonFeeReversal, sessionID)
	return err
}

// CollectFee credits a charged fee to the platform account.
func (e *Escrow) CollectFee(ctx context.Context, sessionID string, fee int64) error {
	if fee <= 0 {
		return nil
	}
	_, err := e.credit(ctx, e.cfg.PlatformAccount, fee, ledger.ReasonFeeIncome, sessionID)
	return err
}

// Refund returns a held deposit to the investor.
func (e *Escrow) Refund(ctx context.Context, s *domain.NegotiationSession) error {
	return e.settle(ctx, s, domain.DepositRefunded)
}

// Forfeit transfers a held deposit to the platform account.
func (e *Escrow) Forfeit(ctx context.Context, s *domain.NegotiationSession) error {
	return e.settle(ctx, s, domain.DepositForfeited)
}

// Settle applies the deposit outcome implied by the session's status.
func (e *Escrow) Settle(ctx context.Context, s *domain.NegotiationSession) error {
	switch domain.DepositOutcome(s.Status) {
	case domain.DepositForfeited:
		return e.Forfeit(ctx, s)
	case domain.DepositRefunded:
		return e.Refund(ctx, s)
	}
	return fmt.Errorf("session %s is %s: %w", s.ID, s.Status, domain.ErrInvalidTransition)
}

func (e *Escrow) settle(ctx context.Context, s *domain.NegotiationSession, to domain.DepositStatus) error {
	d, err := e.deposits.GetBySession(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("loading deposit: %w", err)
	}
	if d.Status == to {
		return nil
	}
	if d.IsSettled() {
		return domain.WithMetadata(domain.CodeInvalidTransition,
			fmt.Sprintf("deposit for session %s is already %s", s.ID, d.Status),
			map[string]string{"session_id": s.ID, "deposit_status": string(d.Status)})
	}

	op, account, reason := domain.SettleRefund, d.InvestorID, ledger.ReasonDepositRefund
	if to == domain.DepositForfeited {
		op, account, reason = domain.SettleForfeit, e.cfg.PlatformAccount, ledger.ReasonDepositForfeit
	}

	attempts := 0
	txID, err := e.retry(ctx, func() (string, error) {
		attempts++
		return e.ledger.Credit(ctx, account, d.Amount, reason, reference(reason, s.ID))
	})
	if err != nil {
		e.raiseAlert(ctx, s, op, attempts, err)
		return domain.Wrap(domain.CodeSettlementFailed,
			fmt.Sprintf("%s of deposit for session %s failed after %d attempts", op, s.ID, attempts), err)
	}

	now := e.clock().UTC()
	changed, err := e.deposits.Settle(ctx, s.ID, to, txID, now)
	if err != nil {
		return fmt.Errorf("recording deposit %s: %w", to, err)
	}
	if changed {
		if n, err := e.alerts.ResolveBySession(ctx, s.ID, now); err != nil {
			e.logger.WarnContext(ctx, "resolving settlement alerts failed", "session_id", s.ID, "error", err)
		} else if n > 0 {
			e.logger.InfoContext(ctx, "settlement recovered", "session_id", s.ID, "op", string(op), "alerts_resolved", n)
		}
	}
	return nil
}

func (e *Escrow) raiseAlert(ctx context.Context, s *domain.NegotiationSession, op domain.SettlementOp, attempts int, cause error) {
	now := e.clock().UTC()
	alert := &domain.SettlementAlert{
		ID:        e.newID(),
		SessionID: s.ID,
		Op:        op,
		Attempts:  attempts,
		LastError: cause.Error(),
		CreatedAt: now,
	}
	e.logger.ErrorContext(ctx, "deposit settlement stuck",
		"session_id", s.ID, "op", string(op), "attempts", attempts, "error", cause)
	if err := e.alerts.Create(ctx, alert); err != nil {
		e.logger.ErrorContext(ctx, "recording settlement alert failed", "session_id", s.ID, "error", err)
	}
	event := domain.Event{
		ID:         e.newID(),
		Type:       domain.EventSettlementStuck,
		SessionID:  s.ID,
		ProjectID:  s.ProjectID,
		Data:       map[string]any{"op": string(op), "attempts": attempts, "error": cause.Error()},
		OccurredAt: now,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "publishing event failed", "event_type", string(event.Type), "error", err)
	}
}

func (e *Escrow) debit(ctx context.Context, userID string, amount int64, reason, sessionID string) (string, error) {
	txID, err := e.retry(ctx, func() (string, error) {
		id, err := e.ledger.Debit(ctx, userID, amount, reason, reference(reason, sessionID))
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return "", backoff.Permanent(err)
		}
		return id, err
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return "", domain.Wrap(domain.CodeInsufficientDepositFunds,
				fmt.Sprintf("%s of %d for session %s", reason, amount, sessionID), err)
		}
		return "", fmt.Errorf("ledger %s for session %s: %w", reason, sessionID, err)
	}
	return txID, nil
}

func (e *Escrow) credit(ctx context.Context, userID string, amount int64, reason, sessionID string) (string, error) {
	txID, err := e.retry(ctx, func() (string, error) {
		return e.ledger.Credit(ctx, userID, amount, reason, reference(reason, sessionID))
	})
	if err != nil {
		return "", fmt.Errorf("ledger %s for session %s: %w", reason, sessionID, err)
	}
	return txID, nil
}

func (e *Escrow) retry(ctx context.Context, op func() (string, error)) (string, error) {
	b := backoff.NewExponentialBackOff()
	if e.cfg.InitialBackoff > 0 {
		b.InitialInterval = e.cfg.InitialBackoff
	}
	if e.cfg.MaxBackoff > 0 {
		b.MaxInterval = e.cfg.MaxBackoff
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, wait time.Duration) {
			e.logger.WarnContext(ctx, "ledger call failed, retrying", "error", err, "wait_ms", wait.Milliseconds())
		}),
	)
}

// reference is the idempotency key for one movement of one session.
func reference(reason, sessionID string) string {
	return reason + ":" + sessionID
}
