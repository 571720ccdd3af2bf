// Package ledger is the reference wallet ledger the negotiation core moves
// money through. Every movement carries a caller-chosen reference; replaying a
// reference returns the original transaction instead of moving money twice.
package ledger

import (
	"context"
	"errors"
	"time"
)

// ErrInsufficientFunds is returned by Debit when the balance cannot cover the amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Reasons recorded on ledger entries.
const (
	ReasonDepositHold    = "deposit_hold"
	ReasonDepositRefund  = "deposit_refund"
	ReasonDepositForfeit = "deposit_forfeit"
	ReasonHoldReversal   = "deposit_hold_reversal"
	ReasonNegotiationFee = "negotiation_fee"
	ReasonFeeReversal    = "negotiation_fee_reversal"
	ReasonFeeIncome      = "negotiation_fee_income"
	ReasonWalletTopUp    = "wallet_top_up"
)

// Ledger is the wallet collaborator. Debit and Credit are idempotent per reference.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int64, reason, reference string) (string, error)
	Credit(ctx context.Context, userID string, amount int64, reason, reference string) (string, error)
}

// Entry is one recorded money movement.
type Entry struct {
	ID        string
	UserID    string
	Amount    int64
	Direction Direction
	Reason    string
	Reference string
	CreatedAt time.Time
}
