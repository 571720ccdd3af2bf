package domain

import (
	"fmt"
	"time"
)

// Deposit is the refundable amount held against a session. Its status is
// monotonic: once refunded or forfeited it never changes again.
type Deposit struct {
	SessionID  string
	InvestorID string
	Amount     int64
	Status     DepositStatus
	HoldTxID   string
	SettleTxID string
	HeldAt     time.Time
	SettledAt  *time.Time
}

// IsSettled reports whether the deposit reached a final status.
func (d *Deposit) IsSettled() bool {
	return d.Status != DepositHeld
}

// Settle moves a held deposit to its final status. Settling again to the same
// status is a no-op; settling to the opposite status is refused.
func (d *Deposit) Settle(to DepositStatus, txID string, at time.Time) (changed bool, err error) {
	if to == DepositHeld {
		return false, fmt.Errorf("deposit cannot return to %s", DepositHeld)
	}
	if d.Status == to {
		return false, nil
	}
	if d.Status != DepositHeld {
		return false, fmt.Errorf("deposit already %s, cannot become %s", d.Status, to)
	}
	d.Status = to
	d.SettleTxID = txID
	d.SettledAt = &at
	return true, nil
}
