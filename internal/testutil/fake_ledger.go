package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/google/uuid"
)

// FakeLedger is an in-memory ledger.Ledger with scriptable failures.
// Movements are idempotent per reference, like the SQLite ledger.
type FakeLedger struct {
	mu       sync.Mutex
	balances map[string]int64
	refs     map[string]string
	entries  []ledger.Entry

	// FailCredits makes the next N credits fail with CreditErr.
	FailCredits int
	CreditErr   error

	// DebitErr, when set, fails every debit.
	DebitErr error

	CreditCalls int
	DebitCalls  int
}

func NewFakeLedger() *FakeLedger {
	return &FakeLedger{balances: map[string]int64{}, refs: map[string]string{}}
}

// Fund sets a user's balance.
func (l *FakeLedger) Fund(userID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[userID] = amount
}

func (l *FakeLedger) Balance(userID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID]
}

// Entries returns every recorded movement in order.
func (l *FakeLedger) Entries() []ledger.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ledger.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// CountReason returns how many movements carry reason.
func (l *FakeLedger) CountReason(reason string) int {
	n := 0
	for _, e := range l.Entries() {
		if e.Reason == reason {
			n++
		}
	}
	return n
}

func (l *FakeLedger) Debit(_ context.Context, userID string, amount int64, reason, reference string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.DebitCalls++
	if id, ok := l.refs[reference]; ok {
		return id, nil
	}
	if l.DebitErr != nil {
		return "", l.DebitErr
	}
	if l.balances[userID] < amount {
		return "", fmt.Errorf("debiting %d from %s: %w", amount, userID, ledger.ErrInsufficientFunds)
	}
	l.balances[userID] -= amount
	return l.record(userID, amount, ledger.DirectionDebit, reason, reference), nil
}

func (l *FakeLedger) Credit(_ context.Context, userID string, amount int64, reason, reference string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.CreditCalls++
	if id, ok := l.refs[reference]; ok {
		return id, nil
	}
	if l.FailCredits > 0 {
		l.FailCredits--
		err := l.CreditErr
		if err == nil {
			err = fmt.Errorf("ledger unavailable")
		}
		return "", err
	}
	l.balances[userID] += amount
	return l.record(userID, amount, ledger.DirectionCredit, reason, reference), nil
}

func (l *FakeLedger) record(userID string, amount int64, dir ledger.Direction, reason, reference string) string {
	id := uuid.New().String()
	l.refs[reference] = id
	l.entries = append(l.entries, ledger.Entry{
		ID: id, UserID: userID, Amount: amount, Direction: dir, Reason: reason, Reference: reference,
	})
	return id
}
