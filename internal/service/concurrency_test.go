package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentOpen_SingleActiveSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 6
	var wg sync.WaitGroup
	var mu sync.Mutex
	var opened, duplicates int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.negotiations.Open(ctx, OpenRequest{ProjectID: h.project.ID, InvestorID: investor, DepositAmount: deposit})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, domain.ErrDuplicateActiveNegotiation):
				duplicates++
			default:
				t.Errorf("unexpected open error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, n-1, duplicates)
	assert.Equal(t, int64(50000-9000), h.ledger.Balance(investor), "losers are fully compensated")

	active, err := h.reports.ListSessions(ctx, repository.SessionFilter{Status: domain.SessionActive})
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConcurrentTransitions_OneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.open(t)

	type action func() error
	actions := []action{
		func() error { _, err := h.negotiations.Accept(ctx, s.ID, owner); return err },
		func() error { _, err := h.negotiations.Reject(ctx, s.ID, owner); return err },
		func() error { _, err := h.negotiations.Cancel(ctx, s.ID, investor); return err },
		func() error { _, err := h.negotiations.Accept(ctx, s.ID, owner); return err },
		func() error { _, err := h.negotiations.Sweep(ctx); return err },
	}

	var wg sync.WaitGroup
	errs := make([]error, len(actions))
	for i, a := range actions {
		wg.Add(1)
		go func(i int, a action) {
			defer wg.Done()
			errs[i] = a()
		}(i, a)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs[:4] {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "action %d", i)
	}
	assert.Equal(t, 1, wins)

	final := h.status(t, s.ID)
	assert.Equal(t, domain.DepositOutcome(final), h.depositStatus(t, s.ID))
	moves := h.ledger.CountReason(ledger.ReasonDepositRefund) + h.ledger.CountReason(ledger.ReasonDepositForfeit)
	assert.Equal(t, 1, moves, "deposit settled exactly once")
}

func TestConcurrentSweeps_RefundOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		inv := fmt.Sprintf("investor-%d", i+10)
		h.ledger.Fund(inv, 20000)
		s, err := h.negotiations.Open(ctx, OpenRequest{ProjectID: h.project.ID, InvestorID: inv, DepositAmount: deposit})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	h.clock.Advance(window + time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	expired := 0
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := h.negotiations.Sweep(ctx)
			if err != nil {
				t.Errorf("sweep: %v", err)
				return
			}
			mu.Lock()
			expired += res.Expired
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, len(ids), expired)
	assert.Equal(t, len(ids), h.ledger.CountReason(ledger.ReasonDepositRefund))
	for _, id := range ids {
		assert.Equal(t, domain.DepositRefunded, h.depositStatus(t, id))
	}
}

// TestRandomLifecycles drives random action sequences and checks the
// deposit and uniqueness invariants after every step.
func TestRandomLifecycles(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	investors := []string{"inv-a", "inv-b", "inv-c"}

	for trial := 0; trial < 5; trial++ {
		h := newHarness(t)
		ctx := context.Background()
		for _, inv := range investors {
			h.ledger.Fund(inv, 1_000_000)
		}
		var sessions []*domain.NegotiationSession

		for step := 0; step < 40; step++ {
			inv := investors[rng.Intn(len(investors))]
			switch rng.Intn(6) {
			case 0:
				if s, err := h.negotiations.Open(ctx, OpenRequest{ProjectID: h.project.ID, InvestorID: inv, DepositAmount: int64(1+rng.Intn(50)) * 100}); err == nil {
					sessions = append(sessions, s)
				} else {
					require.ErrorIs(t, err, domain.ErrDuplicateActiveNegotiation)
				}
			case 1, 2, 3:
				if len(sessions) == 0 {
					continue
				}
				s := sessions[rng.Intn(len(sessions))]
				var err error
				switch rng.Intn(3) {
				case 0:
					_, err = h.negotiations.Accept(ctx, s.ID, owner)
				case 1:
					_, err = h.negotiations.Reject(ctx, s.ID, owner)
				default:
					_, err = h.negotiations.Cancel(ctx, s.ID, s.InvestorID)
				}
				if err != nil {
					code := domain.CodeOf(err)
					require.Contains(t, []domain.Code{domain.CodeInvalidTransition, domain.CodeExpiredSession}, code, "step %d: %v", step, err)
				}
			case 4:
				h.clock.Advance(time.Duration(rng.Intn(5)) * 24 * time.Hour)
			case 5:
				_, err := h.negotiations.Sweep(ctx)
				require.NoError(t, err)
			}

			active := map[string]int{}
			for _, s := range sessions {
				st := h.status(t, s.ID)
				d := h.depositStatus(t, s.ID)
				require.Equal(t, domain.DepositOutcome(st), d, "trial %d step %d session %s", trial, step, s.ID)
				if st == domain.SessionActive {
					active[s.InvestorID]++
				}
			}
			for inv, n := range active {
				require.LessOrEqual(t, n, 1, "investor %s has %d active sessions", inv, n)
			}
		}
	}
}
