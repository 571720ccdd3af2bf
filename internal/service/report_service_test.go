package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_SummaryAndDetail(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	accepted := h.open(t)
	_, err := h.negotiations.Accept(ctx, accepted.ID, owner)
	require.NoError(t, err)

	active := h.open(t)
	_, err = h.messages.Send(ctx, active.ID, investor, "ping me on whatsapp")
	require.ErrorIs(t, err, domain.ErrContactLeakDetected)

	sum, err := h.reports.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SessionsByStatus[domain.SessionActive])
	assert.Equal(t, 1, sum.SessionsByStatus[domain.SessionAccepted])
	assert.Equal(t, 0, sum.SessionsByStatus[domain.SessionExpired])
	assert.Equal(t, deposit, sum.HeldDeposits)
	assert.Equal(t, int64(8000), sum.FeesCharged)
	assert.Zero(t, sum.OpenFlags)
	assert.Zero(t, sum.OpenAlerts)

	detail, err := h.reports.SessionDetail(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DepositHeld, detail.Deposit.Status)
	require.Len(t, detail.Messages, 1, "admins see blocked records")
	assert.Equal(t, domain.MessageBlocked, detail.Messages[0].Status)
}

func TestReport_ListSessionsFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.open(t)
	_, err := h.negotiations.Cancel(ctx, first.ID, investor)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	h.open(t)

	cancelled, err := h.reports.ListSessions(ctx, repository.SessionFilter{Status: domain.SessionCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)

	mine, err := h.reports.ListSessions(ctx, repository.SessionFilter{PartyID: owner})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	none, err := h.reports.ListSessions(ctx, repository.SessionFilter{PartyID: "stranger"})
	require.NoError(t, err)
	assert.Empty(t, none)
}
