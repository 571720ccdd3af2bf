package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagRepo_OnePerSessionAndKind(t *testing.T) {
	db := testutil.NewTestDB(t)
	sessions := NewSQLiteSessionRepo(db)
	flags := NewSQLiteFlagRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, sessions.Create(ctx, s))

	created, err := flags.Create(ctx, &domain.AdminFlag{
		ID: "f1", SessionID: s.ID, Kind: domain.FlagContactLeak, Detail: "3 blocked messages", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = flags.Create(ctx, &domain.AdminFlag{
		ID: "f2", SessionID: s.ID, Kind: domain.FlagContactLeak, CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.False(t, created)

	all, err := flags.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "3 blocked messages", all[0].Detail)

	bySession, err := flags.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, bySession, 1)
}

func TestAlertRepo_ListAndResolve(t *testing.T) {
	db := testutil.NewTestDB(t)
	sessions := NewSQLiteSessionRepo(db)
	alerts := NewSQLiteAlertRepo(db)
	ctx := context.Background()

	proj := testutil.NewTestProject("owner-1", "Solar farm")
	testutil.SeedProject(t, db, proj)
	s := testutil.NewTestSession(proj, "inv-1")
	require.NoError(t, sessions.Create(ctx, s))

	require.NoError(t, alerts.Create(ctx, &domain.SettlementAlert{
		ID: "a1", SessionID: s.ID, Op: domain.SettleRefund, Attempts: 5, LastError: "ledger unavailable", CreatedAt: time.Now(),
	}))

	open, err := alerts.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, domain.SettleRefund, open[0].Op)
	assert.Equal(t, 5, open[0].Attempts)

	n, err := alerts.ResolveBySession(ctx, s.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	open, err = alerts.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := alerts.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotNil(t, all[0].ResolvedAt)
}
