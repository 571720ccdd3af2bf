package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/bot"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/escrow"
	"github.com/alexanderramin/dealroom/internal/fee"
	"github.com/alexanderramin/dealroom/internal/leak"
	"github.com/alexanderramin/dealroom/internal/service"
	"github.com/alexanderramin/dealroom/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type botFixture struct {
	negotiations service.NegotiationService
	messages     service.MessageService
	clock        *testutil.Clock
	session      *domain.NegotiationSession
}

func newBotFixture(t *testing.T, ownerID string) *botFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	l := testutil.NewFakeLedger()
	l.Fund("human", 50000)
	p := testutil.NewTestProject(ownerID, "Vertical farm")
	testutil.SeedProject(t, database, p)

	repos := service.NewSQLiteRepos(database)
	uow := testutil.NewTestUoW(database)
	esc := escrow.New(l, repos.Deposits, repos.Alerts, nil, escrow.Config{PlatformAccount: "platform", MaxAttempts: 1}, escrow.WithClock(clock.Now))
	fees := fee.MustNew(fee.Params{BaseFee: 2000, Rate: decimal.RequireFromString("0.02"), MinFee: 1000, MaxFee: 20000})
	opts := []service.Option{service.WithClock(clock.Now)}

	f := &botFixture{
		negotiations: service.NewNegotiationService(repos, uow, esc, fees, nil, 14*24*time.Hour, opts...),
		messages:     service.NewMessageService(repos, uow, esc, leak.New(), nil, 3, opts...),
		clock:        clock,
	}
	s, err := f.negotiations.Open(context.Background(), service.OpenRequest{ProjectID: p.ID, InvestorID: "human", DepositAmount: 5000})
	require.NoError(t, err)
	f.session = s
	return f
}

func TestBotDriver_OwnerBotRepliesThenAccepts(t *testing.T) {
	f := newBotFixture(t, "bot-owner")
	ctx := context.Background()
	persona := &bot.Persona{ID: "bot-owner", Name: "Careful founder", ResponseDelay: time.Minute, AcceptAfter: 2}
	d := NewBotDriver(f.negotiations, f.messages, time.Second, f.clock.Now, nil, persona)

	_, err := f.messages.Send(ctx, f.session.ID, "human", "Interested in a 5% stake")
	require.NoError(t, err)

	n, err := d.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "still inside the response delay")

	f.clock.Advance(2 * time.Minute)
	n, err = d.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	history, err := f.messages.List(ctx, f.session.ID, "human")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "bot-owner", history[1].SenderID)

	_, err = f.messages.Send(ctx, f.session.ID, "human", "Can we close at 5%?")
	require.NoError(t, err)
	f.clock.Advance(2 * time.Minute)
	n, err = d.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s, err := f.negotiations.Get(ctx, f.session.ID, "human")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAccepted, s.Status)

	n, err = d.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "no active sessions left")
}

func TestBotDriver_RunWithoutBotsReturns(t *testing.T) {
	d := NewBotDriver(nil, nil, 0, nil, nil)
	assert.NoError(t, d.Run(context.Background()))
}
