package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/access"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/escrow"
	"github.com/alexanderramin/dealroom/internal/fee"
	"github.com/alexanderramin/dealroom/internal/leak"
	"github.com/alexanderramin/dealroom/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	owner    = "owner-1"
	investor = "investor-1"
	deposit  = int64(5000)
	window   = 14 * 24 * time.Hour
)

// harness wires every service against a temp-file database and a fake ledger.
type harness struct {
	repos   Repos
	clock   *testutil.Clock
	ledger  *testutil.FakeLedger
	pub     *testutil.RecordingPublisher
	project *domain.Project

	negotiations NegotiationService
	messages     MessageService
	access       AccessService
	reports      ReportService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	database := testutil.NewTestDB(t)
	h := &harness{
		repos:  NewSQLiteRepos(database),
		clock:  testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		ledger: testutil.NewFakeLedger(),
		pub:    &testutil.RecordingPublisher{},
	}
	h.project = testutil.NewTestProject(owner, "Solar farm", testutil.WithFundingGoal(100000))
	testutil.SeedProject(t, database, h.project,
		domain.ProjectField{Name: "summary", Value: "500kW rooftop array"},
		domain.ProjectField{Name: "financials", Value: "IRR 14%", Confidential: true},
	)
	h.ledger.Fund(investor, 50000)

	fees := fee.MustNew(fee.Params{
		BaseFee: 2000,
		Rate:    decimal.RequireFromString("0.02"),
		MinFee:  1000,
		MaxFee:  20000,
	})
	esc := escrow.New(h.ledger, h.repos.Deposits, h.repos.Alerts, h.pub, escrow.Config{
		PlatformAccount: "platform",
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		MaxBackoff:      2 * time.Millisecond,
	}, escrow.WithClock(h.clock.Now))
	uow := testutil.NewTestUoW(database)
	opts := []Option{WithClock(h.clock.Now)}

	h.negotiations = NewNegotiationService(h.repos, uow, esc, fees, h.pub, window, opts...)
	h.messages = NewMessageService(h.repos, uow, esc, leak.New(), h.pub, 3, opts...)
	h.access = NewAccessService(access.NewGate(h.repos.Sessions, h.repos.Projects, h.clock.Now), opts...)
	h.reports = NewReportService(h.repos, opts...)
	return h
}

func (h *harness) open(t *testing.T) *domain.NegotiationSession {
	t.Helper()
	s, err := h.negotiations.Open(context.Background(), OpenRequest{
		ProjectID:     h.project.ID,
		InvestorID:    investor,
		DepositAmount: deposit,
	})
	require.NoError(t, err)
	return s
}

func (h *harness) depositStatus(t *testing.T, sessionID string) domain.DepositStatus {
	t.Helper()
	d, err := h.repos.Deposits.GetBySession(context.Background(), sessionID)
	require.NoError(t, err)
	return d.Status
}

func (h *harness) status(t *testing.T, sessionID string) domain.SessionStatus {
	t.Helper()
	s, err := h.repos.Sessions.GetByID(context.Background(), sessionID)
	require.NoError(t, err)
	return s.Status
}
