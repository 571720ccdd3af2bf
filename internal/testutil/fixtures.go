package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/google/uuid"
)

// Project options
type ProjectOption func(*domain.Project)

func WithFundingGoal(goal int64) ProjectOption {
	return func(p *domain.Project) {
		p.FundingGoal = goal
	}
}

func WithProjectID(id string) ProjectOption {
	return func(p *domain.Project) {
		p.ID = id
	}
}

func NewTestProject(ownerID, title string, opts ...ProjectOption) *domain.Project {
	p := &domain.Project{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       title,
		FundingGoal: 100000,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session options
type SessionOption func(*domain.NegotiationSession)

func WithSessionStatus(s domain.SessionStatus) SessionOption {
	return func(n *domain.NegotiationSession) {
		n.Status = s
	}
}

func WithWindow(openedAt time.Time, window time.Duration) SessionOption {
	return func(n *domain.NegotiationSession) {
		n.OpenedAt = openedAt
		n.ExpiresAt = openedAt.Add(window)
	}
}

func WithAdminFee(fee int64) SessionOption {
	return func(n *domain.NegotiationSession) {
		n.AdminFee = fee
	}
}

func NewTestSession(p *domain.Project, investorID string, opts ...SessionOption) *domain.NegotiationSession {
	now := time.Now().UTC().Truncate(time.Second)
	s := &domain.NegotiationSession{
		ID:         uuid.New().String(),
		ProjectID:  p.ID,
		OwnerID:    p.OwnerID,
		InvestorID: investorID,
		Status:     domain.SessionActive,
		OpenedAt:   now,
		ExpiresAt:  now.Add(14 * 24 * time.Hour),
		AdminFee:   4000,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func NewTestDeposit(s *domain.NegotiationSession, amount int64) *domain.Deposit {
	return &domain.Deposit{
		SessionID:  s.ID,
		InvestorID: s.InvestorID,
		Amount:     amount,
		Status:     domain.DepositHeld,
		HoldTxID:   uuid.New().String(),
		HeldAt:     s.OpenedAt,
	}
}

// SeedProject inserts a project row directly.
func SeedProject(t *testing.T, database *sql.DB, p *domain.Project, fields ...domain.ProjectField) {
	t.Helper()
	ctx := context.Background()
	_, err := database.ExecContext(ctx, `INSERT INTO projects (id, owner_id, title, funding_goal, created_at)
		VALUES (?, ?, ?, ?, ?)`, p.ID, p.OwnerID, p.Title, p.FundingGoal, p.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("seeding project: %v", err)
	}
	for _, f := range fields {
		confidential := 0
		if f.Confidential {
			confidential = 1
		}
		_, err := database.ExecContext(ctx, `INSERT INTO project_fields (project_id, name, value, confidential)
			VALUES (?, ?, ?, ?)`, p.ID, f.Name, f.Value, confidential)
		if err != nil {
			t.Fatalf("seeding project field %s: %v", f.Name, err)
		}
	}
}
