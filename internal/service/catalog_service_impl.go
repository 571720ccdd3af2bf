package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/alexanderramin/dealroom/internal/repository"
)

type catalogService struct {
	projects repository.ProjectRepo
	rt       *runtime
}

// NewCatalogService manages the reference project catalog.
func NewCatalogService(projects repository.ProjectRepo, opts ...Option) CatalogService {
	return &catalogService{projects: projects, rt: newRuntime(nil, opts)}
}

func (s *catalogService) CreateProject(ctx context.Context, p *domain.Project) error {
	p.Title = strings.TrimSpace(p.Title)
	switch {
	case p.OwnerID == "":
		return invalidArgument("project owner is required")
	case p.Title == "":
		return invalidArgument("project title is required")
	case p.FundingGoal < 0:
		return invalidArgument(fmt.Sprintf("funding goal must not be negative, got %d", p.FundingGoal))
	}
	if p.ID == "" {
		p.ID = s.rt.newID()
	}
	p.CreatedAt = s.rt.now()
	return s.projects.Create(ctx, p)
}

func (s *catalogService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, id)
}

func (s *catalogService) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.projects.List(ctx)
}

func (s *catalogService) SetField(ctx context.Context, f *domain.ProjectField) error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return invalidArgument("field name is required")
	}
	if _, err := s.projects.GetByID(ctx, f.ProjectID); err != nil {
		return fmt.Errorf("loading project: %w", err)
	}
	return s.projects.UpsertField(ctx, f)
}

func (s *catalogService) ListFields(ctx context.Context, projectID string) ([]*domain.ProjectField, error) {
	return s.projects.ListFields(ctx, projectID)
}

// WalletLedger is a ledger that can also be inspected.
type WalletLedger interface {
	ledger.Ledger
	Balance(ctx context.Context, userID string) (int64, error)
	Entries(ctx context.Context, userID string) ([]ledger.Entry, error)
}

type walletService struct {
	ledger WalletLedger
	rt     *runtime
}

// NewWalletService tops up reference wallets for sandbox and local use.
func NewWalletService(l WalletLedger, opts ...Option) WalletService {
	return &walletService{ledger: l, rt: newRuntime(nil, opts)}
}

func (s *walletService) TopUp(ctx context.Context, userID string, amount int64) (txID string, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "wallet-top-up", map[string]any{
		"user_id": userID,
		"amount":  amount,
	})
	defer uc.end(ctx, &err)

	if userID == "" {
		return "", invalidArgument("user is required")
	}
	if amount <= 0 {
		return "", invalidArgument(fmt.Sprintf("top-up amount must be positive, got %d", amount))
	}
	return s.ledger.Credit(ctx, userID, amount, ledger.ReasonWalletTopUp, ledger.ReasonWalletTopUp+":"+s.rt.newID())
}

func (s *walletService) Balance(ctx context.Context, userID string) (int64, error) {
	return s.ledger.Balance(ctx, userID)
}

func (s *walletService) Entries(ctx context.Context, userID string) ([]ledger.Entry, error) {
	return s.ledger.Entries(ctx, userID)
}
