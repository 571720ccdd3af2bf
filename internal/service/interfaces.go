package service

import (
	"context"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/alexanderramin/dealroom/internal/repository"
)

// OpenRequest asks for a new negotiation on a project.
type OpenRequest struct {
	ProjectID     string
	InvestorID    string
	DepositAmount int64
}

// SweepResult counts what one expiry sweep did.
type SweepResult struct {
	Expired int
	Settled int
	Failed  int
}

// NegotiationService is the negotiation lifecycle state machine.
type NegotiationService interface {
	Open(ctx context.Context, req OpenRequest) (*domain.NegotiationSession, error)
	Accept(ctx context.Context, sessionID, ownerID string) (*domain.NegotiationSession, error)
	Reject(ctx context.Context, sessionID, ownerID string) (*domain.NegotiationSession, error)
	Cancel(ctx context.Context, sessionID, investorID string) (*domain.NegotiationSession, error)
	RecordAgreement(ctx context.Context, sessionID, actorID string, amount int64, terms string) (*domain.NegotiationSession, error)
	SignNDA(ctx context.Context, sessionID, signerID string) (*domain.NegotiationSession, error)
	Get(ctx context.Context, sessionID, viewerID string) (*domain.NegotiationSession, error)
	List(ctx context.Context, f repository.SessionFilter) ([]*domain.NegotiationSession, error)
	// Sweep expires every active session past its deadline and re-drives
	// settlement of terminal sessions whose deposit is still held.
	Sweep(ctx context.Context) (SweepResult, error)
}

type MessageService interface {
	Send(ctx context.Context, sessionID, senderID, text string) (*domain.Message, error)
	List(ctx context.Context, sessionID, viewerID string) ([]*domain.Message, error)
}

type AccessService interface {
	CanView(ctx context.Context, sessionID, field string) (bool, error)
	Field(ctx context.Context, sessionID, viewerID, field string) (*domain.ProjectField, error)
	VisibleFields(ctx context.Context, sessionID, viewerID string) ([]*domain.ProjectField, error)
}

// Summary is the admin dashboard headline.
type Summary struct {
	SessionsByStatus map[domain.SessionStatus]int
	HeldDeposits     int64
	FeesCharged      int64
	OpenFlags        int
	OpenAlerts       int
	GeneratedAt      time.Time
}

// SessionDetail is everything admin reporting knows about one session.
type SessionDetail struct {
	Session  *domain.NegotiationSession
	Deposit  *domain.Deposit
	Messages []*domain.Message
	Flags    []*domain.AdminFlag
	Alerts   []*domain.SettlementAlert
}

type ReportService interface {
	Summary(ctx context.Context) (*Summary, error)
	ListSessions(ctx context.Context, f repository.SessionFilter) ([]*domain.NegotiationSession, error)
	SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error)
	ListFlags(ctx context.Context) ([]*domain.AdminFlag, error)
	ListAlerts(ctx context.Context, includeResolved bool) ([]*domain.SettlementAlert, error)
}

// CatalogService maintains the reference project catalog.
type CatalogService interface {
	CreateProject(ctx context.Context, p *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	SetField(ctx context.Context, f *domain.ProjectField) error
	ListFields(ctx context.Context, projectID string) ([]*domain.ProjectField, error)
}

// WalletService tops up and inspects reference wallet accounts.
type WalletService interface {
	TopUp(ctx context.Context, userID string, amount int64) (string, error)
	Balance(ctx context.Context, userID string) (int64, error)
	Entries(ctx context.Context, userID string) ([]ledger.Entry, error)
}
