package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
)

// ErrNotFound is returned (wrapped) when a row does not exist.
var ErrNotFound = domain.ErrNotFound

// SessionFilter narrows session listings for reporting.
type SessionFilter struct {
	Status    domain.SessionStatus
	ProjectID string
	// PartyID matches either the owner or the investor.
	PartyID string
	Limit   int
}

// HeldSettlement is a terminal session whose deposit has not moved yet.
type HeldSettlement struct {
	Session *domain.NegotiationSession
	Deposit *domain.Deposit
}

type ProjectRepo interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	UpsertField(ctx context.Context, f *domain.ProjectField) error
	GetField(ctx context.Context, projectID, name string) (*domain.ProjectField, error)
	ListFields(ctx context.Context, projectID string) ([]*domain.ProjectField, error)
}

type SessionRepo interface {
	// Create fails with domain.ErrDuplicateActiveNegotiation when the pair
	// already has an active session.
	Create(ctx context.Context, s *domain.NegotiationSession) error
	GetByID(ctx context.Context, id string) (*domain.NegotiationSession, error)
	FindActive(ctx context.Context, projectID, investorID string) (*domain.NegotiationSession, error)
	// Transition moves an active session to a terminal status. It reports
	// false when the session was no longer active.
	Transition(ctx context.Context, id string, to domain.SessionStatus, at time.Time) (bool, error)
	RecordAgreement(ctx context.Context, id string, amount int64, terms string, at time.Time) (bool, error)
	IncrementLeakDetections(ctx context.Context, id string, at time.Time) (int, error)
	MarkFlagged(ctx context.Context, id string, at time.Time) (bool, error)
	NextMessageSeq(ctx context.Context, id string) (int, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]*domain.NegotiationSession, error)
	List(ctx context.Context, f SessionFilter) ([]*domain.NegotiationSession, error)
	CountByStatus(ctx context.Context) (map[domain.SessionStatus]int, error)
	SumAdminFees(ctx context.Context) (int64, error)
}

type DepositRepo interface {
	Create(ctx context.Context, d *domain.Deposit) error
	GetBySession(ctx context.Context, sessionID string) (*domain.Deposit, error)
	// Settle moves a held deposit to its final status. It reports false when
	// the deposit was already settled.
	Settle(ctx context.Context, sessionID string, to domain.DepositStatus, txID string, at time.Time) (bool, error)
	ListHeldForTerminal(ctx context.Context) ([]HeldSettlement, error)
	SumHeld(ctx context.Context) (int64, error)
}

type NDARepo interface {
	MarkSigned(ctx context.Context, sessionID, signerID string, at time.Time) (bool, error)
	IsSigned(ctx context.Context, sessionID string) (bool, error)
}

type MessageRepo interface {
	Create(ctx context.Context, m *domain.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error)
}

type FlagRepo interface {
	// Create reports false when the session already carries a flag of the same kind.
	Create(ctx context.Context, f *domain.AdminFlag) (bool, error)
	List(ctx context.Context) ([]*domain.AdminFlag, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.AdminFlag, error)
}

type AlertRepo interface {
	Create(ctx context.Context, a *domain.SettlementAlert) error
	List(ctx context.Context, includeResolved bool) ([]*domain.SettlementAlert, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.SettlementAlert, error)
	ResolveBySession(ctx context.Context, sessionID string, at time.Time) (int, error)
}
