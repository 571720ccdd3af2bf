package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
)

// reportService is the read-only admin surface. It never writes.
type reportService struct {
	repos Repos
	rt    *runtime
}

func NewReportService(repos Repos, opts ...Option) ReportService {
	return &reportService{repos: repos, rt: newRuntime(nil, opts)}
}

func (s *reportService) Summary(ctx context.Context) (*Summary, error) {
	counts, err := s.repos.Sessions.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	held, err := s.repos.Deposits.SumHeld(ctx)
	if err != nil {
		return nil, err
	}
	fees, err := s.repos.Sessions.SumAdminFees(ctx)
	if err != nil {
		return nil, err
	}
	flags, err := s.repos.Flags.List(ctx)
	if err != nil {
		return nil, err
	}
	alerts, err := s.repos.Alerts.List(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, st := range []domain.SessionStatus{
		domain.SessionActive, domain.SessionAccepted, domain.SessionRejected,
		domain.SessionCancelled, domain.SessionExpired,
	} {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return &Summary{
		SessionsByStatus: counts,
		HeldDeposits:     held,
		FeesCharged:      fees,
		OpenFlags:        len(flags),
		OpenAlerts:       len(alerts),
		GeneratedAt:      s.rt.now(),
	}, nil
}

func (s *reportService) ListSessions(ctx context.Context, f repository.SessionFilter) ([]*domain.NegotiationSession, error) {
	return s.repos.Sessions.List(ctx, f)
}

func (s *reportService) SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error) {
	sess, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	detail := &SessionDetail{Session: sess}
	if detail.Deposit, err = s.repos.Deposits.GetBySession(ctx, sessionID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading deposit: %w", err)
	}
	if detail.Messages, err = s.repos.Messages.ListBySession(ctx, sessionID); err != nil {
		return nil, err
	}
	if detail.Flags, err = s.repos.Flags.ListBySession(ctx, sessionID); err != nil {
		return nil, err
	}
	if detail.Alerts, err = s.repos.Alerts.ListBySession(ctx, sessionID); err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *reportService) ListFlags(ctx context.Context) ([]*domain.AdminFlag, error) {
	return s.repos.Flags.List(ctx)
}

func (s *reportService) ListAlerts(ctx context.Context, includeResolved bool) ([]*domain.SettlementAlert, error) {
	return s.repos.Alerts.List(ctx, includeResolved)
}
