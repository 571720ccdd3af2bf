package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/events"
	"github.com/alexanderramin/dealroom/internal/fee"
	"github.com/alexanderramin/dealroom/internal/repository"
)

// Repos bundles the repositories the use cases read outside transactions.
type Repos struct {
	Projects repository.ProjectRepo
	Sessions repository.SessionRepo
	Deposits repository.DepositRepo
	NDAs     repository.NDARepo
	Messages repository.MessageRepo
	Flags    repository.FlagRepo
	Alerts   repository.AlertRepo
}

// NewSQLiteRepos wires every SQLite repository on one connection.
func NewSQLiteRepos(conn db.DBTX) Repos {
	return Repos{
		Projects: repository.NewSQLiteProjectRepo(conn),
		Sessions: repository.NewSQLiteSessionRepo(conn),
		Deposits: repository.NewSQLiteDepositRepo(conn),
		NDAs:     repository.NewSQLiteNDARepo(conn),
		Messages: repository.NewSQLiteMessageRepo(conn),
		Flags:    repository.NewSQLiteFlagRepo(conn),
		Alerts:   repository.NewSQLiteAlertRepo(conn),
	}
}

type negotiationService struct {
	repos  Repos
	uow    db.UnitOfWork
	escrow Escrow
	fees   *fee.Calculator
	window time.Duration
	life   *lifecycle
	rt     *runtime
}

func NewNegotiationService(
	repos Repos,
	uow db.UnitOfWork,
	escrow Escrow,
	fees *fee.Calculator,
	publisher events.Publisher,
	window time.Duration,
	opts ...Option,
) NegotiationService {
	rt := newRuntime(publisher, opts)
	return &negotiationService{
		repos:  repos,
		uow:    uow,
		escrow: escrow,
		fees:   fees,
		window: window,
		life:   &lifecycle{sessions: repos.Sessions, escrow: escrow, rt: rt},
		rt:     rt,
	}
}

func (s *negotiationService) Open(ctx context.Context, req OpenRequest) (sess *domain.NegotiationSession, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "open-session", map[string]any{
		"project_id":     req.ProjectID,
		"investor_id":    req.InvestorID,
		"deposit_amount": req.DepositAmount,
	})
	defer uc.end(ctx, &err)

	switch {
	case req.ProjectID == "" || req.InvestorID == "":
		return nil, invalidArgument("project and investor are required")
	case req.DepositAmount <= 0:
		return nil, invalidArgument(fmt.Sprintf("deposit amount must be positive, got %d", req.DepositAmount))
	}

	project, err := s.repos.Projects.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	if project.OwnerID == req.InvestorID {
		return nil, domain.New(domain.CodeNotAuthorized, fmt.Sprintf("owner %s cannot negotiate on their own project", req.InvestorID))
	}
	if err := s.checkNoActive(ctx, req); err != nil {
		return nil, err
	}

	basis := project.FundingGoal
	if basis <= 0 {
		basis = req.DepositAmount
	}
	now := s.rt.now()
	sess = &domain.NegotiationSession{
		ID:         s.rt.newID(),
		ProjectID:  project.ID,
		OwnerID:    project.OwnerID,
		InvestorID: req.InvestorID,
		Status:     domain.SessionActive,
		OpenedAt:   now,
		ExpiresAt:  now.Add(s.window),
		AdminFee:   s.fees.Compute(basis),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	uc.fields["session_id"] = sess.ID
	uc.fields["admin_fee"] = sess.AdminFee

	holdTxID, err := s.escrow.Hold(ctx, sess.ID, sess.InvestorID, req.DepositAmount)
	if err != nil {
		return nil, err
	}
	if _, err := s.escrow.ChargeFee(ctx, sess.ID, sess.InvestorID, sess.AdminFee); err != nil {
		s.compensateOpen(ctx, sess, req.DepositAmount, 0)
		return nil, err
	}

	deposit := &domain.Deposit{
		SessionID:  sess.ID,
		InvestorID: sess.InvestorID,
		Amount:     req.DepositAmount,
		Status:     domain.DepositHeld,
		HoldTxID:   holdTxID,
		HeldAt:     now,
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteSessionRepo(tx).Create(ctx, sess); err != nil {
			return err
		}
		return repository.NewSQLiteDepositRepo(tx).Create(ctx, deposit)
	})
	if err != nil {
		s.compensateOpen(ctx, sess, req.DepositAmount, sess.AdminFee)
		return nil, err
	}

	if err := s.escrow.CollectFee(ctx, sess.ID, sess.AdminFee); err != nil {
		s.rt.logger.WarnContext(ctx, "collecting negotiation fee failed",
			"session_id", sess.ID, "fee", sess.AdminFee, "error", err)
	}
	s.rt.emit(ctx, domain.EventSessionOpened, sess, parties(sess), map[string]any{
		"deposit_amount": req.DepositAmount,
		"admin_fee":      sess.AdminFee,
		"expires_at":     sess.ExpiresAt.Format(time.RFC3339),
	})
	return sess, nil
}

// checkNoActive rejects a second active session for the pair. A stale
// active session past its deadline is expired first instead of blocking.
func (s *negotiationService) checkNoActive(ctx context.Context, req OpenRequest) error {
	existing, err := s.repos.Sessions.FindActive(ctx, req.ProjectID, req.InvestorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking active sessions: %w", err)
	}
	expired, err := s.life.expireIfDue(ctx, existing)
	if err != nil {
		return err
	}
	if expired {
		return nil
	}
	return domain.WithMetadata(domain.CodeDuplicateActiveNegotiation,
		fmt.Sprintf("investor %s already negotiates project %s in session %s", req.InvestorID, req.ProjectID, existing.ID),
		map[string]string{"session_id": existing.ID})
}

// compensateOpen returns money taken by an open that did not complete.
func (s *negotiationService) compensateOpen(ctx context.Context, sess *domain.NegotiationSession, deposit, adminFee int64) {
	if err := s.escrow.ReverseFee(ctx, sess.ID, sess.InvestorID, adminFee); err != nil {
		s.rt.logger.ErrorContext(ctx, "reversing negotiation fee failed",
			"session_id", sess.ID, "investor_id", sess.InvestorID, "fee", adminFee, "error", err)
	}
	if err := s.escrow.ReleaseHold(ctx, sess.ID, sess.InvestorID, deposit); err != nil {
		s.rt.logger.ErrorContext(ctx, "releasing deposit hold failed",
			"session_id", sess.ID, "investor_id", sess.InvestorID, "amount", deposit, "error", err)
	}
}

func (s *negotiationService) Accept(ctx context.Context, sessionID, ownerID string) (*domain.NegotiationSession, error) {
	return s.transition(ctx, "accept", sessionID, ownerID, domain.SessionAccepted)
}

func (s *negotiationService) Reject(ctx context.Context, sessionID, ownerID string) (*domain.NegotiationSession, error) {
	return s.transition(ctx, "reject", sessionID, ownerID, domain.SessionRejected)
}

func (s *negotiationService) Cancel(ctx context.Context, sessionID, investorID string) (*domain.NegotiationSession, error) {
	return s.transition(ctx, "cancel", sessionID, investorID, domain.SessionCancelled)
}

func (s *negotiationService) transition(ctx context.Context, action, sessionID, actorID string, to domain.SessionStatus) (sess *domain.NegotiationSession, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, action+"-session", map[string]any{
		"session_id": sessionID,
		"actor_id":   actorID,
	})
	defer uc.end(ctx, &err)

	sess, err = s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	allowed := actorID == sess.OwnerID
	if to == domain.SessionCancelled {
		allowed = actorID == sess.InvestorID
	}
	if !allowed {
		return nil, notAuthorized(actorID, action, sess)
	}
	if err := s.life.requireActive(ctx, sess, action); err != nil {
		return sess, err
	}

	changed, err := s.life.close(ctx, sess, to)
	if err != nil {
		return sess, err
	}
	if !changed {
		// Lost the race: report the state the winner left.
		if fresh, gerr := s.repos.Sessions.GetByID(ctx, sessionID); gerr == nil {
			sess = fresh
		}
		return sess, invalidTransition(sess, action)
	}
	return sess, nil
}

func (s *negotiationService) RecordAgreement(ctx context.Context, sessionID, actorID string, amount int64, terms string) (sess *domain.NegotiationSession, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "record-agreement", map[string]any{
		"session_id": sessionID,
		"actor_id":   actorID,
		"amount":     amount,
	})
	defer uc.end(ctx, &err)

	if amount <= 0 {
		return nil, invalidArgument(fmt.Sprintf("agreed amount must be positive, got %d", amount))
	}
	sess, err = s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !sess.IsParty(actorID) {
		return nil, notAuthorized(actorID, "record an agreement on", sess)
	}
	if sess.Status != domain.SessionAccepted {
		return sess, invalidTransition(sess, "record an agreement on")
	}
	changed, err := s.repos.Sessions.RecordAgreement(ctx, sessionID, amount, terms, s.rt.now())
	if err != nil {
		return nil, err
	}
	if !changed {
		return sess, domain.WithMetadata(domain.CodeInvalidTransition,
			fmt.Sprintf("agreement for session %s is already recorded", sessionID),
			map[string]string{"session_id": sessionID})
	}
	return s.repos.Sessions.GetByID(ctx, sessionID)
}

func (s *negotiationService) SignNDA(ctx context.Context, sessionID, signerID string) (sess *domain.NegotiationSession, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "sign-nda", map[string]any{
		"session_id": sessionID,
		"signer_id":  signerID,
	})
	defer uc.end(ctx, &err)

	sess, err = s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if signerID != sess.InvestorID {
		return nil, notAuthorized(signerID, "sign the nda of", sess)
	}
	if err := s.life.requireActive(ctx, sess, "sign the nda of"); err != nil {
		return sess, err
	}
	signed, err := s.repos.NDAs.MarkSigned(ctx, sessionID, signerID, s.rt.now())
	if err != nil {
		return nil, err
	}
	uc.fields["newly_signed"] = signed
	sess.NDASigned = true
	return sess, nil
}

func (s *negotiationService) Get(ctx context.Context, sessionID, viewerID string) (*domain.NegotiationSession, error) {
	sess, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParty(viewerID) {
		return nil, notAuthorized(viewerID, "view", sess)
	}
	return sess, nil
}

func (s *negotiationService) List(ctx context.Context, f repository.SessionFilter) ([]*domain.NegotiationSession, error) {
	return s.repos.Sessions.List(ctx, f)
}

func (s *negotiationService) Sweep(ctx context.Context) (res SweepResult, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "expiry-sweep", nil)
	defer func() {
		uc.fields["expired"] = res.Expired
		uc.fields["settled"] = res.Settled
		uc.fields["failed"] = res.Failed
		uc.end(ctx, &err)
	}()

	due, err := s.repos.Sessions.ListExpiredActive(ctx, s.rt.now())
	if err != nil {
		return res, fmt.Errorf("listing overdue sessions: %w", err)
	}
	failed := map[string]bool{}
	for _, sess := range due {
		changed, cerr := s.life.close(ctx, sess, domain.SessionExpired)
		if changed {
			res.Expired++
		}
		if cerr != nil {
			res.Failed++
			failed[sess.ID] = true
		}
	}

	// Terminal sessions whose settlement never completed.
	pending, err := s.repos.Deposits.ListHeldForTerminal(ctx)
	if err != nil {
		return res, fmt.Errorf("listing unsettled deposits: %w", err)
	}
	for _, p := range pending {
		if failed[p.Session.ID] {
			continue
		}
		if serr := s.escrow.Settle(ctx, p.Session); serr != nil {
			res.Failed++
			s.rt.logger.ErrorContext(ctx, "re-driving settlement failed", "session_id", p.Session.ID, "error", serr)
			continue
		}
		res.Settled++
	}
	return res, nil
}
