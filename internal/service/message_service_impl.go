package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/dealroom/internal/db"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/events"
	"github.com/alexanderramin/dealroom/internal/leak"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/oklog/ulid/v2"
)

// Scanner inspects outgoing text for contact exchange.
type Scanner interface {
	Scan(text string) leak.Result
}

type messageService struct {
	repos     Repos
	uow       db.UnitOfWork
	scanner   Scanner
	threshold int
	life      *lifecycle
	rt        *runtime

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewMessageService(
	repos Repos,
	uow db.UnitOfWork,
	escrow Escrow,
	scanner Scanner,
	publisher events.Publisher,
	leakThreshold int,
	opts ...Option,
) MessageService {
	rt := newRuntime(publisher, opts)
	if leakThreshold < 1 {
		leakThreshold = 1
	}
	return &messageService{
		repos:     repos,
		uow:       uow,
		scanner:   scanner,
		threshold: leakThreshold,
		life:      &lifecycle{sessions: repos.Sessions, escrow: escrow, rt: rt},
		rt:        rt,
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

func (s *messageService) Send(ctx context.Context, sessionID, senderID, text string) (msg *domain.Message, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "send-message", map[string]any{
		"session_id": sessionID,
		"sender_id":  senderID,
	})
	defer uc.end(ctx, &err)

	if strings.TrimSpace(text) == "" {
		return nil, invalidArgument("message text is empty")
	}
	sess, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if !sess.IsParty(senderID) {
		return nil, notAuthorized(senderID, "message", sess)
	}
	if err := s.life.requireActive(ctx, sess, "message"); err != nil {
		return nil, err
	}

	result := s.scanner.Scan(text)
	now := s.rt.now()
	msg = &domain.Message{
		ID:        s.newMessageID(),
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   text,
		Status:    domain.MessageSent,
		CreatedAt: now,
	}
	if !result.Clean {
		msg.Status = domain.MessageBlocked
		msg.Matches = result.Kinds()
	}

	detections := 0
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		sessions := repository.NewSQLiteSessionRepo(tx)
		seq, err := sessions.NextMessageSeq(ctx, sessionID)
		if err != nil {
			return err
		}
		msg.Seq = seq
		if err := repository.NewSQLiteMessageRepo(tx).Create(ctx, msg); err != nil {
			return err
		}
		if msg.Status == domain.MessageBlocked {
			detections, err = sessions.IncrementLeakDetections(ctx, sessionID, now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.fields["status"] = string(msg.Status)

	if msg.Status == domain.MessageSent {
		return msg, nil
	}

	// Only the sender learns about the block; content never leaves the store.
	s.rt.emit(ctx, domain.EventMessageBlocked, sess, []string{senderID}, map[string]any{
		"message_id": msg.ID,
		"matches":    msg.Matches,
	})
	uc.fields["leak_detections"] = detections
	if detections >= s.threshold {
		s.flag(ctx, sess, detections)
	}
	return msg, domain.WithMetadata(domain.CodeContactLeakDetected,
		fmt.Sprintf("message %s blocked: %s", msg.ID, strings.Join(msg.Matches, ", ")),
		map[string]string{"message_id": msg.ID, "matches": strings.Join(msg.Matches, ",")})
}

// flag escalates a session to human review once. The deposit is left alone.
func (s *messageService) flag(ctx context.Context, sess *domain.NegotiationSession, detections int) {
	now := s.rt.now()
	created, err := s.repos.Flags.Create(ctx, &domain.AdminFlag{
		ID:        s.rt.newID(),
		SessionID: sess.ID,
		Kind:      domain.FlagContactLeak,
		Detail:    fmt.Sprintf("%d blocked messages", detections),
		CreatedAt: now,
	})
	if err != nil {
		s.rt.logger.ErrorContext(ctx, "creating admin flag failed", "session_id", sess.ID, "error", err)
		return
	}
	if !created {
		return
	}
	if _, err := s.repos.Sessions.MarkFlagged(ctx, sess.ID, now); err != nil {
		s.rt.logger.ErrorContext(ctx, "marking session flagged failed", "session_id", sess.ID, "error", err)
	}
	sess.Flagged = true
	s.rt.emit(ctx, domain.EventSessionFlagged, sess, nil, map[string]any{
		"kind":       string(domain.FlagContactLeak),
		"detections": detections,
	})
}

// List returns the history a party may see: every sent message plus their
// own blocked attempts. History stays readable after the session closes.
func (s *messageService) List(ctx context.Context, sessionID, viewerID string) ([]*domain.Message, error) {
	sess, err := s.repos.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.IsParty(viewerID) {
		return nil, notAuthorized(viewerID, "read messages of", sess)
	}
	all, err := s.repos.Messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	visible := make([]*domain.Message, 0, len(all))
	for _, m := range all {
		if m.VisibleTo(viewerID) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

func (s *messageService) newMessageID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.rt.clock()), s.entropy).String()
}
