package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/events"
	"github.com/google/uuid"
)

// Option customises the runtime collaborators shared by the services.
type Option func(*runtime)

// WithClock replaces time.Now. Times are truncated to whole seconds because
// storage keeps RFC3339 timestamps.
func WithClock(clock func() time.Time) Option {
	return func(r *runtime) { r.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *runtime) { r.logger = logger }
}

func WithObserver(observer UseCaseObserver) Option {
	return func(r *runtime) { r.observer = observer }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *runtime) { r.newID = newID }
}

type runtime struct {
	clock     func() time.Time
	logger    *slog.Logger
	observer  UseCaseObserver
	newID     func() string
	publisher events.Publisher
}

func newRuntime(publisher events.Publisher, opts []Option) *runtime {
	if publisher == nil {
		publisher = events.Nop{}
	}
	r := &runtime{
		clock:     time.Now,
		logger:    slog.Default(),
		observer:  NoopUseCaseObserver{},
		newID:     uuid.NewString,
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.observer == nil {
		r.observer = NoopUseCaseObserver{}
	}
	return r
}

func (r *runtime) now() time.Time {
	return r.clock().UTC().Truncate(time.Second)
}

// emit publishes an event about a session. Delivery failures are logged and
// never fail the operation that caused the event.
func (r *runtime) emit(ctx context.Context, t domain.EventType, s *domain.NegotiationSession, recipients []string, data map[string]any) {
	e := domain.Event{
		ID:         r.newID(),
		Type:       t,
		SessionID:  s.ID,
		ProjectID:  s.ProjectID,
		Recipients: recipients,
		Data:       data,
		OccurredAt: r.now(),
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.WarnContext(ctx, "publishing event failed",
			"event_type", string(t), "session_id", s.ID, "error", err)
	}
}

func parties(s *domain.NegotiationSession) []string {
	return []string{s.OwnerID, s.InvestorID}
}

func notAuthorized(actorID, action string, s *domain.NegotiationSession) error {
	return domain.WithMetadata(domain.CodeNotAuthorized,
		fmt.Sprintf("user %s may not %s session %s", actorID, action, s.ID),
		map[string]string{"session_id": s.ID, "action": action})
}

func expiredSession(s *domain.NegotiationSession) error {
	return domain.WithMetadata(domain.CodeExpiredSession,
		fmt.Sprintf("session %s expired at %s", s.ID, s.ExpiresAt.Format(time.RFC3339)),
		map[string]string{"session_id": s.ID, "expires_at": s.ExpiresAt.Format(time.RFC3339)})
}

func invalidTransition(s *domain.NegotiationSession, action string) error {
	return domain.WithMetadata(domain.CodeInvalidTransition,
		fmt.Sprintf("cannot %s session %s: status is %s", action, s.ID, s.Status),
		map[string]string{"session_id": s.ID, "status": string(s.Status), "action": action})
}

func invalidArgument(msg string) error {
	return domain.New(domain.CodeInvalidArgument, msg)
}

func toString(v any) string {
	return fmt.Sprint(v)
}
