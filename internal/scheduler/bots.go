package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/dealroom/internal/bot"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/alexanderramin/dealroom/internal/service"
)

const defaultBotInterval = 30 * time.Second

// BotDriver gives every registered bot a turn on each of its active
// sessions. Bots go through the public services like any other party.
type BotDriver struct {
	bots         []bot.Party
	negotiations service.NegotiationService
	messages     service.MessageService
	interval     time.Duration
	clock        func() time.Time
	logger       *slog.Logger
}

func NewBotDriver(
	negotiations service.NegotiationService,
	messages service.MessageService,
	interval time.Duration,
	clock func() time.Time,
	logger *slog.Logger,
	bots ...bot.Party,
) *BotDriver {
	if interval <= 0 {
		interval = defaultBotInterval
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BotDriver{
		bots:         bots,
		negotiations: negotiations,
		messages:     messages,
		interval:     interval,
		clock:        clock,
		logger:       logger,
	}
}

func (d *BotDriver) Run(ctx context.Context) error {
	if len(d.bots) == 0 {
		return nil
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Tick(ctx); err != nil {
				d.logger.ErrorContext(ctx, "bot turn failed", "error", err)
			}
		}
	}
}

// Tick lets each bot act once per active session and returns how many
// actions were taken. Rejections of a bot action are logged, not returned.
func (d *BotDriver) Tick(ctx context.Context) (int, error) {
	acted := 0
	for _, b := range d.bots {
		sessions, err := d.negotiations.List(ctx, repository.SessionFilter{
			Status:  domain.SessionActive,
			PartyID: b.UserID(),
		})
		if err != nil {
			return acted, fmt.Errorf("listing sessions for bot %s: %w", b.UserID(), err)
		}
		for _, s := range sessions {
			history, err := d.messages.List(ctx, s.ID, b.UserID())
			if err != nil {
				return acted, fmt.Errorf("loading messages for bot %s: %w", b.UserID(), err)
			}
			action := b.Decide(bot.View{Session: s, Messages: history, Now: d.clock()})
			if action.Kind == bot.ActionNone {
				continue
			}
			if err := d.apply(ctx, b, s, action); err != nil {
				d.logger.WarnContext(ctx, "bot action refused",
					"bot", b.UserID(), "session_id", s.ID, "action", string(action.Kind), "error", err)
				continue
			}
			acted++
		}
	}
	return acted, nil
}

func (d *BotDriver) apply(ctx context.Context, b bot.Party, s *domain.NegotiationSession, a bot.Action) error {
	var err error
	switch a.Kind {
	case bot.ActionSend:
		_, err = d.messages.Send(ctx, s.ID, b.UserID(), a.Text)
	case bot.ActionAccept:
		_, err = d.negotiations.Accept(ctx, s.ID, b.UserID())
	case bot.ActionReject:
		_, err = d.negotiations.Reject(ctx, s.ID, b.UserID())
	case bot.ActionCancel:
		_, err = d.negotiations.Cancel(ctx, s.ID, b.UserID())
	default:
		err = fmt.Errorf("unknown bot action %q", a.Kind)
	}
	return err
}
