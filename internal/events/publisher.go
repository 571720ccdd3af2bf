// Package events delivers negotiation events to the notification collaborator.
package events

import (
	"context"
	"errors"
	"log/slog"

	"github.com/alexanderramin/dealroom/internal/domain"
)

// Publisher hands an event to a delivery channel.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event) error
}

// LogPublisher writes events to a structured logger.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e domain.Event) error {
	p.logger.InfoContext(ctx, "negotiation_event",
		"event_id", e.ID,
		"event_type", string(e.Type),
		"session_id", e.SessionID,
		"project_id", e.ProjectID,
		"recipients", e.Recipients,
	)
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, domain.Event) error { return nil }
