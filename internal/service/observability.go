package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UseCaseEvent captures lightweight execution telemetry for a service use case.
type UseCaseEvent struct {
	Name      string
	Duration  time.Duration
	Success   bool
	Err       error
	Fields    map[string]any
	StartedAt time.Time
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver writes service use-case events to the provided writer.
func NewLogUseCaseObserver(w io.Writer) UseCaseObserver {
	if w == nil {
		return NoopUseCaseObserver{}
	}
	return NewSlogUseCaseObserver(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// NewSlogUseCaseObserver writes service use-case events to logger.
func NewSlogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := make([]any, 0, 8+len(event.Fields)*2)
	attrs = append(attrs,
		"use_case", event.Name,
		"duration_ms", event.Duration.Milliseconds(),
		"success", event.Success,
	)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error(), "code", string(domain.CodeOf(event.Err)))
		// Caller-facing domain errors are expected outcomes, not failures of the system.
		var de *domain.Error
		if errors.As(event.Err, &de) && de.Code != domain.CodeSettlementFailed {
			o.logger.WarnContext(ctx, "service_use_case", attrs...)
			return
		}
		o.logger.ErrorContext(ctx, "service_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "service_use_case", attrs...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}

// useCase is one traced, observed service call.
type useCase struct {
	name      string
	observer  UseCaseObserver
	span      trace.Span
	startedAt time.Time
	fields    map[string]any
}

func startUseCase(ctx context.Context, observer UseCaseObserver, name string, fields map[string]any) (context.Context, *useCase) {
	if fields == nil {
		fields = map[string]any{}
	}
	ctx, span := telemetry.Tracer().Start(ctx, "service."+name)
	return ctx, &useCase{name: name, observer: observer, span: span, startedAt: time.Now(), fields: fields}
}

// end records the outcome. It is meant to be deferred with a pointer to the
// named error result.
func (u *useCase) end(ctx context.Context, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	for k, v := range u.fields {
		u.span.SetAttributes(attribute.String(k, toString(v)))
	}
	if err != nil {
		u.span.RecordError(err)
		u.span.SetStatus(codes.Error, string(domain.CodeOf(err)))
	}
	u.span.End()
	u.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      u.name,
		StartedAt: u.startedAt,
		Duration:  time.Since(u.startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    u.fields,
	})
}
