package service

import (
	"context"

	"github.com/alexanderramin/dealroom/internal/access"
	"github.com/alexanderramin/dealroom/internal/domain"
)

type accessService struct {
	gate *access.Gate
	rt   *runtime
}

// NewAccessService exposes the access gate as observed use cases.
func NewAccessService(gate *access.Gate, opts ...Option) AccessService {
	return &accessService{gate: gate, rt: newRuntime(nil, opts)}
}

func (s *accessService) CanView(ctx context.Context, sessionID, field string) (ok bool, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "can-view", map[string]any{
		"session_id": sessionID,
		"field":      field,
	})
	defer uc.end(ctx, &err)

	ok, err = s.gate.CanView(ctx, sessionID, field)
	uc.fields["allowed"] = ok
	return ok, err
}

func (s *accessService) Field(ctx context.Context, sessionID, viewerID, field string) (f *domain.ProjectField, err error) {
	ctx, uc := startUseCase(ctx, s.rt.observer, "read-field", map[string]any{
		"session_id": sessionID,
		"viewer_id":  viewerID,
		"field":      field,
	})
	defer uc.end(ctx, &err)

	return s.gate.Field(ctx, sessionID, viewerID, field)
}

func (s *accessService) VisibleFields(ctx context.Context, sessionID, viewerID string) ([]*domain.ProjectField, error) {
	return s.gate.VisibleFields(ctx, sessionID, viewerID)
}
