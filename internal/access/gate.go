// Package access decides which project fields a negotiation party may read.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
)

type SessionReader interface {
	GetByID(ctx context.Context, id string) (*domain.NegotiationSession, error)
}

// Catalog is the slice of the project catalog the gate consults.
type Catalog interface {
	GetField(ctx context.Context, projectID, name string) (*domain.ProjectField, error)
	ListFields(ctx context.Context, projectID string) ([]*domain.ProjectField, error)
}

// Gate enforces staged disclosure: public fields are always readable and
// confidential fields need the full tier.
type Gate struct {
	sessions SessionReader
	catalog  Catalog
	clock    func() time.Time
}

func NewGate(sessions SessionReader, catalog Catalog, clock func() time.Time) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{sessions: sessions, catalog: catalog, clock: clock}
}

// Tier returns the tier a session grants at now. An active session past its
// deadline grants nothing even before the sweep has expired it.
func Tier(s *domain.NegotiationSession, now time.Time) domain.AccessTier {
	if s.Status == domain.SessionActive && s.DeadlinePassed(now) {
		return domain.TierNone
	}
	return s.AccessTier()
}

// Allows is the pure decision for one field.
func Allows(tier domain.AccessTier, f *domain.ProjectField) bool {
	if f == nil {
		return false
	}
	if f.Confidential {
		return tier == domain.TierFull
	}
	return true
}

// CanView reports whether field may be returned for the session. Unknown
// fields are never viewable.
func (g *Gate) CanView(ctx context.Context, sessionID, field string) (bool, error) {
	s, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	f, err := g.catalog.GetField(ctx, s.ProjectID, field)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return Allows(Tier(s, g.clock()), f), nil
}

// Field returns a field to a party of the session, or NDARequired when the
// field is confidential and the session does not grant the full tier.
func (g *Gate) Field(ctx context.Context, sessionID, viewerID, field string) (*domain.ProjectField, error) {
	s, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.IsParty(viewerID) {
		return nil, domain.New(domain.CodeNotAuthorized, fmt.Sprintf("user %s is not a party to session %s", viewerID, sessionID))
	}
	f, err := g.catalog.GetField(ctx, s.ProjectID, field)
	if err != nil {
		return nil, err
	}
	// The owner always sees their own project.
	if viewerID == s.OwnerID {
		return f, nil
	}
	if !Allows(Tier(s, g.clock()), f) {
		return nil, domain.WithMetadata(domain.CodeNDARequired, fmt.Sprintf("field %s requires a signed nda on an open session", field),
			map[string]string{"field": field, "session_id": sessionID})
	}
	return f, nil
}

// VisibleFields lists the fields a party may read, hiding the rest.
func (g *Gate) VisibleFields(ctx context.Context, sessionID, viewerID string) ([]*domain.ProjectField, error) {
	s, err := g.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.IsParty(viewerID) {
		return nil, domain.New(domain.CodeNotAuthorized, fmt.Sprintf("user %s is not a party to session %s", viewerID, sessionID))
	}
	fields, err := g.catalog.ListFields(ctx, s.ProjectID)
	if err != nil {
		return nil, err
	}
	if viewerID == s.OwnerID {
		return fields, nil
	}
	tier := Tier(s, g.clock())
	var out []*domain.ProjectField
	for _, f := range fields {
		if Allows(tier, f) {
			out = append(out, f)
		}
	}
	return out, nil
}
