package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin grants access to the reporting endpoints.
const RoleAdmin = "admin"

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// Actor is the authenticated caller. ID is the token subject.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type actorKey struct{}

func withActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the caller attached by the auth middleware.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	now    func() time.Time
}

func NewAuthenticator(secret string, now func() time.Time) (*Authenticator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Authenticator{secret: []byte(secret), now: now}, nil
}

// Issue signs a token for subject, valid for ttl.
func (a *Authenticator) Issue(subject, role string, ttl time.Duration) (string, error) {
	now := a.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
}

// Verify parses a token and returns its actor.
func (a *Authenticator) Verify(token string) (Actor, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Actor{}, err
	}
	if strings.TrimSpace(parsed.Subject) == "" {
		return Actor{}, errors.New("token has no subject")
	}
	return Actor{ID: parsed.Subject, Role: parsed.Role}, nil
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := parseBearer(r.Header.Get("Authorization"))
		if !ok {
			WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing bearer token", nil)
			return
		}
		actor, err := a.Verify(token)
		if err != nil {
			WriteError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "invalid bearer token", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := ActorFrom(r.Context()); !ok || !a.IsAdmin() {
			WriteError(w, http.StatusForbidden, string(domain.CodeNotAuthorized), "admin role required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearer(authorization string) (string, bool) {
	if strings.TrimSpace(authorization) == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if tok == "" {
		return "", false
	}
	return tok, true
}
