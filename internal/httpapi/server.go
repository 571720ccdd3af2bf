// Package httpapi exposes the negotiation services over HTTP for the web
// renderer and the admin dashboard. The acting user is the bearer token subject.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/repository"
	"github.com/alexanderramin/dealroom/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the use cases the API dispatches to.
type Services struct {
	Negotiations service.NegotiationService
	Messages     service.MessageService
	Access       service.AccessService
	Reports      service.ReportService
}

type server struct {
	svc    Services
	logger *slog.Logger
}

// NewRouter builds the API handler.
func NewRouter(svc Services, auth *Authenticator, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Route("/v1", func(api chi.Router) {
		api.Use(auth.Middleware)

		api.Post("/sessions", s.openSession)
		api.Get("/sessions", s.listMySessions)
		api.Route("/sessions/{session_id}", func(sr chi.Router) {
			sr.Get("/", s.getSession)
			sr.Post("/accept", s.transition(svc.Negotiations.Accept))
			sr.Post("/reject", s.transition(svc.Negotiations.Reject))
			sr.Post("/cancel", s.transition(svc.Negotiations.Cancel))
			sr.Post("/agreement", s.recordAgreement)
			sr.Post("/nda", s.signNDA)
			sr.Get("/messages", s.listMessages)
			sr.Post("/messages", s.sendMessage)
			sr.Get("/fields", s.listFields)
			sr.Get("/fields/{field}", s.getField)
		})

		api.Route("/admin", func(ar chi.Router) {
			ar.Use(requireAdmin)
			ar.Get("/summary", s.adminSummary)
			ar.Get("/sessions", s.adminSessions)
			ar.Get("/sessions/{session_id}", s.adminSessionDetail)
			ar.Get("/flags", s.adminFlags)
			ar.Get("/alerts", s.adminAlerts)
		})
	})
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func actorID(r *http.Request) string {
	a, _ := ActorFrom(r.Context())
	return a.ID
}

func (s *server) openSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID     string `json:"project_id"`
		DepositAmount int64  `json:"deposit_amount"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	sess, err := s.svc.Negotiations.Open(r.Context(), service.OpenRequest{
		ProjectID:     req.ProjectID,
		InvestorID:    actorID(r),
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"request_id": NewRequestID(), "session": toSessionView(sess)})
}

func (s *server) listMySessions(w http.ResponseWriter, r *http.Request) {
	f, err := sessionFilter(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	f.PartyID = actorID(r)
	sessions, err := s.svc.Negotiations.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "sessions": toSessionViews(sessions)})
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Negotiations.Get(r.Context(), chi.URLParam(r, "session_id"), actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "session": toSessionView(sess)})
}

type transitionFunc func(ctx context.Context, sessionID, actorID string) (*domain.NegotiationSession, error)

func (s *server) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := fn(r.Context(), chi.URLParam(r, "session_id"), actorID(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "session": toSessionView(sess)})
	}
}

func (s *server) recordAgreement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64  `json:"amount"`
		Terms  string `json:"terms"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	sess, err := s.svc.Negotiations.RecordAgreement(r.Context(), chi.URLParam(r, "session_id"), actorID(r), req.Amount, req.Terms)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "session": toSessionView(sess)})
}

func (s *server) signNDA(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Negotiations.SignNDA(r.Context(), chi.URLParam(r, "session_id"), actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "session": toSessionView(sess)})
}

func (s *server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := ReadJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	msg, err := s.svc.Messages.Send(r.Context(), chi.URLParam(r, "session_id"), actorID(r), req.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"request_id": NewRequestID(), "message": toMessageView(msg)})
}

func (s *server) listMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.Messages.List(r.Context(), chi.URLParam(r, "session_id"), actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "messages": toMessageViews(msgs)})
}

func (s *server) listFields(w http.ResponseWriter, r *http.Request) {
	fields, err := s.svc.Access.VisibleFields(r.Context(), chi.URLParam(r, "session_id"), actorID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "fields": toFieldViews(fields)})
}

func (s *server) getField(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.Access.Field(r.Context(), chi.URLParam(r, "session_id"), actorID(r), chi.URLParam(r, "field"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "field": toFieldViews([]*domain.ProjectField{f})[0]})
}

func (s *server) adminSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Reports.Summary(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "summary": toSummaryView(sum)})
}

func (s *server) adminSessions(w http.ResponseWriter, r *http.Request) {
	f, err := sessionFilter(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	f.ProjectID = r.URL.Query().Get("project_id")
	f.PartyID = r.URL.Query().Get("party_id")
	sessions, err := s.svc.Reports.ListSessions(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "sessions": toSessionViews(sessions)})
}

func (s *server) adminSessionDetail(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Reports.SessionDetail(r.Context(), chi.URLParam(r, "session_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "detail": toDetailView(d)})
}

func (s *server) adminFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := s.svc.Reports.ListFlags(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "flags": toFlagViews(flags)})
}

func (s *server) adminAlerts(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("include_resolved") == "true"
	alerts, err := s.svc.Reports.ListAlerts(r.Context(), includeResolved)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"request_id": NewRequestID(), "alerts": toAlertViews(alerts)})
}

// sessionFilter reads the status and limit query parameters.
func sessionFilter(r *http.Request) (repository.SessionFilter, error) {
	var f repository.SessionFilter
	q := r.URL.Query()
	if raw := q.Get("status"); raw != "" {
		st, err := domain.ParseSessionStatus(raw)
		if err != nil {
			return f, domain.Wrap(domain.CodeInvalidArgument, "invalid status filter", err)
		}
		f.Status = st
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, domain.New(domain.CodeInvalidArgument, "limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}
