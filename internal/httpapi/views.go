package httpapi

import (
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/service"
)

type sessionView struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	OwnerID        string     `json:"owner_id"`
	InvestorID     string     `json:"investor_id"`
	Status         string     `json:"status"`
	AccessTier     string     `json:"access_tier"`
	OpenedAt       time.Time  `json:"opened_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	NDASigned      bool       `json:"nda_signed"`
	AdminFee       int64      `json:"admin_fee"`
	Agreement      *outcome   `json:"agreement,omitempty"`
	LeakDetections int        `json:"leak_detections"`
	Flagged        bool       `json:"flagged"`
}

type outcome struct {
	Amount int64  `json:"amount"`
	Terms  string `json:"terms"`
}

func toSessionView(s *domain.NegotiationSession) sessionView {
	v := sessionView{
		ID:             s.ID,
		ProjectID:      s.ProjectID,
		OwnerID:        s.OwnerID,
		InvestorID:     s.InvestorID,
		Status:         string(s.Status),
		AccessTier:     string(s.AccessTier()),
		OpenedAt:       s.OpenedAt,
		ExpiresAt:      s.ExpiresAt,
		ClosedAt:       s.ClosedAt,
		NDASigned:      s.NDASigned,
		AdminFee:       s.AdminFee,
		LeakDetections: s.LeakDetections,
		Flagged:        s.Flagged,
	}
	if s.AgreementReached {
		v.Agreement = &outcome{Amount: s.AgreedAmount, Terms: s.AgreementTerms}
	}
	return v
}

func toSessionViews(in []*domain.NegotiationSession) []sessionView {
	out := make([]sessionView, 0, len(in))
	for _, s := range in {
		out = append(out, toSessionView(s))
	}
	return out
}

type messageView struct {
	ID        string    `json:"id"`
	Seq       int       `json:"seq"`
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	Matches   []string  `json:"matches,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toMessageView(m *domain.Message) messageView {
	return messageView{
		ID:        m.ID,
		Seq:       m.Seq,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Status:    string(m.Status),
		Matches:   m.Matches,
		CreatedAt: m.CreatedAt,
	}
}

func toMessageViews(in []*domain.Message) []messageView {
	out := make([]messageView, 0, len(in))
	for _, m := range in {
		out = append(out, toMessageView(m))
	}
	return out
}

type fieldView struct {
	Name         string `json:"name"`
	Value        string `json:"value"`
	Confidential bool   `json:"confidential"`
}

func toFieldViews(in []*domain.ProjectField) []fieldView {
	out := make([]fieldView, 0, len(in))
	for _, f := range in {
		out = append(out, fieldView{Name: f.Name, Value: f.Value, Confidential: f.Confidential})
	}
	return out
}

type depositView struct {
	Amount    int64      `json:"amount"`
	Status    string     `json:"status"`
	HeldAt    time.Time  `json:"held_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

type flagView struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

func toFlagViews(in []*domain.AdminFlag) []flagView {
	out := make([]flagView, 0, len(in))
	for _, f := range in {
		out = append(out, flagView{ID: f.ID, SessionID: f.SessionID, Kind: string(f.Kind), Detail: f.Detail, CreatedAt: f.CreatedAt})
	}
	return out
}

type alertView struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"session_id"`
	Operation  string     `json:"operation"`
	Attempts   int        `json:"attempts"`
	LastError  string     `json:"last_error"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

func toAlertViews(in []*domain.SettlementAlert) []alertView {
	out := make([]alertView, 0, len(in))
	for _, a := range in {
		out = append(out, alertView{
			ID: a.ID, SessionID: a.SessionID, Operation: string(a.Op), Attempts: a.Attempts,
			LastError: a.LastError, CreatedAt: a.CreatedAt, ResolvedAt: a.ResolvedAt,
		})
	}
	return out
}

type summaryView struct {
	SessionsByStatus map[string]int `json:"sessions_by_status"`
	HeldDeposits     int64          `json:"held_deposits"`
	FeesCharged      int64          `json:"fees_charged"`
	OpenFlags        int            `json:"open_flags"`
	OpenAlerts       int            `json:"open_alerts"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

func toSummaryView(s *service.Summary) summaryView {
	byStatus := make(map[string]int, len(s.SessionsByStatus))
	for st, n := range s.SessionsByStatus {
		byStatus[string(st)] = n
	}
	return summaryView{
		SessionsByStatus: byStatus,
		HeldDeposits:     s.HeldDeposits,
		FeesCharged:      s.FeesCharged,
		OpenFlags:        s.OpenFlags,
		OpenAlerts:       s.OpenAlerts,
		GeneratedAt:      s.GeneratedAt,
	}
}

type detailView struct {
	Session  sessionView   `json:"session"`
	Deposit  *depositView  `json:"deposit,omitempty"`
	Messages []messageView `json:"messages"`
	Flags    []flagView    `json:"flags"`
	Alerts   []alertView   `json:"alerts"`
}

func toDetailView(d *service.SessionDetail) detailView {
	v := detailView{
		Session:  toSessionView(d.Session),
		Messages: toMessageViews(d.Messages),
		Flags:    toFlagViews(d.Flags),
		Alerts:   toAlertViews(d.Alerts),
	}
	if d.Deposit != nil {
		v.Deposit = &depositView{
			Amount: d.Deposit.Amount, Status: string(d.Deposit.Status),
			HeldAt: d.Deposit.HeldAt, SettledAt: d.Deposit.SettledAt,
		}
	}
	return v
}
