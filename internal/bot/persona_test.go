package bot

import (
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func session() *domain.NegotiationSession {
	return &domain.NegotiationSession{
		ID:         "s1",
		OwnerID:    "bot-owner",
		InvestorID: "human",
		Status:     domain.SessionActive,
		OpenedAt:   t0,
		ExpiresAt:  t0.Add(14 * 24 * time.Hour),
	}
}

func msg(sender string, at time.Time) *domain.Message {
	return &domain.Message{SenderID: sender, Status: domain.MessageSent, Content: "hi", CreatedAt: at}
}

func TestPersona_WaitsForResponseDelay(t *testing.T) {
	p := &Persona{ID: "bot-owner", ResponseDelay: time.Minute}
	v := View{Session: session(), Messages: []*domain.Message{msg("human", t0)}, Now: t0.Add(30 * time.Second)}

	assert.Equal(t, ActionNone, p.Decide(v).Kind)

	v.Now = t0.Add(time.Minute)
	a := p.Decide(v)
	assert.Equal(t, ActionSend, a.Kind)
	assert.Equal(t, defaultReplies[0], a.Text)
}

func TestPersona_DoesNotAnswerItself(t *testing.T) {
	p := &Persona{ID: "bot-owner"}
	v := View{Session: session(), Messages: []*domain.Message{msg("human", t0), msg("bot-owner", t0)}, Now: t0.Add(time.Hour)}

	assert.Equal(t, ActionNone, p.Decide(v).Kind)
}

func TestPersona_OwnerAcceptsAfterThreshold(t *testing.T) {
	p := &Persona{ID: "bot-owner", AcceptAfter: 2, Replies: []string{"ok"}}
	v := View{Session: session(), Messages: []*domain.Message{msg("human", t0)}, Now: t0.Add(time.Hour)}
	assert.Equal(t, ActionSend, p.Decide(v).Kind)

	v.Messages = append(v.Messages, msg("bot-owner", t0), msg("human", t0.Add(time.Minute)))
	assert.Equal(t, ActionAccept, p.Decide(v).Kind)
}

func TestPersona_InvestorNeverAccepts(t *testing.T) {
	s := session()
	s.OwnerID, s.InvestorID = "human", "bot-inv"
	p := &Persona{ID: "bot-inv", AcceptAfter: 1}
	v := View{Session: s, Messages: []*domain.Message{msg("human", t0)}, Now: t0.Add(time.Hour)}

	assert.Equal(t, ActionSend, p.Decide(v).Kind)
}

func TestPersona_RejectOnLeak(t *testing.T) {
	s := session()
	s.LeakDetections = 1
	owner := &Persona{ID: "bot-owner", RejectOnLeak: true}
	assert.Equal(t, ActionReject, owner.Decide(View{Session: s, Now: t0}).Kind)

	s.OwnerID, s.InvestorID = "human", "bot-inv"
	inv := &Persona{ID: "bot-inv", RejectOnLeak: true}
	assert.Equal(t, ActionCancel, inv.Decide(View{Session: s, Now: t0}).Kind)
}

func TestPersona_IgnoresClosedOrForeignSessions(t *testing.T) {
	p := &Persona{ID: "bot-owner"}
	s := session()
	s.Status = domain.SessionAccepted
	assert.Equal(t, ActionNone, p.Decide(View{Session: s, Messages: []*domain.Message{msg("human", t0)}, Now: t0.Add(time.Hour)}).Kind)

	s = session()
	assert.Equal(t, ActionNone, p.Decide(View{Session: s, Messages: []*domain.Message{msg("human", t0)}, Now: s.ExpiresAt}).Kind)

	other := &Persona{ID: "someone-else"}
	assert.Equal(t, ActionNone, other.Decide(View{Session: session(), Messages: []*domain.Message{msg("human", t0)}, Now: t0.Add(time.Hour)}).Kind)
}
