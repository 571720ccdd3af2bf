// Package bot provides simulated negotiation counter-parties for sandbox
// environments. A bot acts only through the same operations a human party has.
package bot

import (
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
)

type ActionKind string

const (
	ActionNone   ActionKind = "none"
	ActionSend   ActionKind = "send"
	ActionAccept ActionKind = "accept"
	ActionReject ActionKind = "reject"
	ActionCancel ActionKind = "cancel"
)

// Action is what a party decided to do on one turn.
type Action struct {
	Kind ActionKind
	Text string
}

// View is what a party can see when it decides: its session and the
// message history visible to it.
type View struct {
	Session  *domain.NegotiationSession
	Messages []*domain.Message
	Now      time.Time
}

// Party is the capability shared by every negotiation participant.
type Party interface {
	UserID() string
	Decide(v View) Action
}

var defaultReplies = []string{
	"Thanks for the details. Can you share more about the timeline?",
	"We are reviewing the numbers on our side.",
	"That sounds reasonable. Let us keep going here.",
}

// Persona is a scripted party with a response delay and simple rules.
type Persona struct {
	ID   string
	Name string
	// ResponseDelay is how long the persona waits after the counter-party's
	// latest message before answering.
	ResponseDelay time.Duration
	// AcceptAfter makes an owner persona accept once the investor has sent
	// this many messages. Zero never accepts.
	AcceptAfter int
	// RejectOnLeak closes the session once any contact leak was detected:
	// owners reject, investors cancel.
	RejectOnLeak bool
	Replies      []string
}

func (p *Persona) UserID() string {
	return p.ID
}

func (p *Persona) Decide(v View) Action {
	s := v.Session
	if s == nil || s.Status != domain.SessionActive || s.DeadlinePassed(v.Now) || !s.IsParty(p.ID) {
		return Action{Kind: ActionNone}
	}
	isOwner := s.OwnerID == p.ID

	if p.RejectOnLeak && s.LeakDetections > 0 {
		if isOwner {
			return Action{Kind: ActionReject}
		}
		return Action{Kind: ActionCancel}
	}

	var last *domain.Message
	mine, theirs := 0, 0
	for _, m := range v.Messages {
		if m.Status != domain.MessageSent {
			continue
		}
		last = m
		if m.SenderID == p.ID {
			mine++
		} else {
			theirs++
		}
	}
	if last == nil || last.SenderID == p.ID {
		return Action{Kind: ActionNone}
	}
	if v.Now.Sub(last.CreatedAt) < p.ResponseDelay {
		return Action{Kind: ActionNone}
	}
	if isOwner && p.AcceptAfter > 0 && theirs >= p.AcceptAfter {
		return Action{Kind: ActionAccept}
	}

	replies := p.Replies
	if len(replies) == 0 {
		replies = defaultReplies
	}
	return Action{Kind: ActionSend, Text: replies[mine%len(replies)]}
}
