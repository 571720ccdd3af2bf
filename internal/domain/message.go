package domain

import "time"

type Message struct {
	ID        string
	SessionID string
	Seq       int
	SenderID  string
	Content   string
	Status    MessageStatus
	// Matches holds the detector pattern kinds that caused a block.
	Matches   []string
	CreatedAt time.Time
}

// VisibleTo reports whether viewerID may read this message. Blocked records
// are only shown back to their sender.
func (m *Message) VisibleTo(viewerID string) bool {
	if m.Status == MessageSent {
		return true
	}
	return m.SenderID == viewerID
}
