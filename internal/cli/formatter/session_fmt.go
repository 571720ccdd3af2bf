package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/dealroom/internal/domain"
)

// FormatSession renders one negotiation as a titled box.
func FormatSession(s *domain.NegotiationSession, now time.Time) string {
	lines := []string{
		KeyValue("Session", s.ID),
		KeyValue("Project", s.ProjectID),
		KeyValue("Owner", s.OwnerID),
		KeyValue("Investor", s.InvestorID),
		KeyValue("Status", StatusPill(s.Status)),
		KeyValue("Access", TierBadge(s.AccessTier())),
		KeyValue("Opened", Timestamp(s.OpenedAt)),
	}
	if s.Status == domain.SessionActive {
		lines = append(lines, KeyValue("Closes", Deadline(s.ExpiresAt, now)))
	} else if s.ClosedAt != nil {
		lines = append(lines, KeyValue("Closed", Timestamp(*s.ClosedAt)))
	}
	lines = append(lines,
		KeyValue("NDA", yesNo(s.NDASigned)),
		KeyValue("Fee", Money(s.AdminFee)),
	)
	if s.AgreementReached {
		lines = append(lines, KeyValue("Agreement", Money(s.AgreedAmount)+" "+Dim(s.AgreementTerms)))
	}
	if s.LeakDetections > 0 {
		leaks := fmt.Sprintf("%d blocked", s.LeakDetections)
		if s.Flagged {
			leaks += " " + StyleRed.Render("(flagged)")
		}
		lines = append(lines, KeyValue("Leaks", leaks))
	}
	return RenderBox("Negotiation", strings.Join(lines, "\n"))
}

func yesNo(b bool) string {
	if b {
		return StyleGreen.Render("signed")
	}
	return Dim("not signed")
}

// FormatSessionList renders sessions as a table.
func FormatSessionList(sessions []*domain.NegotiationSession, now time.Time) string {
	if len(sessions) == 0 {
		return Dim("No negotiations found.") + "\n"
	}
	headers := []string{"ID", "PROJECT", "INVESTOR", "STATUS", "CLOSES", "FEE"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		closes := Dim("--")
		if s.Status == domain.SessionActive {
			closes = Deadline(s.ExpiresAt, now)
		}
		rows = append(rows, []string{
			TruncID(s.ID),
			TruncID(s.ProjectID),
			s.InvestorID,
			StatusPill(s.Status),
			closes,
			Money(s.AdminFee),
		})
	}
	return RenderTable(headers, rows)
}

// FormatMessages renders a conversation from the viewer's point of view.
func FormatMessages(msgs []*domain.Message, viewerID string) string {
	if len(msgs) == 0 {
		return Dim("No messages yet.") + "\n"
	}
	var b strings.Builder
	for _, m := range msgs {
		sender := m.SenderID
		if sender == viewerID {
			sender = "you"
		}
		prefix := fmt.Sprintf("#%d %s %s", m.Seq, Timestamp(m.CreatedAt), sender)
		if m.Status == domain.MessageBlocked {
			fmt.Fprintf(&b, "%s  %s %s\n", Dim(prefix), StyleRed.Render("[blocked]"),
				Dim(Truncate(m.Content, 60)+" ("+strings.Join(m.Matches, ", ")+")"))
			continue
		}
		fmt.Fprintf(&b, "%s  %s\n", Dim(prefix), m.Content)
	}
	return b.String()
}

// FormatFields renders the project fields visible to a viewer.
func FormatFields(fields []*domain.ProjectField) string {
	if len(fields) == 0 {
		return Dim("No fields visible.") + "\n"
	}
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		class := Dim("public")
		if f.Confidential {
			class = StylePurple.Render("confidential")
		}
		rows = append(rows, []string{f.Name, class, Truncate(f.Value, 60)})
	}
	return RenderTable([]string{"FIELD", "CLASS", "VALUE"}, rows)
}
