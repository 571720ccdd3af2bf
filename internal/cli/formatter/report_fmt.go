package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/ledger"
	"github.com/alexanderramin/dealroom/internal/service"
)

var statusOrder = []domain.SessionStatus{
	domain.SessionActive,
	domain.SessionAccepted,
	domain.SessionRejected,
	domain.SessionCancelled,
	domain.SessionExpired,
}

// FormatSummary renders the admin dashboard headline.
func FormatSummary(s *service.Summary) string {
	var b strings.Builder
	rows := make([][]string, 0, len(statusOrder))
	for _, st := range statusOrder {
		rows = append(rows, []string{StatusPill(st), fmt.Sprint(s.SessionsByStatus[st])})
	}
	b.WriteString(RenderTable([]string{"STATUS", "SESSIONS"}, rows))
	b.WriteString("\n" + Header("Money") + "\n")
	b.WriteString(KeyValue("Held", Money(s.HeldDeposits)) + "\n")
	b.WriteString(KeyValue("Fees", Money(s.FeesCharged)) + "\n")
	b.WriteString("\n" + Header("Attention") + "\n")
	b.WriteString(KeyValue("Flags", countStyle(s.OpenFlags)) + "\n")
	b.WriteString(KeyValue("Alerts", countStyle(s.OpenAlerts)))
	return RenderBox("Deal room", b.String())
}

func countStyle(n int) string {
	if n == 0 {
		return StyleGreen.Render("0")
	}
	return StyleRed.Render(fmt.Sprint(n))
}

func FormatFlags(flags []*domain.AdminFlag) string {
	if len(flags) == 0 {
		return Dim("No flags.") + "\n"
	}
	rows := make([][]string, 0, len(flags))
	for _, f := range flags {
		rows = append(rows, []string{TruncID(f.ID), f.SessionID, string(f.Kind), Truncate(f.Detail, 50), Timestamp(f.CreatedAt)})
	}
	return RenderTable([]string{"ID", "SESSION", "KIND", "DETAIL", "RAISED"}, rows)
}

func FormatAlerts(alerts []*domain.SettlementAlert) string {
	if len(alerts) == 0 {
		return Dim("No settlement alerts.") + "\n"
	}
	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		state := StyleRed.Render("open")
		if a.ResolvedAt != nil {
			state = StyleGreen.Render("resolved")
		}
		rows = append(rows, []string{
			TruncID(a.ID), a.SessionID, string(a.Op), fmt.Sprint(a.Attempts), state, Truncate(a.LastError, 40),
		})
	}
	return RenderTable([]string{"ID", "SESSION", "OP", "ATTEMPTS", "STATE", "LAST ERROR"}, rows)
}

// FormatEntries renders a wallet statement.
func FormatEntries(entries []ledger.Entry) string {
	if len(entries) == 0 {
		return Dim("No ledger entries.") + "\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		amount := StyleGreen.Render("+" + Money(e.Amount))
		if e.Direction == ledger.DirectionDebit {
			amount = StyleRed.Render("-" + Money(e.Amount))
		}
		rows = append(rows, []string{Timestamp(e.CreatedAt), e.Reason, amount, Dim(e.Reference)})
	}
	return RenderTable([]string{"WHEN", "REASON", "AMOUNT", "REFERENCE"}, rows)
}
