package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusPill returns a colored indicator for a session status.
func StatusPill(status domain.SessionStatus) string {
	switch status {
	case domain.SessionActive:
		return StyleGreen.Render("● Active")
	case domain.SessionAccepted:
		return StyleBlue.Render("✔ Accepted")
	case domain.SessionRejected:
		return StyleRed.Render("✖ Rejected")
	case domain.SessionCancelled:
		return StyleYellow.Render("⊘ Cancelled")
	case domain.SessionExpired:
		return StyleDim.Render("○ Expired")
	default:
		return StyleDim.Render(string(status))
	}
}

// DepositPill returns a colored indicator for a deposit status.
func DepositPill(status domain.DepositStatus) string {
	switch status {
	case domain.DepositHeld:
		return StyleYellow.Render("held")
	case domain.DepositRefunded:
		return StyleGreen.Render("refunded")
	case domain.DepositForfeited:
		return StylePurple.Render("forfeited")
	default:
		return StyleDim.Render(string(status))
	}
}

// TierBadge shows what the viewer may currently see.
func TierBadge(tier domain.AccessTier) string {
	switch tier {
	case domain.TierFull:
		return StyleGreen.Render("FULL")
	case domain.TierPreview:
		return StyleYellow.Render("PREVIEW")
	default:
		return StyleDim.Render("NONE")
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
