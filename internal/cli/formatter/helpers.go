package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		return boxStyle.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
	}
	return boxStyle.Render(content)
}

// Money renders an amount held in minor units, e.g. 5000 -> "50.00".
func Money(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

// RelativeDateFrom returns a human-friendly relative date string from a reference time.
func RelativeDateFrom(t time.Time, now time.Time) string {
	diff := t.Sub(now)
	days := int(math.Round(diff.Hours() / 24))

	switch {
	case days == 0 && diff >= 0:
		return fmt.Sprintf("In %dh", int(math.Ceil(diff.Hours())))
	case days == 0:
		return fmt.Sprintf("%dh ago", int(math.Ceil(-diff.Hours())))
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0 && days < 60:
		return fmt.Sprintf("In %dw", days/7)
	case days > 0:
		return fmt.Sprintf("In %dmo", days/30)
	case days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	default:
		return fmt.Sprintf("%dmo ago", -days/30)
	}
}

// Deadline renders the time left in a negotiation window with urgency coloring.
func Deadline(expiresAt, now time.Time) string {
	left := expiresAt.Sub(now)
	text := RelativeDateFrom(expiresAt, now)
	switch {
	case left <= 0:
		return StyleDim.Render("closed " + text)
	case left <= 48*time.Hour:
		return StyleRed.Render(text)
	case left <= 7*24*time.Hour:
		return StyleYellow.Render(text)
	default:
		return StyleFg.Render(text)
	}
}

// Timestamp formats a stored time for tables.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}

// Truncate shortens text to max visible runes with an ellipsis.
func Truncate(text string, max int) string {
	r := []rune(text)
	if len(r) <= max {
		return text
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func KeyValue(key, value string) string {
	return StyleDim.Render(fmt.Sprintf("%-12s", key)) + " " + value
}
