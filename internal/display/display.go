// Package display renders the ticker bar and the search view for terminals.
package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stockticker/internal/provider"
	"stockticker/internal/search"
	"stockticker/internal/ticker"
)

const separator = "  |  "

var (
	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	symbolStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	limitedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	viewStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2).
			Width(60)
)

func statusStyle(s provider.Status) lipgloss.Style {
	switch s {
	case provider.StatusOK:
		return okStyle
	case provider.StatusRateLimited:
		return limitedStyle
	case provider.StatusNetworkError:
		return errorStyle
	default:
		return mutedStyle
	}
}

// TickerBar renders the fragments of snap on one line.
func TickerBar(snap ticker.Snapshot) string {
	if len(snap.Fragments) == 0 {
		return barStyle.Render(mutedStyle.Render("Loading ticker..."))
	}
	parts := make([]string, 0, len(snap.Fragments))
	for _, f := range snap.Fragments {
		value := strings.TrimPrefix(f.Text, f.Symbol+": ")
		parts = append(parts, symbolStyle.Render(f.Symbol)+": "+statusStyle(f.Status).Render(value))
	}
	return barStyle.Render(strings.Join(parts, separator))
}

// SearchView renders v the way the search area shows it.
func SearchView(v search.View) string {
	var b strings.Builder
	switch v.Kind {
	case search.KindIdle:
		b.WriteString(mutedStyle.Render("Enter a stock symbol."))
	case search.KindOK:
		b.WriteString(symbolStyle.Render(v.Symbol))
		b.WriteString("\n")
		fmt.Fprintf(&b, "Price:    $%s\n", okStyle.Render(v.Price))
		fmt.Fprintf(&b, "Change:   %s\n", v.Change)
		fmt.Fprintf(&b, "Change %%: %s", v.ChangePercent)
		if v.Points > 0 {
			b.WriteString("\n")
			b.WriteString(mutedStyle.Render(fmt.Sprintf("chart: %d daily closes", v.Points)))
		}
	case search.KindLoading, search.KindEmptyInput:
		b.WriteString(mutedStyle.Render(v.Message))
	case search.KindRateLimited:
		b.WriteString(limitedStyle.Render(v.Message))
	default:
		b.WriteString(errorStyle.Render(v.Message))
	}
	for _, n := range v.Notes {
		b.WriteString("\n")
		b.WriteString(noteStyle.Render(n))
	}
	return viewStyle.Render(b.String())
}
