package views

import (
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"onager/ui/console"
	"onager/ui/tui/state"
	"onager/ui/tui/styles"
)

const historyWidth = 32

// HistoryZone is the bubblezone id of the i-th history entry.
func HistoryZone(i int) string {
	return fmt.Sprintf("history_%d", i)
}

type QueryView struct{}

func (v QueryView) Render(s state.ShellState, props ViewProps) string {
	header := styles.HeaderStyle.Width(props.Width).Render("ONAGER // GRAPH SQL SHELL")

	status := ""
	switch {
	case s.Running:
		status = props.SpinnerView + " running..."
	case !s.LastUpdate.IsZero():
		status = fmt.Sprintf("finished %s in %s", s.LastUpdate.Format("15:04:05"), s.Elapsed.Round(time.Millisecond))
	}
	prompt := lipgloss.JoinVertical(lipgloss.Left,
		props.InputView,
		lipgloss.NewStyle().Foreground(styles.BaseColor).Render(status),
	)

	body := ""
	switch {
	case s.Err != nil:
		body = styles.ErrorStyle.Render("Error: " + s.Err.Error())
	case s.Result != nil:
		body = console.Table(s.Result)
	default:
		body = lipgloss.NewStyle().Foreground(styles.BaseColor).Render("Type a statement and press Enter.")
	}

	resultWidth := max(props.Width-historyWidth-6, 20)
	availableHeight := max(props.Height-lipgloss.Height(header)-lipgloss.Height(prompt)-4, 1)
	visible, scrollY, total := window(body, props.ScrollY, availableHeight)

	results := lipgloss.NewStyle().
		Width(resultWidth).
		Height(availableHeight).
		PaddingLeft(1).
		Render(visible)

	history := renderHistory(s.History, props)

	footerText := "[Enter] Run • [↑/↓] History • [PgUp/PgDn] Scroll • [Tab] Next page • [Esc] Quit"
	if total > availableHeight {
		footerText = fmt.Sprintf("Lines %d/%d • ", scrollY, total) + footerText
	}

	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2, 0, 2).Render(prompt),
		lipgloss.JoinHorizontal(lipgloss.Top, results, history),
		styles.FooterStyle.Render(footerText),
	))
}

func renderHistory(history []string, props ViewProps) string {
	items := []string{lipgloss.NewStyle().Bold(true).Foreground(styles.BrandColor).Render("HISTORY")}
	for i, q := range history {
		// Animated highlight follows the spring-driven cursor.
		dist := math.Abs(float64(i) - props.AnimCursor)
		style := lipgloss.NewStyle().Width(historyWidth - 4).MaxHeight(1)
		if i == props.HistoryCursor || dist < 0.5 {
			style = style.Bold(true).Foreground(lipgloss.Color("#FFF")).Background(styles.BrandColor)
		} else {
			style = style.Foreground(lipgloss.Color("#AAA"))
		}
		items = append(items, zone.Mark(HistoryZone(i), style.Render(q)))
	}
	return styles.CardStyle.Width(historyWidth).Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}
