package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"onager/ui/tui/state"
	"onager/ui/tui/styles"
)

type ChartView struct{}

func (v ChartView) Render(s state.ShellState, props ViewProps) string {
	header := styles.HeaderStyle.Width(props.Width).Render("Result Plot")

	info := "No result yet."
	if s.Result != nil {
		info = fmt.Sprintf("%d rows from the last statement", len(s.Result.Rows))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(info),
		lipgloss.NewStyle().PaddingLeft(2).Render(props.ChartView),
		styles.FooterStyle.Render("[Tab] Next page • [Esc] Back"),
	)
}
