package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"onager/ui/tui/state"
	"onager/ui/tui/styles"
)

type FunctionsView struct{}

func (v FunctionsView) Render(s state.ShellState, props ViewProps) string {
	header := styles.HeaderStyle.Width(props.Width).Render("Function Catalog")

	var b strings.Builder
	for _, f := range s.Functions {
		fmt.Fprintf(&b, "%-10s %s\n", f.Kind, f.Signature)
	}

	availableHeight := max(props.Height-lipgloss.Height(header)-4, 1)
	visible, scrollY, total := window(strings.TrimRight(b.String(), "\n"), props.ScrollY, availableHeight)

	box := lipgloss.NewStyle().
		Width(max(props.Width-4, 20)).
		Height(availableHeight).
		Padding(0, 1).
		Render(visible)

	footerText := fmt.Sprintf("Scroll: %d/%d • [Tab] Next page • [Esc] Back", scrollY, total)
	if total > availableHeight {
		footerText += " • Use ↑/↓ to scroll"
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().Padding(1, 2).Render(box),
		styles.FooterStyle.Render(footerText),
	)
}
