package views

import (
	"onager/ui/tui/state"
)

// ViewProps contains UI-specific properties provided by the Controller.
type ViewProps struct {
	Width, Height int

	// Component States
	HistoryCursor int
	AnimCursor    float64
	SpinnerView   string
	InputView     string
	ChartView     string
	ScrollY       int
}

// View defines the contract for any renderable page in the TUI.
type View interface {
	Render(s state.ShellState, props ViewProps) string
}
