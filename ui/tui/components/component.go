package components

import "onager/internal/database"

// ResultView renders the latest query result in the chart pane. The shell
// feeds it every finished query and every terminal resize.
type ResultView interface {
	// SetResult replaces the shown data and reports whether rs had anything
	// the view can display.
	SetResult(rs *database.ResultSet) bool
	Resize(width, height int)
	View() string
}
