package views

import (
	"onager/ui/tui/state"
)

func RenderQuery(s state.ShellState, props ViewProps) string {
	return QueryView{}.Render(s, props)
}

func RenderFunctions(s state.ShellState, width, height, scrollY int) string {
	return FunctionsView{}.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}

func RenderChart(s state.ShellState, chartView string, width, height int) string {
	return ChartView{}.Render(s, ViewProps{
		Width:     width,
		Height:    height,
		ChartView: chartView,
	})
}
