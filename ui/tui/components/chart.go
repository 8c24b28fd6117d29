package components

import (
	"math"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	"github.com/charmbracelet/lipgloss"

	"onager/internal/database"
	"onager/ui/tui/styles"
)

var _ ResultView = (*ColumnChart)(nil)

// ColumnChart plots one numeric result column against row position.
type ColumnChart struct {
	Chart  linechart.Model
	Title  string
	Values []float64
	Width  int
	Height int
}

func NewColumnChart(width, height int) *ColumnChart {
	// width, height, minX, maxX, minY, maxY
	return &ColumnChart{
		Chart:  linechart.New(width, height, 0, 1, 0, 1),
		Width:  width,
		Height: height,
	}
}

// SetResult plots the last numeric column of rs. Non-finite values are
// skipped. It reports whether a column was found.
func (c *ColumnChart) SetResult(rs *database.ResultSet) bool {
	c.Title, c.Values = "", nil
	col := NumericColumn(rs)
	if col < 0 {
		c.Chart = linechart.New(c.Width, c.Height, 0, 1, 0, 1)
		return false
	}
	c.Title = rs.Columns[col]
	for _, row := range rs.Rows {
		if f, ok := toFloat(row[col]); ok && !math.IsInf(f, 0) && !math.IsNaN(f) {
			c.Values = append(c.Values, f)
		}
	}
	c.rescale()
	return true
}

func (c *ColumnChart) rescale() {
	minY, maxY := 0.0, 1.0
	if len(c.Values) > 0 {
		minY, maxY = c.Values[0], c.Values[0]
		for _, v := range c.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
		if minY == maxY {
			minY, maxY = minY-1, maxY+1
		}
	}
	maxX := math.Max(float64(len(c.Values)-1), 1)
	c.Chart = linechart.New(c.Width, c.Height, 0, maxX, minY, maxY)
}

func (c *ColumnChart) Resize(w, h int) {
	c.Width = w
	c.Height = h
	c.rescale()
}

func (c *ColumnChart) View() string {
	c.Chart.Clear()
	for i := 0; i < len(c.Values)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.Values[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.Values[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()

	title := "No numeric column"
	if c.Title != "" {
		title = c.Title
	}
	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(title),
			c.Chart.View(),
		),
	)
}

// NumericColumn returns the index of the last column whose first non-NULL
// value is numeric, or -1.
func NumericColumn(rs *database.ResultSet) int {
	if rs == nil {
		return -1
	}
	for col := len(rs.Columns) - 1; col >= 0; col-- {
		for _, row := range rs.Rows {
			if row[col] == nil {
				continue
			}
			if _, ok := toFloat(row[col]); ok {
				return col
			}
			break
		}
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
