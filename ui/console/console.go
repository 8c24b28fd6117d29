package console

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"onager/internal/database"
)

var (
	colorHeader = lipgloss.Color("36")
	colorBorder = lipgloss.Color("240")
	colorNull   = lipgloss.Color("244")
	colorRed    = lipgloss.Color("196")
	colorGreen  = lipgloss.Color("46")
	colorYellow = lipgloss.Color("220")
)

// Table renders a result set as a bordered table with a row count footer.
func Table(rs *database.ResultSet) string {
	if rs == nil {
		return ""
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(rs.Columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true).Foreground(colorHeader)
			}
			if row >= 0 && row < len(rs.Rows) && col < len(rs.Rows[row]) && rs.Rows[row][col] == nil {
				return s.Foreground(colorNull)
			}
			return s
		})
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		t.Row(cells...)
	}
	return t.String() + "\n" + rowCount(len(rs.Rows))
}

// Print writes the table for rs to w.
func Print(w io.Writer, rs *database.ResultSet) {
	fmt.Fprintln(w, Table(rs))
}

// PrintFunctions writes the SQL function catalog to w.
func PrintFunctions(w io.Writer, fns []database.FunctionInfo) {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers("name", "kind", "signature").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return s.Bold(true).Foreground(colorHeader)
			case col == 1 && row >= 0 && row < len(fns):
				return s.Foreground(colorFor(fns[row].Kind))
			}
			return s
		})
	for _, f := range fns {
		t.Row(f.Name, f.Kind, f.Signature)
	}
	fmt.Fprintln(w, t.String())
}

// PrintError writes err to w in red.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, lipgloss.NewStyle().Foreground(colorRed).Render("Error: "+err.Error()))
}

// FormatValue renders a scanned DuckDB value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return strconv.FormatFloat(x, 'f', -1, 64)
		}
		return strconv.FormatFloat(x, 'g', 6, 64)
	case float32:
		return FormatValue(float64(x))
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}

func colorFor(kind string) lipgloss.Color {
	switch kind {
	case "registry":
		return colorYellow
	case "generator":
		return colorHeader
	default:
		return colorGreen
	}
}
