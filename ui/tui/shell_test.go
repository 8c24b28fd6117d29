package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"onager/internal/database"
	"onager/ui/tui/components"
	"onager/ui/tui/state"
	"onager/ui/tui/views"
)

// MockRunner records statements and returns a canned result.
type MockRunner struct {
	Result  *database.ResultSet
	Err     error
	Queries []string
}

func (r *MockRunner) Query(ctx context.Context, sql string) (*database.ResultSet, error) {
	r.Queries = append(r.Queries, sql)
	return r.Result, r.Err
}

func rankResult() *database.ResultSet {
	return &database.ResultSet{
		Columns: []string{"node_id", "rank"},
		Rows:    [][]any{{int64(1), 0.5}, {int64(2), 0.25}, {int64(3), 0.25}},
	}
}

func TestSubmitRunsQuery(t *testing.T) {
	runner := &MockRunner{Result: rankResult()}
	model := InitialModel(runner, nil)
	model.input.SetValue("  SELECT 1  ")

	updatedModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m := updatedModel.(*MainModel)

	if cmd == nil {
		t.Fatal("Expected a command to run the query")
	}
	if !m.state.Running {
		t.Error("Expected state to be running")
	}
	if len(m.state.History) != 1 || m.state.History[0] != "SELECT 1" {
		t.Errorf("Expected trimmed statement in history, got %v", m.state.History)
	}
	if m.input.Value() != "" {
		t.Errorf("Expected input to be cleared, got %q", m.input.Value())
	}

	msg := cmd()
	done, ok := msg.(QueryDoneMsg)
	if !ok {
		t.Fatalf("Expected QueryDoneMsg, got %T", msg)
	}
	if len(runner.Queries) != 1 || runner.Queries[0] != "SELECT 1" {
		t.Errorf("Runner received %v", runner.Queries)
	}

	updatedModel, _ = m.Update(done)
	m = updatedModel.(*MainModel)

	if m.state.Running {
		t.Error("Expected running to be cleared")
	}
	if m.state.Result != runner.Result {
		t.Error("Expected result to be stored")
	}
	chart, ok := m.chart.(*components.ColumnChart)
	if !ok {
		t.Fatalf("Expected a column chart, got %T", m.chart)
	}
	if chart.Title != "rank" || len(chart.Values) != 3 {
		t.Errorf("Expected chart of rank column, got %q with %d values", chart.Title, len(chart.Values))
	}
}

func TestSubmitError(t *testing.T) {
	model := InitialModel(&MockRunner{}, nil)
	model.state.Result = rankResult()

	updatedModel, _ := model.Update(QueryDoneMsg{Query: "SELECT x", Err: errors.New("no such column")})
	m := updatedModel.(*MainModel)

	if m.state.Err == nil {
		t.Fatal("Expected error to be stored")
	}
	if m.state.Result == nil {
		t.Error("Expected previous result to survive a failed statement")
	}
}

func TestEmptySubmitIgnored(t *testing.T) {
	model := InitialModel(&MockRunner{}, nil)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Expected no command for an empty statement")
	}

	model.input.SetValue("SELECT 1")
	model.state.Running = true
	_, cmd = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("Expected no command while a statement is running")
	}
}

func TestTypingGoesToInput(t *testing.T) {
	model := InitialModel(&MockRunner{}, nil)

	updatedModel, _ := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	m := updatedModel.(*MainModel)

	if m.input.Value() != "x" {
		t.Errorf("Expected input 'x', got %q", m.input.Value())
	}
}

func TestHistoryNavigation(t *testing.T) {
	model := InitialModel(&MockRunner{}, nil)
	model.state.History = []string{"a", "b"}
	model.historyCursor = 2

	steps := []struct {
		key    tea.KeyType
		cursor int
		value  string
	}{
		{tea.KeyUp, 1, "b"},
		{tea.KeyUp, 0, "a"},
		{tea.KeyUp, 0, "a"},
		{tea.KeyDown, 1, "b"},
		{tea.KeyDown, 2, ""},
		{tea.KeyDown, 2, ""},
	}

	m := &model
	for i, step := range steps {
		updatedModel, _ := m.Update(tea.KeyMsg{Type: step.key})
		m = updatedModel.(*MainModel)
		if m.historyCursor != step.cursor || m.input.Value() != step.value {
			t.Errorf("step %d: cursor=%d value=%q, want %d %q", i, m.historyCursor, m.input.Value(), step.cursor, step.value)
		}
	}
}

func TestPageTransition(t *testing.T) {
	model := InitialModel(&MockRunner{}, nil)

	want := []state.Page{state.PageFunctions, state.PageChart, state.PageQuery}
	m := &model
	for _, page := range want {
		updatedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = updatedModel.(*MainModel)
		if m.state.CurrentPage != page {
			t.Errorf("Expected page %v, got %v", page, m.state.CurrentPage)
		}
	}

	updatedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = updatedModel.(*MainModel)
	updatedModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updatedModel.(*MainModel)
	if m.state.CurrentPage != state.PageQuery || cmd != nil {
		t.Errorf("Expected Esc to return to the query page, got %v", m.state.CurrentPage)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil || !m.quitting {
		t.Error("Expected Esc on the query page to quit")
	}
}

func TestHistoryAnimation(t *testing.T) {
	model := InitialModel(&MockRunner{}, nil)
	model.historyCursor = 1

	animateMsg := AnimateMsg(time.Now())
	updatedModel, _ := model.Update(animateMsg)
	m := updatedModel.(*MainModel)

	if m.animCursor <= 0 || m.animCursor >= 1.0 {
		t.Errorf("Expected animCursor between 0 and 1 after one frame, got %f", m.animCursor)
	}

	prev := m.animCursor
	updatedModel, _ = m.Update(animateMsg)
	m = updatedModel.(*MainModel)
	if m.animCursor <= prev {
		t.Errorf("Expected animCursor to keep increasing, got %f (prev %f)", m.animCursor, prev)
	}
}

func TestNumericColumn(t *testing.T) {
	tests := []struct {
		name string
		rs   *database.ResultSet
		want int
	}{
		{"nil", nil, -1},
		{"last float", rankResult(), 1},
		{"strings only", &database.ResultSet{Columns: []string{"name"}, Rows: [][]any{{"g"}}}, -1},
		{
			"skips null column",
			&database.ResultSet{Columns: []string{"n", "x"}, Rows: [][]any{{int64(1), nil}, {int64(2), nil}}},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := components.NumericColumn(tt.rs); got != tt.want {
				t.Errorf("NumericColumn() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestQueryViewRender(t *testing.T) {
	zone.NewGlobal()

	s := state.ShellState{
		History: []string{"SELECT 1"},
		Result:  rankResult(),
	}
	out := views.RenderQuery(s, views.ViewProps{Width: 140, Height: 40, HistoryCursor: 0})
	for _, want := range []string{"HISTORY", "SELECT 1", "node_id", "(3 rows)"} {
		if !strings.Contains(out, want) {
			t.Errorf("query view missing %q", want)
		}
	}

	s.Err = errors.New("boom")
	if out := views.RenderQuery(s, views.ViewProps{Width: 140, Height: 40}); !strings.Contains(out, "Error: boom") {
		t.Error("query view should show the error")
	}
}
