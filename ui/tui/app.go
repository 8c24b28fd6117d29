package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"onager/internal/database"
	"onager/ui/tui/components"
	"onager/ui/tui/state"
	"onager/ui/tui/views"
)

const maxHistory = 100

// Runner executes one SQL statement. *database.Session implements it.
type Runner interface {
	Query(ctx context.Context, sql string) (*database.ResultSet, error)
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	runner        Runner
	state         state.ShellState
	input         textinput.Model
	spinner       spinner.Model
	chart         components.ResultView
	historyCursor int
	animCursor    float64
	velocity      float64 // Physics velocity
	spring        harmonica.Spring
	scrollY       int
	quitting      bool
	width         int
	height        int
}

// Messages
type AnimateMsg time.Time
type QueryDoneMsg struct {
	Query   string
	Result  *database.ResultSet
	Err     error
	Elapsed time.Duration
}

func InitialModel(runner Runner, functions []database.FunctionInfo) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	in := textinput.New()
	in.Prompt = "onager> "
	in.Placeholder = "SELECT * FROM onager_ctr_pagerank('SELECT src, dst FROM edges')"
	in.Focus()

	return MainModel{
		runner:  runner,
		input:   in,
		spinner: s,
		chart:   components.NewColumnChart(60, 12),
		spring:  harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9),
		state: state.ShellState{
			Functions:   functions,
			CurrentPage: state.PageQuery,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		animateCmd(),
	)
}

// Commands
func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func runQueryCmd(r Runner, query string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rs, err := r.Query(context.Background(), query)
		return QueryDoneMsg{Query: query, Result: rs, Err: err, Elapsed: time.Since(start)}
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case QueryDoneMsg:
		return m.handleQueryDoneMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.state.CurrentPage = m.state.CurrentPage.Next()
		m.scrollY = 0
		return m, nil
	case "esc":
		if m.state.CurrentPage == state.PageQuery {
			m.quitting = true
			return m, tea.Quit
		}
		m.state.CurrentPage = state.PageQuery
		m.scrollY = 0
		return m, nil
	}

	if m.state.CurrentPage != state.PageQuery {
		switch msg.String() {
		case "up", "k":
			if m.scrollY > 0 {
				m.scrollY--
			}
		case "down", "j":
			m.scrollY++
		}
		return m, nil
	}

	switch msg.String() {
	case "enter":
		return m.submit()
	case "up":
		m.moveHistory(-1)
		return m, nil
	case "down":
		m.moveHistory(1)
		return m, nil
	case "pgup":
		m.scrollY = max(m.scrollY-10, 0)
		return m, nil
	case "pgdown":
		m.scrollY += 10
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *MainModel) submit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.state.Running {
		return m, nil
	}
	m.state.History = append(m.state.History, query)
	if len(m.state.History) > maxHistory {
		m.state.History = m.state.History[1:]
	}
	m.historyCursor = len(m.state.History)
	m.state.Running = true
	m.input.Reset()
	return m, runQueryCmd(m.runner, query)
}

// moveHistory steps through past statements. The position one past the last
// entry is the empty prompt.
func (m *MainModel) moveHistory(delta int) {
	n := len(m.state.History)
	m.historyCursor = min(max(m.historyCursor+delta, 0), n)
	if m.historyCursor == n {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.state.History[m.historyCursor])
	m.input.CursorEnd()
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	var v float64 = m.velocity
	m.animCursor, v = m.spring.Update(m.animCursor, float64(m.historyCursor), v)
	m.velocity = v
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.input.Width = max(msg.Width-12, 10)
	newW := msg.Width - 10
	if newW > 10 {
		m.chart.Resize(newW, max(msg.Height-12, 5))
	}
	return m, nil
}

func (m *MainModel) handleQueryDoneMsg(msg QueryDoneMsg) (tea.Model, tea.Cmd) {
	m.state.Running = false
	m.state.Elapsed = msg.Elapsed
	m.state.LastUpdate = time.Now()
	m.scrollY = 0
	if msg.Err != nil {
		m.state.Err = msg.Err
		return m, nil
	}
	m.state.Err = nil
	m.state.Result = msg.Result
	m.chart.SetResult(msg.Result)
	return m, nil
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || m.state.CurrentPage != state.PageQuery {
		return m, nil
	}
	for i := range m.state.History {
		if zone.Get(views.HistoryZone(i)).InBounds(msg) {
			m.historyCursor = i
			m.input.SetValue(m.state.History[i])
			m.input.CursorEnd()
			return m, nil
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageFunctions:
		return views.RenderFunctions(m.state, m.width, m.height, m.scrollY)
	case state.PageChart:
		return views.RenderChart(m.state, m.chart.View(), m.width, m.height)
	default:
		return views.RenderQuery(m.state, views.ViewProps{
			Width:         m.width,
			Height:        m.height,
			HistoryCursor: m.historyCursor,
			AnimCursor:    m.animCursor,
			SpinnerView:   m.spinner.View(),
			InputView:     m.input.View(),
			ScrollY:       m.scrollY,
		})
	}
}

// Start runs the shell until the user quits.
func Start(runner Runner, functions []database.FunctionInfo) error {
	m := InitialModel(runner, functions)
	p := tea.NewProgram(
		&m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
