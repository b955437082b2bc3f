package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Level decides how a status row is drawn.
type Level int

const (
	LevelPending Level = iota
	LevelOK
	LevelDimmed
	LevelFailed
)

type statusUpdate struct {
	name  string
	state string
	level Level
	at    time.Time
}

type logLine string

type statusRow struct {
	state string
	level Level
	since time.Time
}

type statusModel struct {
	title   string
	spinner spinner.Model
	rows    map[string]statusRow
	order   []string
	logs    []string
	updates <-chan tea.Msg
	now     func() time.Time
}

const maxLogLines = 5

func newStatusModel(title string, updates <-chan tea.Msg) statusModel {
	s := spinner.New()
	s.Spinner = spinner.Globe
	s.Style = SpinnerStyle
	return statusModel{
		title:   title,
		spinner: s,
		rows:    make(map[string]statusRow),
		updates: updates,
		now:     time.Now,
	}
}

func (m statusModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m statusModel) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.updates
		if !ok {
			return tea.Quit()
		}
		return msg
	}
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case statusUpdate:
		row, seen := m.rows[msg.name]
		if !seen {
			m.order = append(m.order, msg.name)
			sort.Strings(m.order)
		}
		if !seen || row.state != msg.state {
			row.since = msg.at
		}
		row.state = msg.state
		row.level = msg.level
		m.rows[msg.name] = row
		return m, m.listen()
	case logLine:
		m.logs = append(m.logs, string(msg))
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
		return m, m.listen()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m statusModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(m.title))
	b.WriteString("\n")

	if len(m.order) == 0 {
		b.WriteString(m.spinner.View() + " " + MutedStyle.Render("starting..."))
		b.WriteString("\n")
	}
	for _, name := range m.order {
		row := m.rows[name]
		b.WriteString(m.renderRow(name, row))
		b.WriteString("\n")
	}

	for _, l := range m.logs {
		b.WriteString(MutedStyle.Render(l))
		b.WriteString("\n")
	}

	b.WriteString(FooterStyle.Render("Press q to quit"))
	return ContainerStyle.Render(b.String())
}

func (m statusModel) renderRow(name string, row statusRow) string {
	style := LevelStyle(row.level)
	elapsed := ""
	if !row.since.IsZero() && row.level != LevelFailed {
		elapsed = MutedStyle.Render(fmt.Sprintf(" (%s)", m.now().Sub(row.since).Truncate(time.Second)))
	}

	icon, label := m.spinner.View(), BoldStyle.Render(name)
	switch row.level {
	case LevelOK:
		icon = SuccessStyle.Render(IconSuccess)
	case LevelDimmed:
		icon, label = IconWarning, DimStyle.Render(name)
	case LevelFailed:
		icon = ErrorStyle.Render(IconError)
	}
	return fmt.Sprintf("%s %s  %s%s", icon, label, style.Render(row.state), elapsed)
}

// StatusUI shows named rows of connection state while a session runs.
type StatusUI struct {
	title   string
	updates chan tea.Msg
	program *tea.Program
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewStatusUI(title string) *StatusUI {
	return &StatusUI{
		title:   title,
		updates: make(chan tea.Msg, 64),
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background. Done is closed when it exits,
// either because the user quit or Stop was called.
func (u *StatusUI) Start() {
	u.program = tea.NewProgram(newStatusModel(u.title, u.updates))
	go func() {
		defer close(u.done)
		if _, err := u.program.Run(); err != nil {
			PrintErrorf("status display: %v", err)
		}
	}()
}

func (u *StatusUI) Done() <-chan struct{} {
	return u.done
}

func (u *StatusUI) Set(name, state string, level Level) {
	u.send(statusUpdate{name: name, state: state, level: level, at: time.Now()})
}

func (u *StatusUI) Logf(format string, args ...any) {
	u.send(logLine(fmt.Sprintf(format, args...)))
}

func (u *StatusUI) send(msg tea.Msg) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}
	select {
	case u.updates <- msg:
	default:
	}
}

// Stop closes the update stream and waits for the program to exit.
func (u *StatusUI) Stop() {
	u.mu.Lock()
	if !u.closed {
		u.closed = true
		close(u.updates)
	}
	u.mu.Unlock()
	if u.program != nil {
		<-u.done
	}
}
