package input

import (
	"fmt"
	"strings"

	"github.com/BioHazard786/rtcstreamer/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
)

// Capture is a bubbletea model turning terminal keys and mouse events into
// bridge events. q and ctrl+c quit.
type Capture struct {
	bridge *Bridge
	title  string
	last   string
	width  int
	height int
}

func NewCapture(bridge *Bridge, title string) Capture {
	return Capture{bridge: bridge, title: title}
}

// Run starts the capture program with mouse motion reporting enabled.
func (m Capture) Run() error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
	return err
}

func (m Capture) Init() tea.Cmd {
	return nil
}

func (m Capture) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		p := keyPress(msg)
		m.bridge.Press(p)
		m.last = "key " + msg.String()

	case tea.MouseMsg:
		c := Click{X: msg.X, Y: msg.Y, Button: buttonName(msg.Button), Action: actionName(msg.Action)}
		m.bridge.Click(c)
		m.last = fmt.Sprintf("%s %s at %d,%d", c.Button, c.Action, c.X, c.Y)
	}
	return m, nil
}

func (m Capture) View() string {
	sent, dropped := m.bridge.Stats()

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(ui.MutedStyle.Render("Keys and mouse are forwarded to the stream. Press q to quit."))
	b.WriteString("\n\n")
	if m.last != "" {
		b.WriteString(ui.BoldStyle.Render("Last: ") + m.last + "\n")
	}
	b.WriteString(fmt.Sprintf("%s %d  %s %d\n",
		ui.SuccessStyle.Render("sent"), sent,
		ui.WarningStyle.Render("dropped"), dropped))
	return ui.ContainerStyle.Render(b.String())
}

// keyPress splits modifier prefixes off a bubbletea key name.
func keyPress(msg tea.KeyMsg) Press {
	name := msg.String()
	p := Press{}
	if strings.HasPrefix(name, "alt+") {
		p.Alt = true
		name = strings.TrimPrefix(name, "alt+")
	}
	if strings.HasPrefix(name, "ctrl+") {
		p.Ctrl = true
		name = strings.TrimPrefix(name, "ctrl+")
	}
	p.Key = name
	return p
}

func buttonName(b tea.MouseButton) string {
	switch b {
	case tea.MouseButtonLeft:
		return "left"
	case tea.MouseButtonMiddle:
		return "middle"
	case tea.MouseButtonRight:
		return "right"
	case tea.MouseButtonWheelUp:
		return "wheelup"
	case tea.MouseButtonWheelDown:
		return "wheeldown"
	case tea.MouseButtonWheelLeft:
		return "wheelleft"
	case tea.MouseButtonWheelRight:
		return "wheelright"
	default:
		return "none"
	}
}

func actionName(a tea.MouseAction) string {
	switch a {
	case tea.MouseActionPress:
		return ActionPress
	case tea.MouseActionRelease:
		return ActionRelease
	default:
		return ActionMotion
	}
}
