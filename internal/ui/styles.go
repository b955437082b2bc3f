package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	Primary = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Error   = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Error).Bold(true)
	SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)

	// DimStyle greys out a row whose connection dropped.
	DimStyle = lipgloss.NewStyle().Foreground(Muted).Faint(true).Strikethrough(true)

	ContainerStyle = lipgloss.NewStyle().Margin(1, 2)
	FooterStyle    = lipgloss.NewStyle().Foreground(Muted).MarginTop(1)

	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary).Padding(0, 1)
	TableRowStyle    = lipgloss.NewStyle().Padding(0, 1)
	TableRowAltStyle = lipgloss.NewStyle().Foreground(Muted).Padding(0, 1)
)

const (
	IconSuccess  = "✅"
	IconError    = "❌"
	IconWarning  = "⚠️"
	IconInfo     = "ℹ️"
	IconStream   = "📺"
	IconRoom     = "🚪"
	IconConnect  = "🔌"
	IconKeyboard = "⌨️"
	IconServer   = "🌐"
)

// LevelStyle is the text style for a status row at level l.
func LevelStyle(l Level) lipgloss.Style {
	switch l {
	case LevelOK:
		return SuccessStyle
	case LevelDimmed:
		return DimStyle
	case LevelFailed:
		return ErrorStyle
	default:
		return WarningStyle
	}
}

func PrintError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintErrorf(format string, args ...any) {
	PrintError(fmt.Sprintf(format, args...))
}

func PrintWarningf(format string, args ...any) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(fmt.Sprintf(format, args...)))
}

func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), msg)
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}

func PrintInfof(format string, args ...any) {
	PrintInfo(fmt.Sprintf(format, args...))
}
