package ui

import (
	"fmt"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/utils"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	pretty "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const maxCell = 60

// ListTable renders one titled column of names, as returned by the
// streamer's listing endpoints.
func ListTable(title string, items []string) string {
	if len(items) == 0 {
		return MutedStyle.Render(fmt.Sprintf("No %s", title))
	}

	t := pretty.NewWriter()
	t.SetTitle(title)
	t.SetStyle(pretty.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.AppendHeader(pretty.Row{"#", "Name"})
	for i, item := range items {
		t.AppendRow(pretty.Row{i + 1, utils.TruncateString(item, maxCell)})
	}
	return t.Render()
}

// SessionSummary describes a finished viewer session.
type SessionSummary struct {
	PeerID   string
	Stream   string
	State    string
	Duration time.Duration
	Records  []string
}

func SessionSummaryView(s SessionSummary) string {
	rows := [][]string{
		{"Peer", s.PeerID},
		{"Stream", utils.TruncateString(s.Stream, maxCell)},
		{"Final state", s.State},
		{"Duration", utils.FormatTimeDuration(s.Duration)},
	}
	for _, r := range s.Records {
		rows = append(rows, []string{"Recording", utils.TruncateString(r, maxCell)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Metric", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

func RenderSessionSummary(s SessionSummary) {
	fmt.Println(SessionSummaryView(s))
}

// ServerInfo is shown before a session starts.
type ServerInfo struct {
	Streamer string
	Version  string
	Target   string
}

func (s ServerInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	version := s.Version
	if version == "" {
		version = "unknown"
	}
	content := fmt.Sprintf("%s Connecting\n\n%s Streamer:  %s\n%s Version:   %s\n%s Target:    %s",
		IconConnect,
		IconServer, BoldStyle.Foreground(Primary).Render(s.Streamer),
		IconInfo, MutedStyle.Render(version),
		IconStream, BoldStyle.Render(utils.TruncateString(s.Target, maxCell)),
	)

	return boxStyle.Render(content)
}
