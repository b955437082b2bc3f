package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestStatusModelRows(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newStatusModel("viewer", make(chan tea.Msg))
	m.now = func() time.Time { return start.Add(3 * time.Second) }

	var model tea.Model = m
	model, _ = model.Update(statusUpdate{name: "stream", state: "connected", level: LevelOK, at: start})
	model, _ = model.Update(statusUpdate{name: "ice", state: "disconnected", level: LevelDimmed, at: start})

	view := model.View()
	for _, want := range []string{"stream", "connected", "ice", "disconnected", "3s"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	sm := model.(statusModel)
	if got := strings.Join(sm.order, ","); got != "ice,stream" {
		t.Errorf("order = %q", got)
	}
}

func TestStatusModelKeepsSinceForSameState(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var model tea.Model = newStatusModel("viewer", make(chan tea.Msg))
	model, _ = model.Update(statusUpdate{name: "room", state: "up", level: LevelOK, at: start})
	model, _ = model.Update(statusUpdate{name: "room", state: "up", level: LevelOK, at: start.Add(time.Minute)})

	if got := model.(statusModel).rows["room"].since; !got.Equal(start) {
		t.Errorf("since = %v, want %v", got, start)
	}
}

func TestStatusModelTrimsLogs(t *testing.T) {
	var model tea.Model = newStatusModel("viewer", make(chan tea.Msg))
	for i := 0; i < maxLogLines+3; i++ {
		model, _ = model.Update(logLine(strings.Repeat("x", i+1)))
	}
	logs := model.(statusModel).logs
	if len(logs) != maxLogLines {
		t.Fatalf("kept %d log lines", len(logs))
	}
	if logs[len(logs)-1] != strings.Repeat("x", maxLogLines+3) {
		t.Errorf("newest line lost: %q", logs[len(logs)-1])
	}
}

func TestStatusUISendAfterStop(t *testing.T) {
	u := NewStatusUI("viewer")
	u.Stop()
	u.Set("stream", "connected", LevelOK)
	u.Logf("ignored %d", 1)
}

func TestListTable(t *testing.T) {
	out := ListTable("Streams", []string{"rtsp://cam/1", "videocap://0"})
	for _, want := range []string{"Streams", "rtsp://cam/1", "videocap://0", "2"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if empty := ListTable("peers", nil); !strings.Contains(empty, "No peers") {
		t.Errorf("empty table = %q", empty)
	}
}

func TestSessionSummaryView(t *testing.T) {
	out := SessionSummaryView(SessionSummary{
		PeerID:   "peer-1",
		Stream:   "rtsp://cam/1",
		State:    "disconnected",
		Duration: 90 * time.Second,
		Records:  []string{"video_1.ivf"},
	})
	for _, want := range []string{"peer-1", "rtsp://cam/1", "disconnected", "video_1.ivf"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
