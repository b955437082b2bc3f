package input

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pion/webrtc/v4"
)

func TestBatcherCoalescesMotion(t *testing.T) {
	b := NewBatcher(true)
	b.Click(Click{X: 1, Y: 1, Button: "none", Action: ActionMotion})
	b.Click(Click{X: 2, Y: 2, Button: "none", Action: ActionMotion})
	b.Click(Click{X: 3, Y: 3, Button: "left", Action: ActionPress})
	b.Click(Click{X: 4, Y: 4, Button: "left", Action: ActionMotion})
	b.Click(Click{X: 5, Y: 5, Button: "left", Action: ActionMotion})
	b.Click(Click{X: 6, Y: 6, Button: "left", Action: ActionRelease})
	b.Click(Click{X: 7, Y: 7, Button: "none", Action: ActionMotion})

	got := b.Flush().Clicks
	want := []Click{
		{X: 2, Y: 2, Button: "none", Action: ActionMotion},
		{X: 3, Y: 3, Button: "left", Action: ActionPress},
		{X: 5, Y: 5, Button: "left", Action: ActionMotion},
		{X: 6, Y: 6, Button: "left", Action: ActionRelease},
		{X: 7, Y: 7, Button: "none", Action: ActionMotion},
	}
	if len(got) != len(want) {
		t.Fatalf("clicks = %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("clicks[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBatcherWithoutCoalescing(t *testing.T) {
	b := NewBatcher(false)
	for i := 0; i < 3; i++ {
		b.Click(Click{X: i, Action: ActionMotion, Button: "none"})
	}
	if n := len(b.Flush().Clicks); n != 3 {
		t.Errorf("clicks = %d, want 3", n)
	}
}

func TestFlushResetsAndKeepsArrays(t *testing.T) {
	b := NewBatcher(true)
	b.Press(Press{Key: "a"})
	if b.Len() != 1 {
		t.Fatalf("Len = %d", b.Len())
	}
	b.Flush()

	data, err := JSONCodec{}.Marshal(b.Flush())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"presses":[],"clicks":[]}` {
		t.Errorf("empty batch = %s", data)
	}
}

func TestMsgpackCodec(t *testing.T) {
	in := Batch{Presses: []Press{{Key: "a", Ctrl: true}}, Clicks: []Click{{X: 10, Y: 20, Button: "left", Action: ActionPress}}}
	data, err := MsgpackCodec{}.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out Batch
	if err := (MsgpackCodec{}).Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Presses) != 1 || out.Presses[0] != in.Presses[0] || out.Clicks[0] != in.Clicks[0] {
		t.Errorf("decoded = %+v", out)
	}
}

func TestCodecByName(t *testing.T) {
	for _, name := range []string{"", "json", "msgpack"} {
		if _, err := CodecByName(name); err != nil {
			t.Errorf("CodecByName(%q): %v", name, err)
		}
	}
	if _, err := CodecByName("xml"); err == nil {
		t.Error("xml codec accepted")
	}
}

type fakeChannel struct {
	mu    sync.Mutex
	state webrtc.DataChannelState
	sent  [][]byte
	err   error
}

func (f *fakeChannel) ReadyState() webrtc.DataChannelState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Send(b []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, b)
	return nil
}

func (f *fakeChannel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestBridgeDropsWhenClosed(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateConnecting}
	b := NewBridge(ch)

	b.Press(Press{Key: "a"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if ch.count() != 0 {
		t.Error("sent on a channel that is not open")
	}
	if sent, dropped := b.Stats(); sent != 0 || dropped != 1 {
		t.Errorf("stats = %d/%d", sent, dropped)
	}

	ch.mu.Lock()
	ch.state = webrtc.DataChannelStateOpen
	ch.mu.Unlock()

	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if ch.count() != 0 {
		t.Error("dropped events were delivered later")
	}
}

func TestBridgeSendsJSON(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateOpen}
	b := NewBridge(ch)

	b.Press(Press{Key: "enter"})
	b.Click(Click{X: 1, Y: 2, Button: "left", Action: ActionPress})
	if err := b.Flush(); err != nil {
		t.Fatal(err)
	}
	if ch.count() != 1 {
		t.Fatalf("sent %d batches", ch.count())
	}
	want := `{"presses":[{"key":"enter","alt":false,"ctrl":false}],"clicks":[{"x":1,"y":2,"button":"left","action":"press"}]}`
	if string(ch.sent[0]) != want {
		t.Errorf("payload = %s", ch.sent[0])
	}

	if err := b.Flush(); err != nil || ch.count() != 1 {
		t.Errorf("empty flush sent a batch: %v", err)
	}
}

func TestBridgeSendError(t *testing.T) {
	boom := errors.New("boom")
	ch := &fakeChannel{state: webrtc.DataChannelStateOpen, err: boom}
	b := NewBridge(ch, WithCodec(MsgpackCodec{}))
	b.Press(Press{Key: "a"})
	if err := b.Flush(); !errors.Is(err, boom) {
		t.Errorf("Flush = %v", err)
	}
}

func TestBridgeRunFlushesOnCancel(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateOpen}
	b := NewBridge(ch, WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	b.Press(Press{Key: "x"})
	cancel()
	<-done

	if ch.count() != 1 {
		t.Errorf("sent %d batches, want 1", ch.count())
	}
}

func TestCaptureForwardsEvents(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateOpen}
	b := NewBridge(ch, WithCoalescing(false))
	var m tea.Model = NewCapture(b, "test")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x"), Alt: true})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlA})
	m, _ = m.Update(tea.MouseMsg{X: 3, Y: 4, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})

	batch := b.batcher.Flush()
	if len(batch.Presses) != 2 {
		t.Fatalf("presses = %+v", batch.Presses)
	}
	if batch.Presses[0] != (Press{Key: "x", Alt: true}) {
		t.Errorf("alt press = %+v", batch.Presses[0])
	}
	if batch.Presses[1] != (Press{Key: "a", Ctrl: true}) {
		t.Errorf("ctrl press = %+v", batch.Presses[1])
	}
	if len(batch.Clicks) != 1 || batch.Clicks[0] != (Click{X: 3, Y: 4, Button: "left", Action: ActionPress}) {
		t.Errorf("clicks = %+v", batch.Clicks)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not return tea.Quit")
	}
	if m.View() == "" {
		t.Error("empty view")
	}
}
