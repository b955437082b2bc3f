// Package input forwards local keyboard and mouse events to the remote
// streamer over the session data channel.
package input

import "sync"

// Mouse actions carried by a Click.
const (
	ActionPress   = "press"
	ActionRelease = "release"
	ActionMotion  = "motion"
)

// Press is a key press.
type Press struct {
	Key  string `json:"key" msgpack:"key"`
	Alt  bool   `json:"alt" msgpack:"alt"`
	Ctrl bool   `json:"ctrl" msgpack:"ctrl"`
}

// Click is a mouse sample. Button is the button held during motion, or the
// button pressed or released.
type Click struct {
	X      int    `json:"x" msgpack:"x"`
	Y      int    `json:"y" msgpack:"y"`
	Button string `json:"button" msgpack:"button"`
	Action string `json:"action" msgpack:"action"`
}

// Batch is one data channel payload. Both arrays are always present.
type Batch struct {
	Presses []Press `json:"presses" msgpack:"presses"`
	Clicks  []Click `json:"clicks" msgpack:"clicks"`
}

func (b Batch) Empty() bool {
	return len(b.Presses) == 0 && len(b.Clicks) == 0
}

// Batcher accumulates events between flushes.
type Batcher struct {
	coalesce bool

	mu      sync.Mutex
	presses []Press
	clicks  []Click
}

// NewBatcher returns a Batcher. With coalesce set, consecutive motion samples
// under the same button state collapse into the newest one.
func NewBatcher(coalesce bool) *Batcher {
	return &Batcher{coalesce: coalesce}
}

func (b *Batcher) Press(p Press) {
	b.mu.Lock()
	b.presses = append(b.presses, p)
	b.mu.Unlock()
}

func (b *Batcher) Click(c Click) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.coalesce && c.Action == ActionMotion {
		if n := len(b.clicks); n > 0 {
			last := b.clicks[n-1]
			if last.Action == ActionMotion && last.Button == c.Button {
				b.clicks[n-1] = c
				return
			}
		}
	}
	b.clicks = append(b.clicks, c)
}

// Len reports the number of pending events.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.presses) + len(b.clicks)
}

// Flush returns the pending events and resets the batcher.
func (b *Batcher) Flush() Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := Batch{Presses: b.presses, Clicks: b.clicks}
	if batch.Presses == nil {
		batch.Presses = []Press{}
	}
	if batch.Clicks == nil {
		batch.Clicks = []Click{}
	}
	b.presses = nil
	b.clicks = nil
	return batch
}
