package input

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/streamer"
	"github.com/pion/webrtc/v4"
)

// DefaultInterval is how often pending events are sent.
const DefaultInterval = 50 * time.Millisecond

// Channel is where batches are written.
type Channel interface {
	ReadyState() webrtc.DataChannelState
	Send([]byte) error
}

type clientChannel struct {
	c *streamer.Client
}

// FromClient follows the client's active data channel across sessions.
func FromClient(c *streamer.Client) Channel {
	return clientChannel{c: c}
}

func (cc clientChannel) ReadyState() webrtc.DataChannelState {
	dc := cc.c.DataChannel()
	if dc == nil {
		return webrtc.DataChannelStateClosed
	}
	return dc.ReadyState()
}

func (cc clientChannel) Send(data []byte) error {
	return cc.c.Send(data)
}

// Bridge batches events and forwards them over a Channel. Batches flushed
// while the channel is not open are dropped.
type Bridge struct {
	ch       Channel
	codec    Codec
	batcher  *Batcher
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	sent    int
	dropped int
}

type BridgeOption func(*Bridge)

func WithCodec(c Codec) BridgeOption {
	return func(b *Bridge) { b.codec = c }
}

func WithInterval(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.interval = d }
}

// WithCoalescing toggles collapsing of consecutive motion samples.
func WithCoalescing(on bool) BridgeOption {
	return func(b *Bridge) { b.batcher = NewBatcher(on) }
}

func WithLogger(l *slog.Logger) BridgeOption {
	return func(b *Bridge) { b.logger = l }
}

func NewBridge(ch Channel, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		ch:       ch,
		codec:    JSONCodec{},
		batcher:  NewBatcher(true),
		interval: DefaultInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) Press(p Press) {
	b.batcher.Press(p)
}

func (b *Bridge) Click(c Click) {
	b.batcher.Click(c)
}

// Flush sends the pending batch now. Nothing is sent for an empty batch.
func (b *Bridge) Flush() error {
	batch := b.batcher.Flush()
	if batch.Empty() {
		return nil
	}

	if b.ch == nil || b.ch.ReadyState() != webrtc.DataChannelStateOpen {
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		return nil
	}

	data, err := b.codec.Marshal(batch)
	if err != nil {
		return err
	}
	if err := b.ch.Send(data); err != nil {
		if errors.Is(err, streamer.ErrChannelNotOpen) {
			b.mu.Lock()
			b.dropped++
			b.mu.Unlock()
			return nil
		}
		return err
	}

	b.mu.Lock()
	b.sent++
	b.mu.Unlock()
	return nil
}

// Run flushes on every interval until ctx is done, then flushes once more.
func (b *Bridge) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.logger.Warn("input send failed", "err", err)
			}
		case <-ctx.Done():
			if err := b.Flush(); err != nil {
				b.logger.Debug("final input flush failed", "err", err)
			}
			return
		}
	}
}

// Stats reports how many batches were sent and dropped.
func (b *Bridge) Stats() (sent, dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sent, b.dropped
}
