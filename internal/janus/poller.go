package janus

import (
	"context"
	"sync"
	"time"
)

func unixMilli() int64 {
	return time.Now().UnixMilli()
}

// poller watches one session for webrtcup and hangup events and keeps the
// session alive once media is up. It repeats the poll after any failure.
type poller struct {
	room      *VideoRoom
	name      string
	sessionID int64

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	stopAlive context.CancelFunc
}

func (r *VideoRoom) startPoller(name string, sessionID int64) *poller {
	ctx, cancel := context.WithCancel(context.Background())
	p := &poller{
		room:      r,
		name:      name,
		sessionID: sessionID,
		cancel:    cancel,
	}
	p.wg.Add(1)
	go p.run(ctx)
	return p
}

func (p *poller) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.stopKeepAlive()

	for {
		if ctx.Err() != nil {
			return
		}

		ev, err := p.room.transport.Poll(ctx, p.sessionID)
		if err == nil {
			// an expired session is answered with 200 and an error body
			err = check("poll", ev)
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.room.logger.Warn("poll failed", "session", p.sessionID, "err", err)
			select {
			case <-time.After(p.room.errorDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		p.room.logger.Debug("poll evt", "session", p.sessionID, "janus", ev.Janus)

		switch ev.Janus {
		case TypeWebRTCUp:
			p.room.callback(p.name, StateUp)
			p.startKeepAlive(ctx)
		case TypeHangup:
			p.room.logger.Info("janus hangup", "session", p.sessionID, "reason", ev.Reason)
			p.room.callback(p.name, StateDown)
			p.stopKeepAlive()
		}
	}
}

func (p *poller) startKeepAlive(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopAlive != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	p.stopAlive = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.room.keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				resp, err := p.room.transport.Send(ctx, p.sessionID, 0, &Message{Janus: TypeKeepAlive, SessionID: p.sessionID})
				if err == nil {
					err = check("keepalive", resp)
				}
				if err != nil && ctx.Err() == nil {
					p.room.logger.Warn("keepalive failed", "session", p.sessionID, "err", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *poller) stopKeepAlive() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopAlive != nil {
		p.stopAlive()
		p.stopAlive = nil
	}
}

// stop cancels the poll loop and keep-alive and waits for both to exit.
func (p *poller) stop() {
	p.cancel()
	p.wg.Wait()
}
