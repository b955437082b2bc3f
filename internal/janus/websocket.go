package janus

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/dns"
	"github.com/gorilla/websocket"
)

// Subprotocol is required by the Janus WebSocket transport.
const Subprotocol = "janus-protocol"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024
	eventBuffer    = 32
)

// WSTransport talks to the Janus WebSocket API. Replies are matched to
// requests by transaction; everything else is queued per session for Poll.
type WSTransport struct {
	conn   *websocket.Conn
	logger *slog.Logger

	outgoing chan *Message
	done     chan struct{}
	dead     chan struct{}
	once     sync.Once

	mu      sync.Mutex
	pending map[string]chan *Response
	events  map[int64]chan *Response
}

// DialWS connects to a Janus WebSocket endpoint such as ws://host:8188/.
func DialWS(ctx context.Context, rawURL string, logger *slog.Logger) (*WSTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		NetDialContext:   dns.Dial,
		HandshakeTimeout: writeWait,
		Subprotocols:     []string{Subprotocol},
	}

	conn, _, err := dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	t := &WSTransport{
		conn:     conn,
		logger:   logger,
		outgoing: make(chan *Message, 1),
		done:     make(chan struct{}),
		dead:     make(chan struct{}),
		pending:  make(map[string]chan *Response),
		events:   make(map[int64]chan *Response),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go t.readPump()
	go t.writePump()

	return t, nil
}

func (t *WSTransport) readPump() {
	defer func() {
		t.conn.Close()
		close(t.dead)
	}()

	t.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		var r Response
		if err := t.conn.ReadJSON(&r); err != nil {
			t.logger.Debug("janus websocket closed", "err", err)
			return
		}
		t.dispatch(&r)
	}
}

func (t *WSTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case msg := <-t.outgoing:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-t.dead:
			return
		}
	}
}

// dispatch hands a reply to its waiting Send, or queues it as a session event.
// Plugin events reuse the transaction of their ack, so they are never matched.
func (t *WSTransport) dispatch(r *Response) {
	t.mu.Lock()
	if r.Janus != TypeEvent {
		if ch, ok := t.pending[r.Transaction]; ok {
			delete(t.pending, r.Transaction)
			t.mu.Unlock()
			ch <- r
			return
		}
	}
	ch := t.eventsFor(r.SessionID)
	t.mu.Unlock()

	select {
	case ch <- r:
	default:
		t.logger.Warn("dropping janus event, queue full", "session", r.SessionID, "janus", r.Janus)
	}
}

// eventsFor must be called with mu held.
func (t *WSTransport) eventsFor(sessionID int64) chan *Response {
	ch, ok := t.events[sessionID]
	if !ok {
		ch = make(chan *Response, eventBuffer)
		t.events[sessionID] = ch
	}
	return ch
}

func (t *WSTransport) Send(ctx context.Context, sessionID, handleID int64, msg *Message) (*Response, error) {
	if msg.Transaction == "" {
		msg.Transaction = transaction()
	}
	msg.SessionID = sessionID
	msg.HandleID = handleID

	reply := make(chan *Response, 1)
	t.mu.Lock()
	t.pending[msg.Transaction] = reply
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.pending, msg.Transaction)
		t.mu.Unlock()
	}()

	select {
	case t.outgoing <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.dead:
		return nil, ErrClosed
	}

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.dead:
		return nil, ErrClosed
	}
}

func (t *WSTransport) Poll(ctx context.Context, sessionID int64) (*Response, error) {
	t.mu.Lock()
	ch := t.eventsFor(sessionID)
	t.mu.Unlock()

	select {
	case r := <-ch:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.dead:
		return nil, ErrClosed
	}
}

// Close sends a close frame and tears the connection down. Safe to call twice.
func (t *WSTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}
