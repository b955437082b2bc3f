package janus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/BioHazard786/rtcstreamer/internal/request"
	"github.com/google/uuid"
)

// Transport carries requests to a Janus gateway and delivers its events.
type Transport interface {
	// Send issues msg against the root (sessionID 0), a session, or a plugin
	// handle and returns the gateway's immediate reply.
	Send(ctx context.Context, sessionID, handleID int64, msg *Message) (*Response, error)
	// Poll blocks until the next asynchronous event for sessionID.
	Poll(ctx context.Context, sessionID int64) (*Response, error)
	Close() error
}

// NewTransport picks the WebSocket transport for ws/wss URLs and the REST
// transport otherwise.
func NewTransport(ctx context.Context, rawURL string, client *request.Client, logger *slog.Logger) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid janus URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
		return DialWS(ctx, rawURL, logger)
	case "http", "https":
		return NewHTTPTransport(rawURL, client), nil
	default:
		return nil, fmt.Errorf("unsupported janus URL scheme %q", u.Scheme)
	}
}

func transaction() string {
	return uuid.NewString()
}

// HTTPTransport speaks the Janus REST API and long-polls sessions for events.
type HTTPTransport struct {
	base string
	http *request.Client
	now  func() int64
}

func NewHTTPTransport(base string, client *request.Client) *HTTPTransport {
	return &HTTPTransport{
		base: strings.TrimSuffix(base, "/"),
		http: client,
		now:  unixMilli,
	}
}

func (t *HTTPTransport) path(sessionID, handleID int64) string {
	switch {
	case sessionID == 0:
		return t.base
	case handleID == 0:
		return fmt.Sprintf("%s/%d", t.base, sessionID)
	default:
		return fmt.Sprintf("%s/%d/%d", t.base, sessionID, handleID)
	}
}

func (t *HTTPTransport) Send(ctx context.Context, sessionID, handleID int64, msg *Message) (*Response, error) {
	if msg.Transaction == "" {
		msg.Transaction = transaction()
	}
	var resp Response
	if err := t.http.Do(ctx, request.Request{URL: t.path(sessionID, handleID), Body: msg}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Poll issues one long-poll GET with a fresh rid and maxev=1.
func (t *HTTPTransport) Poll(ctx context.Context, sessionID int64) (*Response, error) {
	u := fmt.Sprintf("%s?rid=%d&maxev=1", t.path(sessionID, 0), t.now())
	body := t.http.Sync(ctx, u)
	if body == nil {
		return nil, NewError("poll", ErrPoll)
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, WrapError("poll", ErrPoll, err.Error())
	}
	return &resp, nil
}

func (t *HTTPTransport) Close() error {
	return nil
}
