package janus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/request"
	"github.com/gorilla/websocket"
)

func newWSGateway(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		protos := websocket.Subprotocols(r)
		if len(protos) != 1 || protos[0] != Subprotocol {
			t.Errorf("subprotocols = %v", protos)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Janus {
			case TypeCreate:
				conn.WriteJSON(Response{Janus: TypeSuccess, Transaction: msg.Transaction, Data: &IDData{ID: testSession}})
			case TypeMessage:
				if msg.SessionID != testSession || msg.HandleID != testHandle {
					t.Errorf("message ids = %d/%d", msg.SessionID, msg.HandleID)
				}
				conn.WriteJSON(Response{Janus: TypeAck, Transaction: msg.Transaction, SessionID: testSession})
				conn.WriteJSON(Response{
					Janus:       TypeEvent,
					Transaction: msg.Transaction,
					SessionID:   testSession,
					Sender:      testHandle,
					PluginData:  &PluginData{Plugin: PluginVideoRoom, Data: VideoRoomEvent{VideoRoom: "joined"}},
				})
			case TypeKeepAlive:
				conn.WriteJSON(Response{Janus: TypeAck, Transaction: msg.Transaction, SessionID: msg.SessionID})
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSTransportMatchesReplies(t *testing.T) {
	srv := newWSGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tr, err := DialWS(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	defer tr.Close()

	resp, err := tr.Send(ctx, 0, 0, &Message{Janus: TypeCreate})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if resp.Janus != TypeSuccess || resp.Data == nil || resp.Data.ID != testSession {
		t.Fatalf("create reply = %+v", resp)
	}

	resp, err = tr.Send(ctx, testSession, testHandle, &Message{Janus: TypeMessage, Body: requestBody{Request: "join"}})
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	if resp.Janus != TypeAck {
		t.Errorf("message reply = %q, want ack", resp.Janus)
	}

	ev, err := tr.Poll(ctx, testSession)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if ev.VideoRoom() != "joined" {
		t.Errorf("event = %+v", ev)
	}

	resp, err = tr.Send(ctx, testSession, 0, &Message{Janus: TypeKeepAlive})
	if err != nil || resp.Janus != TypeAck {
		t.Errorf("keepalive = %+v, %v", resp, err)
	}
}

func TestWSTransportClosed(t *testing.T) {
	srv := newWSGateway(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	tr, err := DialWS(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("DialWS: %v", err)
	}
	tr.Close()
	tr.Close()

	if _, err := tr.Poll(ctx, testSession); !errors.Is(err, ErrClosed) {
		t.Errorf("Poll after close = %v, want ErrClosed", err)
	}
	if _, err := tr.Send(ctx, 0, 0, &Message{Janus: TypeCreate}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}
}

func TestNewTransportByScheme(t *testing.T) {
	srv := newWSGateway(t)
	ctx := context.Background()
	client := request.NewClient()

	tr, err := NewTransport(ctx, "http://localhost:8088/janus", client, nil)
	if err != nil {
		t.Fatalf("http: %v", err)
	}
	if _, ok := tr.(*HTTPTransport); !ok {
		t.Errorf("http transport = %T", tr)
	}

	tr, err = NewTransport(ctx, wsURL(srv), client, nil)
	if err != nil {
		t.Fatalf("ws: %v", err)
	}
	defer tr.Close()
	if _, ok := tr.(*WSTransport); !ok {
		t.Errorf("ws transport = %T", tr)
	}

	if _, err := NewTransport(ctx, "ftp://example.org", client, nil); err == nil {
		t.Error("ftp scheme accepted")
	}
}

func TestHTTPTransportPaths(t *testing.T) {
	tr := NewHTTPTransport("http://gw/janus/", request.NewClient())
	cases := []struct {
		session, handle int64
		want            string
	}{
		{0, 0, "http://gw/janus"},
		{5, 0, "http://gw/janus/5"},
		{5, 7, "http://gw/janus/5/7"},
	}
	for _, c := range cases {
		if got := tr.path(c.session, c.handle); got != c.want {
			t.Errorf("path(%d,%d) = %q, want %q", c.session, c.handle, got, c.want)
		}
	}
}
