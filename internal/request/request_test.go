package request

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestDoGetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Write([]byte(`{"iceServers":[]}`))
	}))
	defer srv.Close()

	var out struct {
		ICEServers []any `json:"iceServers"`
	}
	if err := NewClient().Do(context.Background(), Request{URL: srv.URL}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out.ICEServers == nil {
		t.Fatal("iceServers not decoded")
	}
}

func TestDoPostSendsJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if r.Header.Get("X-Peer") != "abc" {
			t.Errorf("custom header lost")
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "rtcstreamer/") {
			t.Errorf("user agent = %q", ua)
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	in := map[string]string{"type": "offer", "sdp": "v=0"}
	var out map[string]string
	req := Request{URL: srv.URL, Body: in, Header: http.Header{"X-Peer": {"abc"}}}
	if err := NewClient().Do(context.Background(), req, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if out["sdp"] != "v=0" {
		t.Fatalf("echo = %v", out)
	}
}

func TestDoNon200ReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient().Do(context.Background(), Request{URL: srv.URL}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != http.StatusNotFound || StatusCode(err) != http.StatusNotFound {
		t.Fatalf("status = %d", se.Status)
	}
}

func TestDoEmptyBodyWithOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	var out []string
	if err := NewClient().Do(context.Background(), Request{URL: srv.URL}, &out); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestGoInvokesContinuations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`1`))
	}))
	defer srv.Close()

	c := NewClient()
	ok := make(chan json.RawMessage, 1)
	failed := make(chan error, 1)

	c.Go(context.Background(), Request{URL: srv.URL + "/ok"}, func(b json.RawMessage) { ok <- b }, nil)
	c.Go(context.Background(), Request{URL: srv.URL + "/fail"}, nil, func(err error) { failed <- err })

	select {
	case b := <-ok:
		if string(b) != "1" {
			t.Fatalf("body = %s", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("success continuation not called")
	}

	select {
	case err := <-failed:
		if StatusCode(err) != http.StatusInternalServerError {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("failure continuation not called")
	}
}

func TestSyncReturnsNilOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"janus":"keepalive"}`))
	}))
	defer srv.Close()

	c := NewClient()
	if got := c.Sync(context.Background(), srv.URL+"/bad"); got != nil {
		t.Fatalf("Sync on 502 = %s, want nil", got)
	}
	if got := c.Sync(context.Background(), srv.URL+"/good"); string(got) != `{"janus":"keepalive"}` {
		t.Fatalf("Sync = %s", got)
	}
}

func TestRequestMethod(t *testing.T) {
	if (Request{}).Method() != http.MethodGet {
		t.Fatal("empty body should be GET")
	}
	if (Request{Body: 1}).Method() != http.MethodPost {
		t.Fatal("body should be POST")
	}
}
