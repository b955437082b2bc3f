package janus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, Key(1, "a", "b")); err != nil || ok {
		t.Fatalf("Get on empty store = %v, %v", ok, err)
	}

	a := Connection{Room: 1234, URL: "streamA", Name: "video", SessionID: 1, HandleID: 2, PeerID: "p1", Joined: time.Unix(100, 0).UTC()}
	b := Connection{Room: 1234, URL: "streamB", Name: "video", SessionID: 3, HandleID: 4, PeerID: "p2", Joined: time.Unix(200, 0).UTC()}
	for _, c := range []Connection{b, a} {
		if err := s.Put(ctx, c); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	got, ok, err := s.Get(ctx, a.Key())
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.SessionID != 1 || got.PeerID != "p1" || !got.Joined.Equal(a.Joined) {
		t.Errorf("Get = %+v", got)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].URL != "streamA" || list[1].URL != "streamB" {
		t.Errorf("List = %+v", list)
	}

	if err := s.Delete(ctx, a.Key()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, a.Key()); ok {
		t.Error("connection still present after Delete")
	}
}

func TestKey(t *testing.T) {
	if got := Key(1234, "rtsp://cam/1", "video"); got != "1234_rtsp://cam/1_video" {
		t.Errorf("Key = %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	// REDIS_ADDR points the test at a real server; otherwise it runs in-process.
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = miniredis.RunT(t).Addr()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()

	s := NewRedisStore(rdb, "rtcstreamer-test:"+t.Name())
	ctx := context.Background()
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	defer s.Reset(ctx)

	exerciseStore(t, s)
}

func TestRedisStoreSharedBetweenClients(t *testing.T) {
	mr := miniredis.RunT(t)
	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	conn := Connection{Room: 1234, URL: "streamA", Name: "video", SessionID: 7, HandleID: 8, PeerID: "relay-1"}
	if err := NewRedisStore(a, "").Put(ctx, conn); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := NewRedisStore(b, "").Get(ctx, conn.Key())
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.PeerID != "relay-1" || got.SessionID != 7 {
		t.Errorf("connection = %+v", got)
	}
	if !mr.Exists("rtcstreamer:janus:connections") {
		t.Errorf("keys = %v, want the default hash", mr.Keys())
	}
}
