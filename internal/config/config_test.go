package config

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"STREAMER_URL", "JANUS_URL", "JANUS_ROOM", "STUN_SERVER", "TURN_SERVER",
		"TURN_USERNAME", "TURN_PASSWORD", "FORCE_RELAY", "KEEPALIVE", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StreamerURL != DefaultStreamerURL || cfg.JanusURL != DefaultJanusURL {
		t.Errorf("urls = %q %q", cfg.StreamerURL, cfg.JanusURL)
	}
	if cfg.JanusRoom != DefaultJanusRoom || cfg.KeepAlive != DefaultKeepAlive {
		t.Errorf("room=%d keepalive=%v", cfg.JanusRoom, cfg.KeepAlive)
	}
	if cfg.ICEServers() != nil {
		t.Errorf("ICE servers = %+v, want none", cfg.ICEServers())
	}
	if cfg.TransportPolicy() != webrtc.ICETransportPolicyAll {
		t.Errorf("policy = %v", cfg.TransportPolicy())
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("STREAMER_URL", "http://env:8000/")
	t.Setenv("JANUS_ROOM", "42")
	t.Setenv("KEEPALIVE", "3s")
	t.Setenv("FORCE_RELAY", "true")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StreamerURL != "http://env:8000" {
		t.Errorf("env streamer url = %q", cfg.StreamerURL)
	}
	if cfg.JanusRoom != 42 || cfg.KeepAlive != 3*time.Second || !cfg.ForceRelay {
		t.Errorf("env values = %+v", cfg)
	}

	cfg, err = Load(Options{StreamerURL: "http://flag:9000", JanusRoom: 7})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StreamerURL != "http://flag:9000" || cfg.JanusRoom != 7 {
		t.Errorf("flag values = %+v", cfg)
	}
	if cfg.TransportPolicy() != webrtc.ICETransportPolicyRelay {
		t.Errorf("policy = %v, want relay", cfg.TransportPolicy())
	}
}

func TestLoadInvalidEnv(t *testing.T) {
	cases := map[string]string{
		"JANUS_ROOM":  "abc",
		"KEEPALIVE":   "soon",
		"FORCE_RELAY": "maybe",
	}
	for k, v := range cases {
		clearEnv(t)
		t.Setenv(k, v)
		if _, err := Load(Options{}); err == nil {
			t.Errorf("%s=%q accepted", k, v)
		}
	}
}

func TestICEServers(t *testing.T) {
	cfg := &Config{STUNServer: "stun:stun.example.org:3478", TURNServer: "turn.example.org", TURNUser: "u", TURNPass: "p"}
	servers := cfg.ICEServers()
	if len(servers) != 2 {
		t.Fatalf("servers = %+v", servers)
	}
	if servers[0].URLs[0] != "stun:stun.example.org:3478" {
		t.Errorf("stun = %v", servers[0].URLs)
	}
	turn := servers[1]
	if len(turn.URLs) != 3 || turn.URLs[0] != "turn:turn.example.org:3478?transport=udp" || turn.URLs[2] != "turns:turn.example.org:5349?transport=tcp" {
		t.Errorf("turn = %v", turn.URLs)
	}
	if turn.Username != "u" || turn.Credential != "p" {
		t.Errorf("credentials = %q %v", turn.Username, turn.Credential)
	}
}
