package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/utils"
	"github.com/pion/webrtc/v4"
)

// Default configuration values
const (
	DefaultStreamerURL = "http://localhost:8000"
	DefaultJanusURL    = "http://localhost:8088/janus"
	DefaultJanusRoom   = 1234
	DefaultKeepAlive   = 10 * time.Second
)

// Config holds application configuration
type Config struct {
	// StreamerURL is the webrtc-streamer root, without the /api suffix
	StreamerURL string

	JanusURL  string
	JanusRoom int64
	KeepAlive time.Duration

	// ICE servers overriding the ones the streamer hands out
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string

	ForceRelay bool

	// RedisAddr enables the shared Janus connection store when set
	RedisAddr string
}

// Options for loading config with CLI flag overrides
type Options struct {
	StreamerURL string
	JanusURL    string
	JanusRoom   int64
	KeepAlive   time.Duration
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
	ForceRelay  bool
	RedisAddr   string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		StreamerURL: pick(opts.StreamerURL, "STREAMER_URL", DefaultStreamerURL),
		JanusURL:    pick(opts.JanusURL, "JANUS_URL", DefaultJanusURL),
		STUNServer:  pick(opts.STUNServer, "STUN_SERVER", ""),
		TURNServer:  pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:    pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:    pick(opts.TURNPass, "TURN_PASSWORD", ""),
		RedisAddr:   pick(opts.RedisAddr, "REDIS_ADDR", ""),
		JanusRoom:   opts.JanusRoom,
		KeepAlive:   opts.KeepAlive,
		ForceRelay:  opts.ForceRelay,
	}

	if cfg.JanusRoom == 0 {
		cfg.JanusRoom = DefaultJanusRoom
		if v := os.Getenv("JANUS_ROOM"); v != "" {
			room, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid JANUS_ROOM %q: %w", v, err)
			}
			cfg.JanusRoom = room
		}
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
		if v := os.Getenv("KEEPALIVE"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid KEEPALIVE %q: %w", v, err)
			}
			cfg.KeepAlive = d
		}
	}

	if !cfg.ForceRelay {
		if v := os.Getenv("FORCE_RELAY"); v != "" {
			relay, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid FORCE_RELAY %q: %w", v, err)
			}
			cfg.ForceRelay = relay
		}
	}

	cfg.StreamerURL = strings.TrimSuffix(cfg.StreamerURL, "/")
	return cfg, nil
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(c.TURNServer, "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// ICEServers returns the configured servers, or nil when the streamer's
// getIceServers answer should be used.
func (c *Config) ICEServers() []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if stun := c.GetSTUNServers(); len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if turn := c.GetTURNServers(); len(turn) > 0 {
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

// TransportPolicy forces relay when asked to, or when TURN is configured and
// the host looks to be behind a VPN or CGNAT.
func (c *Config) TransportPolicy() webrtc.ICETransportPolicy {
	if c.ForceRelay {
		return webrtc.ICETransportPolicyRelay
	}
	if c.TURNServer != "" && utils.ShouldForceRelay() {
		return webrtc.ICETransportPolicyRelay
	}
	return webrtc.ICETransportPolicyAll
}
