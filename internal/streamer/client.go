// Package streamer negotiates a peer connection with a webrtc-streamer server
// over its HTTP signaling API.
package streamer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BioHazard786/rtcstreamer/internal/request"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
)

// DataChannelLabel names the channel opened before every offer.
const DataChannelLabel = "ClientDataChannel"

// Client owns at most one active session with the streamer.
type Client struct {
	api     *API
	factory PeerFactory
	logger  *slog.Logger
	policy  webrtc.ICETransportPolicy
	newID   func() string

	mu         sync.Mutex
	iceServers *IceServers
	session    *session
	state      State

	onState   []func(State)
	onTrack   []func(*webrtc.TrackRemote, *webrtc.RTPReceiver)
	onICE     []func(webrtc.ICEConnectionState)
	onMessage []func(webrtc.DataChannelMessage)
	onError   []func(op string, err error)
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIceServers seeds the ICE server cache so getIceServers is never called.
func WithIceServers(servers []webrtc.ICEServer) Option {
	return func(c *Client) { c.iceServers = &IceServers{ICEServers: servers} }
}

func WithICETransportPolicy(p webrtc.ICETransportPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithPeerIDs replaces the peer identifier generator.
func WithPeerIDs(gen func() string) Option {
	return func(c *Client) { c.newID = gen }
}

func New(api *API, factory PeerFactory, opts ...Option) *Client {
	c := &Client{
		api:     api,
		factory: factory,
		logger:  slog.Default(),
		policy:  webrtc.ICETransportPolicyAll,
		newID:   uuid.NewString,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = append(c.onState, fn)
	c.mu.Unlock()
}

func (c *Client) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	c.mu.Lock()
	c.onTrack = append(c.onTrack, fn)
	c.mu.Unlock()
}

func (c *Client) OnICEConnectionState(fn func(webrtc.ICEConnectionState)) {
	c.mu.Lock()
	c.onICE = append(c.onICE, fn)
	c.mu.Unlock()
}

func (c *Client) OnDataChannelMessage(fn func(webrtc.DataChannelMessage)) {
	c.mu.Lock()
	c.onMessage = append(c.onMessage, fn)
	c.mu.Unlock()
}

// OnError registers an error reporter. Without one, errors are logged.
func (c *Client) OnError(fn func(op string, err error)) {
	c.mu.Lock()
	c.onError = append(c.onError, fn)
	c.mu.Unlock()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PeerID returns the active session's identifier, or "" when idle.
func (c *Client) PeerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.peerID
}

// DataChannel returns the active session's channel, or nil.
func (c *Client) DataChannel() DataChannel {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.dataChannel()
}

// Send writes data on the active data channel if it is open.
func (c *Client) Send(data []byte) error {
	dc := c.DataChannel()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.Send(data)
}

// InvalidateIceServers forces the next Connect to fetch ICE servers again.
func (c *Client) InvalidateIceServers() {
	c.mu.Lock()
	c.iceServers = nil
	c.mu.Unlock()
}

// Connect negotiates a new session for videoURL, tearing down any active one.
// It returns once remote candidates have been applied.
func (c *Client) Connect(ctx context.Context, videoURL, audioURL, options string, tracks ...webrtc.TrackLocal) error {
	c.Disconnect(ctx)

	servers, err := c.loadIceServers(ctx)
	if err != nil {
		c.fail(nil, "getIceServers", err)
		return WrapError("get ICE servers", ErrSignaling, err.Error())
	}

	s, err := c.startSession(servers, tracks)
	if err != nil {
		c.fail(nil, "createPeerConnection", err)
		return NewError("create peer connection", err)
	}

	offer, err := s.peer.CreateOffer()
	if err != nil {
		return c.halt(s, "createOffer", err, WrapError("create offer", ErrNegotiation, err.Error()))
	}
	if err := s.peer.SetLocalDescription(offer); err != nil {
		return c.halt(s, "setLocalDescription", err, WrapError("set local description", ErrNegotiation, err.Error()))
	}
	c.logger.Debug("created offer", "peerid", s.peerID)

	c.setState(s, StateAwaitingRemoteAnswer)
	answer, err := c.api.Call(ctx, s.peerID, videoURL, audioURL, options, offer)
	if !c.isActive(s) {
		return ErrStaleSession
	}
	if err != nil {
		c.fail(s, "call", err)
		return WrapError("call", ErrSignaling, err.Error())
	}
	if answer.SDP == "" {
		c.fail(s, "call", ErrNoAnswer)
		return NewError("call", ErrNoAnswer)
	}

	if err := s.peer.SetRemoteDescription(answer); err != nil {
		return c.halt(s, "setRemoteDescription", err, WrapError("set remote description", ErrNegotiation, err.Error()))
	}
	c.setState(s, StateExchangingCandidates)
	s.flush(func(cand webrtc.ICECandidateInit) { c.postCandidate(s, cand) })

	remote, err := c.api.IceCandidates(ctx, s.peerID)
	if !c.isActive(s) {
		return ErrStaleSession
	}
	if err != nil {
		c.fail(s, "getIceCandidate", err)
		return WrapError("get ICE candidates", ErrSignaling, err.Error())
	}
	for _, cand := range remote {
		if !c.isActive(s) {
			return ErrStaleSession
		}
		if err := s.peer.AddICECandidate(cand); err != nil {
			c.logger.Warn("addIceCandidate failed", "peerid", s.peerID, "err", err)
		}
	}

	if !c.isActive(s) {
		return ErrStaleSession
	}
	c.setState(s, StateConnected)
	return nil
}

// teardown hangs up s on the streamer and closes its peer.
func (c *Client) teardown(s *session) {
	c.api.Hangup(s.peerID, func(err error) {
		c.logger.Debug("hangup failed", "peerid", s.peerID, "err", err)
	})
	if err := s.close(); err != nil {
		c.logger.Warn("failure closing peer connection", "peerid", s.peerID, "err", err)
	}
}

// Disconnect hangs up and closes the active session. Without one it does nothing.
func (c *Client) Disconnect(ctx context.Context) {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}
	c.teardown(s)

	c.mu.Lock()
	if c.session != nil {
		// a concurrent Connect already installed its session
		c.mu.Unlock()
		return
	}
	c.state = StateDisconnected
	handlers := append([]func(State){}, c.onState...)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(StateDisconnected)
	}
}

func (c *Client) loadIceServers(ctx context.Context) (*IceServers, error) {
	c.mu.Lock()
	cached := c.iceServers
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	c.transition(StateFetchingIceServers)
	servers, err := c.api.IceServers(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.iceServers = servers
	c.mu.Unlock()
	return servers, nil
}

func (c *Client) startSession(servers *IceServers, tracks []webrtc.TrackLocal) (*session, error) {
	peer, err := c.factory.NewPeer(webrtc.Configuration{
		ICEServers:         servers.ICEServers,
		ICETransportPolicy: c.policy,
	})
	if err != nil {
		return nil, err
	}

	s := newSession(c.newID(), peer)

	peer.OnICECandidate(func(cand *webrtc.ICECandidateInit) {
		if cand == nil {
			c.logger.Debug("end of candidates", "peerid", s.peerID)
			return
		}
		s.addLocalCandidate(*cand, func(cand webrtc.ICECandidateInit) { c.postCandidate(s, cand) })
	})
	peer.OnTrack(func(t *webrtc.TrackRemote, r *webrtc.RTPReceiver) {
		if !c.isActive(s) {
			return
		}
		c.logger.Info("remote track added", "peerid", s.peerID, "kind", t.Kind().String(), "codec", t.Codec().MimeType)
		c.mu.Lock()
		handlers := append([]func(*webrtc.TrackRemote, *webrtc.RTPReceiver){}, c.onTrack...)
		c.mu.Unlock()
		for _, fn := range handlers {
			fn(t, r)
		}
	})
	peer.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if !c.isActive(s) {
			return
		}
		c.logger.Info("ICE connection state", "peerid", s.peerID, "state", state.String())
		c.mu.Lock()
		handlers := append([]func(webrtc.ICEConnectionState){}, c.onICE...)
		c.mu.Unlock()
		for _, fn := range handlers {
			fn(state)
		}
	})

	kinds := map[webrtc.RTPCodecType]bool{}
	for _, t := range tracks {
		if err := peer.AddTrack(t); err != nil {
			peer.Close()
			return nil, err
		}
		kinds[t.Kind()] = true
	}
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if kinds[kind] {
			continue
		}
		if err := peer.AddReceiver(kind); err != nil {
			peer.Close()
			return nil, err
		}
	}

	if dc, err := peer.CreateDataChannel(DataChannelLabel); err != nil {
		c.logger.Warn("cannot create data channel", "err", err)
	} else {
		c.attachDataChannel(s, dc)
	}

	c.mu.Lock()
	prev := c.session
	c.session = s
	c.mu.Unlock()
	if prev != nil {
		c.logger.Debug("replacing session", "old", prev.peerID, "new", s.peerID)
		c.teardown(prev)
	}
	c.setState(s, StateCreatingOffer)
	return s, nil
}

func (c *Client) attachDataChannel(s *session, dc DataChannel) {
	s.mu.Lock()
	s.channel = dc
	s.mu.Unlock()

	dc.OnOpen(func() {
		c.logger.Info("local data channel open", "peerid", s.peerID, "label", dc.Label())
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if !c.isActive(s) {
			return
		}
		c.mu.Lock()
		handlers := append([]func(webrtc.DataChannelMessage){}, c.onMessage...)
		c.mu.Unlock()
		for _, fn := range handlers {
			fn(msg)
		}
	})
}

func (c *Client) postCandidate(s *session, cand webrtc.ICECandidateInit) {
	if err := c.api.AddIceCandidate(s.ctx, s.peerID, cand); err != nil {
		if s.isClosed() {
			return
		}
		c.report("addIceCandidate", err)
		return
	}
	c.logger.Debug("addIceCandidate ok", "peerid", s.peerID)
}

func (c *Client) isActive(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == s
}

// setState moves to st only if s is still the active session.
func (c *Client) setState(s *session, st State) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.state = st
	handlers := append([]func(State){}, c.onState...)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(st)
	}
}

func (c *Client) transition(st State) {
	c.mu.Lock()
	c.state = st
	handlers := append([]func(State){}, c.onState...)
	c.mu.Unlock()

	for _, fn := range handlers {
		fn(st)
	}
}

// fail reports err and marks the attempt failed. A nil s means no session was
// created yet for this attempt.
func (c *Client) fail(s *session, op string, err error) {
	if s != nil && !c.isActive(s) {
		return
	}
	c.report(op, err)
	if s == nil {
		c.transition(StateFailed)
		return
	}
	c.setState(s, StateFailed)
}

// halt fails the attempt on s and returns ret, or ErrStaleSession without
// reporting anything when s was replaced or disconnected meanwhile.
func (c *Client) halt(s *session, op string, err, ret error) error {
	if !c.isActive(s) {
		return ErrStaleSession
	}
	c.fail(s, op, err)
	return ret
}

func (c *Client) report(op string, err error) {
	c.mu.Lock()
	handlers := append([]func(string, error){}, c.onError...)
	c.mu.Unlock()

	if len(handlers) == 0 {
		c.logger.Error("onError", "op", op, "status", request.StatusCode(err), "err", err)
		return
	}
	for _, fn := range handlers {
		fn(op, err)
	}
}
