// Package janus publishes webrtc-streamer streams into a Janus Gateway video
// room, relaying the streamer's offer and candidates through the gateway.
package janus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/rtcstreamer/internal/streamer"
	"github.com/google/uuid"
)

// States reported to SubscribeEvents handlers.
const (
	StateJoining      = "joining"
	StateJoined       = "joined"
	StateJoinFailed   = "joining room failed"
	StatePublishing   = "publishing"
	StatePublishNoSDP = "publishing failed (no SDP)"
	StateUp           = "up"
	StateDown         = "down"
	StateLeft         = "left"
)

const (
	DefaultKeepAlive    = 10 * time.Second
	DefaultPollErrDelay = time.Second
)

// VideoRoom relays streams into Janus video rooms.
type VideoRoom struct {
	transport  Transport
	api        *streamer.API
	store      Store
	logger     *slog.Logger
	keepAlive  time.Duration
	errorDelay time.Duration
	newID      func() string

	mu       sync.Mutex
	handlers []func(name, state string)
	pollers  map[string]*poller
}

type Option func(*VideoRoom)

func WithStore(s Store) Option {
	return func(r *VideoRoom) { r.store = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *VideoRoom) { r.logger = l }
}

// WithKeepAlive sets the interval between session keep-alives once media is up.
func WithKeepAlive(d time.Duration) Option {
	return func(r *VideoRoom) { r.keepAlive = d }
}

// WithPollErrorDelay sets the pause before re-polling after a failed poll.
func WithPollErrorDelay(d time.Duration) Option {
	return func(r *VideoRoom) { r.errorDelay = d }
}

func WithPeerIDs(gen func() string) Option {
	return func(r *VideoRoom) { r.newID = gen }
}

func NewVideoRoom(transport Transport, api *streamer.API, opts ...Option) *VideoRoom {
	r := &VideoRoom{
		transport:  transport,
		api:        api,
		store:      NewMemoryStore(),
		logger:     slog.Default(),
		keepAlive:  DefaultKeepAlive,
		errorDelay: DefaultPollErrDelay,
		newID:      uuid.NewString,
		pollers:    make(map[string]*poller),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SubscribeEvents registers fn for state changes; handlers run in registration order.
func (r *VideoRoom) SubscribeEvents(fn func(name, state string)) {
	r.mu.Lock()
	r.handlers = append(r.handlers, fn)
	r.mu.Unlock()
}

func (r *VideoRoom) callback(name, state string) {
	r.mu.Lock()
	handlers := append([]func(string, string){}, r.handlers...)
	r.mu.Unlock()

	for _, fn := range handlers {
		fn(name, state)
	}
}

// Connections lists the streams currently published through the store.
func (r *VideoRoom) Connections(ctx context.Context) ([]Connection, error) {
	return r.store.List(ctx)
}

// Join publishes the streamer's url into room under display name. It returns
// once candidates are trickled; events are then watched in the background.
func (r *VideoRoom) Join(ctx context.Context, room int64, url, name string) error {
	if key := Key(room, url, name); r.tracked(key) {
		r.logger.Info("rejoining, leaving previous connection", "key", key)
		if err := r.leave(ctx, key); err != nil {
			return err
		}
	}

	resp, err := r.transport.Send(ctx, 0, 0, &Message{Janus: TypeCreate})
	if err == nil {
		err = check("create session", resp)
	}
	if err != nil {
		return r.onError("create session", err)
	}
	if resp.Data == nil {
		return r.onError("create session", WrapError("create session", ErrJanus, "missing session id"))
	}
	sessionID := resp.Data.ID
	r.logger.Debug("onCreateSession", "session", sessionID)

	resp, err = r.transport.Send(ctx, sessionID, 0, &Message{Janus: TypeAttach, Plugin: PluginVideoRoom})
	if err == nil {
		err = check("attach plugin", resp)
	}
	if err != nil {
		return r.onError("attach plugin", err)
	}
	if resp.Data == nil {
		return r.onError("attach plugin", WrapError("attach plugin", ErrJanus, "missing handle id"))
	}
	handleID := resp.Data.ID
	r.logger.Debug("onPluginsAttached", "session", sessionID, "handle", handleID)

	r.callback(name, StateJoining)

	join := &Message{Janus: TypeMessage, Body: joinBody{Request: "join", Room: room, PType: "publisher", Display: name}}
	resp, err = r.transport.Send(ctx, sessionID, handleID, join)
	if err == nil {
		err = check("join", resp)
	}
	if err != nil {
		r.callback(name, StateJoinFailed)
		return r.onError("join", err)
	}

	ev, err := r.nextEvent(ctx, sessionID)
	if err != nil {
		r.callback(name, StateJoinFailed)
		return r.onError("join", err)
	}
	if ev.VideoRoom() != "joined" {
		r.callback(name, StateJoinFailed)
		details := ev.VideoRoom()
		if ev.PluginData != nil && ev.PluginData.Data.Error != "" {
			details = ev.PluginData.Data.Error
		}
		return WrapError("join", ErrJoinFailed, details)
	}

	conn := Connection{
		Room:      room,
		URL:       url,
		Name:      name,
		SessionID: sessionID,
		HandleID:  handleID,
		PeerID:    r.newID(),
		Joined:    time.Now(),
	}
	if err := r.store.Put(ctx, conn); err != nil {
		r.logger.Warn("cannot store connection", "key", conn.Key(), "err", err)
	}
	r.track(conn.Key(), nil)
	r.callback(name, StateJoined)

	offer, err := r.api.CreateOffer(ctx, conn.PeerID, url, "", "")
	if err != nil {
		return r.onError("createOffer", err)
	}
	r.logger.Debug("onCreateOffer", "peerid", conn.PeerID)

	r.callback(name, StatePublishing)

	publish := &Message{Janus: TypeMessage, Body: publishBody{Request: "publish", Audio: true, Video: true, Data: true}, Jsep: offer}
	resp, err = r.transport.Send(ctx, sessionID, handleID, publish)
	if err == nil {
		err = check("publish", resp)
	}
	if err != nil {
		return r.onError("publish", err)
	}

	ev, err = r.nextEvent(ctx, sessionID)
	if err != nil {
		return r.onError("publish", err)
	}
	if len(ev.Jsep) == 0 {
		r.callback(name, StatePublishNoSDP)
		return NewError("publish", ErrNoSDP)
	}

	if err := r.api.SetAnswer(ctx, conn.PeerID, ev.Jsep); err != nil {
		return r.onError("setAnswer", err)
	}

	candidates, err := r.api.IceCandidatesRaw(ctx, conn.PeerID)
	if err != nil {
		return r.onError("getIceCandidate", err)
	}
	for _, c := range candidates {
		resp, err := r.transport.Send(ctx, sessionID, handleID, &Message{Janus: TypeTrickle, Candidate: c})
		if err == nil {
			err = check("trickle", resp)
		}
		if err != nil {
			r.logger.Warn("trickle failed", "session", sessionID, "err", err)
		}
	}

	r.track(conn.Key(), r.startPoller(name, sessionID))
	return nil
}

// track records key as joined by this room, replacing any previous poller.
func (r *VideoRoom) track(key string, p *poller) {
	r.mu.Lock()
	old := r.pollers[key]
	r.pollers[key] = p
	r.mu.Unlock()
	if old != nil && old != p {
		old.stop()
	}
}

func (r *VideoRoom) tracked(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pollers[key]
	return ok
}

// nextEvent long-polls until a plugin event or error arrives, skipping keep-alives.
func (r *VideoRoom) nextEvent(ctx context.Context, sessionID int64) (*Response, error) {
	for {
		ev, err := r.transport.Poll(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		switch ev.Janus {
		case TypeKeepAlive, TypeAck:
			continue
		case TypeError:
			return nil, check("poll", ev)
		case TypeEvent:
			return ev, nil
		default:
			r.logger.Debug("ignoring janus event", "session", sessionID, "janus", ev.Janus)
		}
	}
}

// Leave unpublishes the stream. An unknown connection is a no-op.
func (r *VideoRoom) Leave(ctx context.Context, room int64, url, name string) error {
	return r.leave(ctx, Key(room, url, name))
}

func (r *VideoRoom) leave(ctx context.Context, key string) error {
	conn, ok, err := r.store.Get(ctx, key)
	if err != nil {
		return r.onError("leave", err)
	}
	if !ok {
		return nil
	}

	r.mu.Lock()
	p := r.pollers[key]
	delete(r.pollers, key)
	r.mu.Unlock()

	unpublish := &Message{Janus: TypeMessage, Body: requestBody{Request: "unpublish"}}
	resp, err := r.transport.Send(ctx, conn.SessionID, conn.HandleID, unpublish)
	if err == nil {
		err = check("unpublish", resp)
	}
	if err != nil {
		r.logger.Warn("unpublish failed", "key", key, "err", err)
	}

	if p != nil {
		p.stop()
	}

	r.api.Hangup(conn.PeerID, func(err error) {
		r.logger.Debug("hangup failed", "peerid", conn.PeerID, "err", err)
	})

	resp, err = r.transport.Send(ctx, conn.SessionID, 0, &Message{Janus: TypeDestroy})
	if err == nil {
		err = check("destroy", resp)
	}
	if err != nil {
		r.logger.Debug("destroy session failed", "session", conn.SessionID, "err", err)
	}

	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.Warn("cannot remove connection", "key", key, "err", err)
	}
	r.callback(conn.Name, StateLeft)
	return nil
}

// Close leaves every connection started by this room, then closes the transport.
func (r *VideoRoom) Close(ctx context.Context) error {
	r.mu.Lock()
	keys := make([]string, 0, len(r.pollers))
	for k := range r.pollers {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	for _, k := range keys {
		if err := r.leave(ctx, k); err != nil {
			r.logger.Warn("leave failed", "key", k, "err", err)
		}
	}
	return r.transport.Close()
}

func (r *VideoRoom) onError(op string, err error) error {
	r.logger.Error("onError", "op", op, "err", err)
	return err
}
