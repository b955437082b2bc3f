package streamer

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v4"
)

// session is one negotiation with the streamer. It owns its peer and data channel.
type session struct {
	peerID string
	peer   Peer
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	remoteSet bool
	closed    bool
	early     []webrtc.ICECandidateInit
	channel   DataChannel

	// sendMu serializes candidate POSTs so the flush of early candidates
	// always completes before any later candidate goes out.
	sendMu sync.Mutex
}

func newSession(peerID string, peer Peer) *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		peerID: peerID,
		peer:   peer,
		ctx:    ctx,
		cancel: cancel,
	}
}

// addLocalCandidate buffers c until the remote description is set, then sends it.
func (s *session) addLocalCandidate(c webrtc.ICECandidateInit, send func(webrtc.ICECandidateInit)) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if !s.remoteSet {
		s.early = append(s.early, c)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.isClosed() {
		return
	}
	send(c)
}

// flush marks the remote description as applied and sends buffered
// candidates in discovery order.
func (s *session) flush(send func(webrtc.ICECandidateInit)) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	s.remoteSet = true
	pending := s.early
	s.early = nil
	s.mu.Unlock()

	for _, c := range pending {
		if s.isClosed() {
			return
		}
		send(c)
	}
}

func (s *session) buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.early)
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) dataChannel() DataChannel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// close cancels in-flight calls, closes the peer and drops all session state.
func (s *session) close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.early = nil
	s.channel = nil
	s.mu.Unlock()

	s.cancel()
	return s.peer.Close()
}
