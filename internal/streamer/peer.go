package streamer

import (
	"github.com/pion/webrtc/v4"
)

// Peer is the subset of a peer connection the client drives.
// pion's *webrtc.PeerConnection is adapted to it by the PionFactory.
type Peer interface {
	CreateOffer() (webrtc.SessionDescription, error)
	SetLocalDescription(webrtc.SessionDescription) error
	SetRemoteDescription(webrtc.SessionDescription) error
	AddICECandidate(webrtc.ICECandidateInit) error

	AddTrack(webrtc.TrackLocal) error
	// AddReceiver asks to receive media of kind without sending any.
	AddReceiver(kind webrtc.RTPCodecType) error
	CreateDataChannel(label string) (DataChannel, error)

	// OnICECandidate is called with nil once gathering completes.
	OnICECandidate(func(*webrtc.ICECandidateInit))
	OnTrack(func(*webrtc.TrackRemote, *webrtc.RTPReceiver))
	OnICEConnectionStateChange(func(webrtc.ICEConnectionState))

	Close() error
}

// DataChannel is satisfied by *webrtc.DataChannel.
type DataChannel interface {
	Label() string
	ReadyState() webrtc.DataChannelState
	Send([]byte) error
	OnOpen(func())
	OnMessage(func(webrtc.DataChannelMessage))
	Close() error
}

type pionPeer struct {
	pc *webrtc.PeerConnection
}

func (p *pionPeer) CreateOffer() (webrtc.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

func (p *pionPeer) SetLocalDescription(d webrtc.SessionDescription) error {
	return p.pc.SetLocalDescription(d)
}

func (p *pionPeer) SetRemoteDescription(d webrtc.SessionDescription) error {
	return p.pc.SetRemoteDescription(d)
}

func (p *pionPeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

func (p *pionPeer) AddTrack(t webrtc.TrackLocal) error {
	_, err := p.pc.AddTrack(t)
	return err
}

func (p *pionPeer) AddReceiver(kind webrtc.RTPCodecType) error {
	_, err := p.pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	})
	return err
}

func (p *pionPeer) CreateDataChannel(label string) (DataChannel, error) {
	dc, err := p.pc.CreateDataChannel(label, nil)
	if err != nil {
		return nil, err
	}
	return dc, nil
}

func (p *pionPeer) OnICECandidate(f func(*webrtc.ICECandidateInit)) {
	p.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			f(nil)
			return
		}
		cand := c.ToJSON()
		f(&cand)
	})
}

func (p *pionPeer) OnTrack(f func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	p.pc.OnTrack(f)
}

func (p *pionPeer) OnICEConnectionStateChange(f func(webrtc.ICEConnectionState)) {
	p.pc.OnICEConnectionStateChange(f)
}

func (p *pionPeer) Close() error {
	return p.pc.Close()
}
