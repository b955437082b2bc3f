package streamer

import (
	"fmt"
	"log/slog"

	"github.com/BioHazard786/rtcstreamer/internal/logging"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// PeerFactory builds peers for a given configuration.
type PeerFactory interface {
	NewPeer(cfg webrtc.Configuration) (Peer, error)
}

// PionFactory builds pion peer connections from an API configured once at
// construction: default codecs, default interceptors and a slog-backed logger.
type PionFactory struct {
	api *webrtc.API
}

func NewPionFactory(logger *slog.Logger) (*PionFactory, error) {
	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(m, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	se := webrtc.SettingEngine{LoggerFactory: logging.NewPionFactory(logger)}

	return &PionFactory{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(m),
			webrtc.WithInterceptorRegistry(ir),
			webrtc.WithSettingEngine(se),
		),
	}, nil
}

func (f *PionFactory) NewPeer(cfg webrtc.Configuration) (Peer, error) {
	pc, err := f.api.NewPeerConnection(cfg)
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return &pionPeer{pc: pc}, nil
}
