package streamer

import (
	"context"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/BioHazard786/rtcstreamer/internal/request"
	"github.com/pion/webrtc/v4"
)

// IceServers is the getIceServers payload.
type IceServers struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

// API wraps the webrtc-streamer REST endpoints.
type API struct {
	base string
	http *request.Client
}

// NewAPI returns an API rooted at base, e.g. "http://localhost:8000".
func NewAPI(base string, client *request.Client) *API {
	return &API{
		base: strings.TrimSuffix(base, "/"),
		http: client,
	}
}

// Base returns the server root the API talks to.
func (a *API) Base() string {
	return a.base
}

// endpoint builds base/api/<name> with query parameters in the given order,
// skipping empty values.
func (a *API) endpoint(name string, params ...string) string {
	var b strings.Builder
	b.WriteString(a.base)
	b.WriteString("/api/")
	b.WriteString(name)

	sep := "?"
	for i := 0; i+1 < len(params); i += 2 {
		if params[i+1] == "" {
			continue
		}
		b.WriteString(sep)
		b.WriteString(params[i])
		b.WriteString("=")
		b.WriteString(url.QueryEscape(params[i+1]))
		sep = "&"
	}
	return b.String()
}

func (a *API) IceServers(ctx context.Context) (*IceServers, error) {
	var out IceServers
	if err := a.http.Do(ctx, request.Request{URL: a.endpoint("getIceServers")}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Call registers offer for peerID and returns the streamer's answer.
func (a *API) Call(ctx context.Context, peerID, videoURL, audioURL, options string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	var answer webrtc.SessionDescription
	u := a.endpoint("call", "peerid", peerID, "url", videoURL, "audiourl", audioURL, "options", options)
	err := a.http.Do(ctx, request.Request{URL: u, Body: offer}, &answer)
	return answer, err
}

func (a *API) AddIceCandidate(ctx context.Context, peerID string, candidate webrtc.ICECandidateInit) error {
	u := a.endpoint("addIceCandidate", "peerid", peerID)
	return a.http.Do(ctx, request.Request{URL: u, Body: candidate}, nil)
}

func (a *API) IceCandidates(ctx context.Context, peerID string) ([]webrtc.ICECandidateInit, error) {
	var out []webrtc.ICECandidateInit
	err := a.http.Do(ctx, request.Request{URL: a.endpoint("getIceCandidate", "peerid", peerID)}, &out)
	return out, err
}

// Hangup notifies the streamer without waiting for the response.
func (a *API) Hangup(peerID string, onFailure func(error)) {
	a.http.Go(context.Background(), request.Request{URL: a.endpoint("hangup", "peerid", peerID)}, nil, onFailure)
}

// CreateOffer asks the streamer to act as offerer for peerID.
func (a *API) CreateOffer(ctx context.Context, peerID, videoURL, audioURL, options string) (json.RawMessage, error) {
	var offer json.RawMessage
	u := a.endpoint("createOffer", "peerid", peerID, "url", videoURL, "audiourl", audioURL, "options", options)
	err := a.http.Do(ctx, request.Request{URL: u}, &offer)
	return offer, err
}

// SetAnswer completes a streamer-side offer created with CreateOffer.
func (a *API) SetAnswer(ctx context.Context, peerID string, answer json.RawMessage) error {
	u := a.endpoint("setAnswer", "peerid", peerID)
	return a.http.Do(ctx, request.Request{URL: u, Body: answer}, nil)
}

// IceCandidatesRaw returns the remote candidate list untouched, for relaying.
func (a *API) IceCandidatesRaw(ctx context.Context, peerID string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	err := a.http.Do(ctx, request.Request{URL: a.endpoint("getIceCandidate", "peerid", peerID)}, &out)
	return out, err
}

func (a *API) Streams(ctx context.Context) ([]string, error) {
	return a.stringList(ctx, "getStreamList")
}

func (a *API) VideoDevices(ctx context.Context) ([]string, error) {
	return a.stringList(ctx, "getVideoDeviceList")
}

func (a *API) AudioDevices(ctx context.Context) ([]string, error) {
	return a.stringList(ctx, "getAudioDeviceList")
}

// PeerConnections returns the peer ids the streamer currently serves, sorted.
func (a *API) PeerConnections(ctx context.Context) ([]string, error) {
	var entries []map[string]json.RawMessage
	if err := a.http.Do(ctx, request.Request{URL: a.endpoint("getPeerConnectionList")}, &entries); err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		for id := range e {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (a *API) Version(ctx context.Context) (string, error) {
	var v string
	err := a.http.Do(ctx, request.Request{URL: a.endpoint("version")}, &v)
	return v, err
}

func (a *API) stringList(ctx context.Context, name string) ([]string, error) {
	var out []string
	err := a.http.Do(ctx, request.Request{URL: a.endpoint(name)}, &out)
	return out, err
}
