package janus

import "encoding/json"

// PluginVideoRoom is the Janus plugin rooms are published to.
const PluginVideoRoom = "janus.plugin.videoroom"

// Janus message types.
const (
	TypeCreate    = "create"
	TypeAttach    = "attach"
	TypeMessage   = "message"
	TypeTrickle   = "trickle"
	TypeKeepAlive = "keepalive"
	TypeDestroy   = "destroy"

	TypeSuccess  = "success"
	TypeAck      = "ack"
	TypeEvent    = "event"
	TypeError    = "error"
	TypeWebRTCUp = "webrtcup"
	TypeHangup   = "hangup"
	TypeMedia    = "media"
)

// Message is a request sent to the gateway. SessionID and HandleID are only
// carried in the body on the WebSocket transport; over HTTP they are part of
// the path.
type Message struct {
	Janus       string          `json:"janus"`
	Transaction string          `json:"transaction"`
	SessionID   int64           `json:"session_id,omitempty"`
	HandleID    int64           `json:"handle_id,omitempty"`
	Plugin      string          `json:"plugin,omitempty"`
	Body        any             `json:"body,omitempty"`
	Jsep        json.RawMessage `json:"jsep,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
}

// Response is anything the gateway sends back: replies, acks and events.
type Response struct {
	Janus       string          `json:"janus"`
	Transaction string          `json:"transaction,omitempty"`
	SessionID   int64           `json:"session_id,omitempty"`
	Sender      int64           `json:"sender,omitempty"`
	Data        *IDData         `json:"data,omitempty"`
	PluginData  *PluginData     `json:"plugindata,omitempty"`
	Jsep        json.RawMessage `json:"jsep,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Error       *ErrorData      `json:"error,omitempty"`
}

type IDData struct {
	ID int64 `json:"id"`
}

type PluginData struct {
	Plugin string         `json:"plugin"`
	Data   VideoRoomEvent `json:"data"`
}

// VideoRoomEvent holds the fields of a videoroom plugin payload this package reads.
type VideoRoomEvent struct {
	VideoRoom string `json:"videoroom"`
	Room      int64  `json:"room,omitempty"`
	ID        int64  `json:"id,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ErrorData struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// VideoRoom reports the plugin's "videoroom" field, or "" when absent.
func (r *Response) VideoRoom() string {
	if r == nil || r.PluginData == nil {
		return ""
	}
	return r.PluginData.Data.VideoRoom
}

type joinBody struct {
	Request string `json:"request"`
	Room    int64  `json:"room"`
	PType   string `json:"ptype"`
	Display string `json:"display"`
}

type publishBody struct {
	Request string `json:"request"`
	Audio   bool   `json:"audio"`
	Video   bool   `json:"video"`
	Data    bool   `json:"data"`
}

type requestBody struct {
	Request string `json:"request"`
}
