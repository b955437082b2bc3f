package streamer

// State is the negotiation progress of a Client.
type State int

const (
	StateIdle State = iota
	StateFetchingIceServers
	StateCreatingOffer
	StateAwaitingRemoteAnswer
	StateExchangingCandidates
	StateConnected
	StateDisconnected
	// StateFailed marks an attempt halted by an error; Connect may be called again.
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                 "idle",
	StateFetchingIceServers:   "fetching ICE servers",
	StateCreatingOffer:        "creating offer",
	StateAwaitingRemoteAnswer: "awaiting answer",
	StateExchangingCandidates: "exchanging candidates",
	StateConnected:            "connected",
	StateDisconnected:         "disconnected",
	StateFailed:               "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
